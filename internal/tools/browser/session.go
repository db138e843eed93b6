// Package browser drives a single Playwright page per application run.
package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// SessionConfig configures the one browser session launched for an
// apply run.
type SessionConfig struct {
	Timeout        time.Duration // default timeout for page operations
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	// RemoteURL, if set, connects to an already-running browser server
	// instead of launching a local Chromium process.
	RemoteURL string
}

// Session owns one Playwright runtime, browser, context, and page for
// the lifetime of a single application attempt. Unlike the teacher's
// multi-instance Pool, this spec never runs more than one browser
// session at a time (SPEC_FULL.md §5), so there is nothing to pool.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	Page    playwright.Page
}

// NewSession installs Playwright if needed, launches (or connects to) a
// Chromium instance, and opens one page.
func NewSession(config SessionConfig) (*Session, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ViewportWidth == 0 {
		config.ViewportWidth = 1920
	}
	if config.ViewportHeight == 0 {
		config.ViewportHeight = 1080
	}

	remoteURL := normalizeRemoteURL(config.RemoteURL)
	if remoteURL == "" {
		if err := playwright.Install(&playwright.RunOptions{Verbose: false}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var browser playwright.Browser
	if remoteURL != "" {
		browser, err = pw.Chromium.Connect(remoteURL)
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(config.Headless),
			Timeout:  playwright.Float(float64(config.Timeout.Milliseconds())),
		})
	}
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  config.ViewportWidth,
			Height: config.ViewportHeight,
		},
		AcceptDownloads:   playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		browserContext.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	page.SetDefaultTimeout(float64(config.Timeout.Milliseconds()))

	return &Session{pw: pw, browser: browser, context: browserContext, Page: page}, nil
}

// Close tears the session down in the reverse order it was built.
func (s *Session) Close() error {
	if s.context != nil {
		s.context.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}

func normalizeRemoteURL(raw string) string {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return ""
	case strings.HasPrefix(value, "http://"):
		return "ws://" + strings.TrimPrefix(value, "http://")
	case strings.HasPrefix(value, "https://"):
		return "wss://" + strings.TrimPrefix(value, "https://")
	default:
		return value
	}
}
