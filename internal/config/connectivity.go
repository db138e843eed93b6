package config

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"

	"github.com/haasonsaas/nexus/pkg/models"
)

const connectivityTimeout = 10 * time.Second

// CheckConnectivity runs the second validation phase: live reachability
// of the bot token and the LLM endpoint, each under its own timeout,
// run concurrently since neither depends on the other's result.
func CheckConnectivity(ctx context.Context, cfg *models.AppConfig) models.ConnectivityResult {
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		errs        []string
		botUsername string
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		username, err := describeBotSelf(ctx, cfg.BotToken)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Sprintf("bot: %v", err))
			return
		}
		botUsername = username
	}()

	go func() {
		defer wg.Done()
		if err := listLLMModels(ctx, cfg.LLMBaseURL, cfg.LLMKey); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Sprintf("llm: %v", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	return models.ConnectivityResult{
		OK:          len(errs) == 0,
		Errors:      errs,
		BotUsername: botUsername,
	}
}

func describeBotSelf(ctx context.Context, token string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	b, err := bot.New(token)
	if err != nil {
		return "", fmt.Errorf("construct bot client: %w", err)
	}
	me, err := b.GetMe(tctx)
	if err != nil {
		return "", fmt.Errorf("getMe: %w", err)
	}
	return me.Username, nil
}

func listLLMModels(ctx context.Context, baseURL, key string) error {
	tctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(tctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("unauthorized: check LLM_KEY")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
