// Package config loads and validates config.json and profile.json from
// a config directory, and performs the live connectivity check against
// the bot and LLM endpoints before the application is allowed to start.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/haasonsaas/nexus/pkg/models"
)

var (
	placeholderPattern = regexp.MustCompile(`(?i)^YOUR_`)
	emailPattern       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern       = regexp.MustCompile(`^\+?[\d\s\-()]{7,}$`)
)

var requiredConfigKeys = []string{"BOT_TOKEN", "CHAT_ID", "LLM_KEY", "LLM_BASE_URL"}
var requiredProfileKeys = []string{"name", "email"}

// Provider reads config.json and profile.json from a directory on
// disk. Every method re-reads from disk so edits take effect without
// restarting the process.
type Provider struct {
	dir string
}

// NewProvider returns a Provider rooted at dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

func (p *Provider) configPath() string      { return filepath.Join(p.dir, "config.json") }
func (p *Provider) profilePath() string     { return filepath.Join(p.dir, "profile.json") }
func (p *Provider) ResumePath() string      { return filepath.Join(p.dir, "resume", "resume.pdf") }
func (p *Provider) CoverLetterPath() string { return filepath.Join(p.dir, "cover_letter", "cover_letter.pdf") }

// Validate runs the syntactic validation phase: required keys present,
// formats sane, asset files exist. It does not make network calls; see
// CheckConnectivity for the second phase.
func (p *Provider) Validate() ValidationResult {
	var errs []*ConfigError

	configData, configErrs := p.validateJSONFile(p.configPath(), requiredConfigKeys)
	errs = append(errs, configErrs...)

	profileData, profileErrs := p.validateJSONFile(p.profilePath(), requiredProfileKeys)
	errs = append(errs, profileErrs...)

	if configData != nil {
		errs = append(errs, validateConfigFormats(configData)...)
	}
	if profileData != nil {
		errs = append(errs, validateProfileFormats(profileData)...)
	}

	if !isFile(p.ResumePath()) {
		errs = append(errs, &ConfigError{
			File:    "resume",
			Message: fmt.Sprintf("Resume not found at %s. Place your resume.pdf in the resume/ folder.", p.ResumePath()),
		})
	}
	if !isFile(p.CoverLetterPath()) {
		errs = append(errs, &ConfigError{
			File:    "cover_letter",
			Message: fmt.Sprintf("Cover letter not found at %s. Place your cover_letter.pdf in the cover_letter/ folder.", p.CoverLetterPath()),
		})
	}

	return ValidationResult{Errors: errs}
}

// GetConfig reads and decodes config.json. Callers should call Validate
// first; GetConfig does not itself validate formats.
func (p *Provider) GetConfig() (*models.AppConfig, error) {
	raw, err := LoadRaw(p.configPath())
	if err != nil {
		return nil, fmt.Errorf("read config.json: %w", err)
	}
	var rc rawConfig
	if err := decodeInto(raw, &rc); err != nil {
		return nil, err
	}
	chatID, err := chatIDToInt64(rc.ChatID)
	if err != nil {
		return nil, fmt.Errorf("config.json CHAT_ID: %w", err)
	}
	debug, err := asBoolOrFalse(rc.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("config.json debug_mode: %w", err)
	}
	return &models.AppConfig{
		BotToken:   rc.BotToken,
		ChatID:     chatID,
		LLMKey:     rc.LLMKey,
		LLMBaseURL: rc.LLMBaseURL,
		DebugMode:  debug,
	}, nil
}

// GetProfile reads and decodes profile.json into the identity fields
// the agent may use directly.
func (p *Provider) GetProfile() (*models.UserProfile, error) {
	raw, err := LoadRaw(p.profilePath())
	if err != nil {
		return nil, fmt.Errorf("read profile.json: %w", err)
	}
	var rp rawProfile
	if err := decodeInto(raw, &rp); err != nil {
		return nil, err
	}
	return &models.UserProfile{
		FullName: rp.Name,
		Email:    rp.Email,
		Phone:    rp.Phone,
		Address:  rp.Address,
	}, nil
}

// GetResumeData reads profile.json's skills alongside the fixed asset
// paths under the config directory.
func (p *Provider) GetResumeData() (*models.ResumeData, error) {
	raw, err := LoadRaw(p.profilePath())
	if err != nil {
		return nil, fmt.Errorf("read profile.json: %w", err)
	}
	var rp rawProfile
	if err := decodeInto(raw, &rp); err != nil {
		return nil, err
	}
	return &models.ResumeData{
		PrimaryResumePath: p.ResumePath(),
		CoverLetterPaths:  []string{p.CoverLetterPath()},
		Skills:            rp.Skills,
	}, nil
}

func (p *Provider) validateJSONFile(path string, requiredKeys []string) (map[string]any, []*ConfigError) {
	name := filepath.Base(path)
	if !isFile(path) {
		return nil, []*ConfigError{{File: name, Message: fmt.Sprintf("Missing file: %s", path)}}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []*ConfigError{{File: name, Message: fmt.Sprintf("Cannot read %s: %v", path, err)}}
	}
	raw, err := parseRawBytes(data)
	if err != nil {
		return nil, []*ConfigError{{File: name, Message: fmt.Sprintf("Cannot read %s: %v", path, err)}}
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, []*ConfigError{{File: name, Message: fmt.Sprintf("%s missing keys: %s", name, strings.Join(missing, ", "))}}
	}
	return raw, nil
}

func validateConfigFormats(data map[string]any) []*ConfigError {
	var errs []*ConfigError

	botToken, _ := data["BOT_TOKEN"].(string)
	if botToken == "" || placeholderPattern.MatchString(botToken) {
		errs = append(errs, &ConfigError{File: "config.json", Field: "BOT_TOKEN",
			Message: "BOT_TOKEN is a placeholder. Get a real token from @BotFather on Telegram."})
	}

	chatID := fmt.Sprintf("%v", data["CHAT_ID"])
	if !isSignedDigits(chatID) {
		errs = append(errs, &ConfigError{File: "config.json", Field: "CHAT_ID",
			Message: "CHAT_ID must be numeric. Send /start to your bot and check the chat ID."})
	}

	llmKey, _ := data["LLM_KEY"].(string)
	switch {
	case strings.Contains(strings.ToUpper(llmKey), "YOUR"):
		errs = append(errs, &ConfigError{File: "config.json", Field: "LLM_KEY",
			Message: "LLM_KEY is a placeholder. Set your real LLM API key."})
	case !strings.HasPrefix(llmKey, "sk-") || len(llmKey) < 10:
		errs = append(errs, &ConfigError{File: "config.json", Field: "LLM_KEY",
			Message: "LLM_KEY must start with 'sk-' and be at least 10 characters."})
	}

	baseURL, _ := data["LLM_BASE_URL"].(string)
	if !strings.HasPrefix(baseURL, "https://") {
		errs = append(errs, &ConfigError{File: "config.json", Field: "LLM_BASE_URL",
			Message: "LLM_BASE_URL must start with 'https://'."})
	}

	if debugMode, ok := data["debug_mode"]; ok {
		if _, isBool := debugMode.(bool); !isBool {
			errs = append(errs, &ConfigError{File: "config.json", Field: "debug_mode",
				Message: "debug_mode must be a boolean (true/false), not a string."})
		}
	}

	return errs
}

func validateProfileFormats(data map[string]any) []*ConfigError {
	var errs []*ConfigError

	name, _ := data["name"].(string)
	if name == "" || name == "Your Full Name" {
		errs = append(errs, &ConfigError{File: "profile.json", Field: "name",
			Message: "profile.json: name is a placeholder. Enter your real name."})
	}

	email, _ := data["email"].(string)
	switch {
	case !emailPattern.MatchString(email):
		errs = append(errs, &ConfigError{File: "profile.json", Field: "email",
			Message: fmt.Sprintf("profile.json: email '%s' is not a valid email address.", email)})
	case email == "your@email.com":
		errs = append(errs, &ConfigError{File: "profile.json", Field: "email",
			Message: "profile.json: email is a placeholder. Enter your real email."})
	}

	if phoneRaw, ok := data["phone"]; ok && phoneRaw != nil {
		phone := fmt.Sprintf("%v", phoneRaw)
		if !phonePattern.MatchString(phone) {
			errs = append(errs, &ConfigError{File: "profile.json", Field: "phone",
				Message: fmt.Sprintf("profile.json: phone '%s' is not a valid phone number.", phone)})
		}
	}

	return errs
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isSignedDigits(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func chatIDToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing")
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	default:
		return strconv.ParseInt(fmt.Sprintf("%v", t), 10, 64)
	}
}

func asBoolOrFalse(v any) (bool, error) {
	if v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("must be a boolean")
	}
	return b, nil
}
