package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/pkg/models"
)

func writeConfigDir(t *testing.T, configJSON, profileJSON string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0o644); err != nil {
		t.Fatalf("write config.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "profile.json"), []byte(profileJSON), 0o644); err != nil {
		t.Fatalf("write profile.json: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "resume"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "resume", "resume.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "cover_letter"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cover_letter", "cover_letter.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

const validConfigJSON = `{
	"BOT_TOKEN": "123456:real-token",
	"CHAT_ID": 42,
	"LLM_KEY": "sk-abcdefghij",
	"LLM_BASE_URL": "https://api.openai.com/v1",
	"debug_mode": true
}`

const validProfileJSON = `{
	"name": "Ada Lovelace",
	"email": "ada@example.com",
	"phone": "+1 555 123 4567",
	"address": "London",
	"skills": ["go", "python"]
}`

func TestValidate_AllGoodProducesNoErrors(t *testing.T) {
	dir := writeConfigDir(t, validConfigJSON, validProfileJSON)
	result := NewProvider(dir).Validate()
	if !result.OK() {
		t.Fatalf("unexpected errors: %v", result.Strings())
	}
}

func TestValidate_PlaceholderBotTokenIsRejected(t *testing.T) {
	configJSON := strings.Replace(validConfigJSON, `"123456:real-token"`, `"YOUR_BOT_TOKEN"`, 1)
	dir := writeConfigDir(t, configJSON, validProfileJSON)
	result := NewProvider(dir).Validate()
	if !containsSubstring(result.Strings(), "BOT_TOKEN is a placeholder") {
		t.Errorf("errors = %v", result.Strings())
	}
}

func TestValidate_NonNumericChatIDIsRejected(t *testing.T) {
	configJSON := strings.Replace(validConfigJSON, `"CHAT_ID": 42`, `"CHAT_ID": "not-a-number"`, 1)
	dir := writeConfigDir(t, configJSON, validProfileJSON)
	result := NewProvider(dir).Validate()
	if !containsSubstring(result.Strings(), "CHAT_ID must be numeric") {
		t.Errorf("errors = %v", result.Strings())
	}
}

func TestValidate_LLMKeyMustHaveSKPrefix(t *testing.T) {
	configJSON := strings.Replace(validConfigJSON, `"sk-abcdefghij"`, `"not-a-key"`, 1)
	dir := writeConfigDir(t, configJSON, validProfileJSON)
	result := NewProvider(dir).Validate()
	if !containsSubstring(result.Strings(), "LLM_KEY must start with 'sk-'") {
		t.Errorf("errors = %v", result.Strings())
	}
}

func TestValidate_InvalidEmailIsRejected(t *testing.T) {
	profileJSON := strings.Replace(validProfileJSON, `"ada@example.com"`, `"not-an-email"`, 1)
	dir := writeConfigDir(t, validConfigJSON, profileJSON)
	result := NewProvider(dir).Validate()
	if !containsSubstring(result.Strings(), "is not a valid email address") {
		t.Errorf("errors = %v", result.Strings())
	}
}

func TestValidate_MissingResumeFileIsRejected(t *testing.T) {
	dir := writeConfigDir(t, validConfigJSON, validProfileJSON)
	if err := os.Remove(filepath.Join(dir, "resume", "resume.pdf")); err != nil {
		t.Fatal(err)
	}
	result := NewProvider(dir).Validate()
	if !containsSubstring(result.Strings(), "Resume not found") {
		t.Errorf("errors = %v", result.Strings())
	}
}

func TestValidate_MissingRequiredKeyIsRejected(t *testing.T) {
	dir := writeConfigDir(t, `{"BOT_TOKEN": "t"}`, validProfileJSON)
	result := NewProvider(dir).Validate()
	if !containsSubstring(result.Strings(), "missing keys") {
		t.Errorf("errors = %v", result.Strings())
	}
}

func TestGetConfig_ParsesChatIDAndDebugMode(t *testing.T) {
	dir := writeConfigDir(t, validConfigJSON, validProfileJSON)
	cfg, err := NewProvider(dir).GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.ChatID != 42 || !cfg.DebugMode {
		t.Errorf("got %+v", cfg)
	}
}

func TestGetProfile_MapsNameToFullName(t *testing.T) {
	dir := writeConfigDir(t, validConfigJSON, validProfileJSON)
	profile, err := NewProvider(dir).GetProfile()
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.FullName != "Ada Lovelace" {
		t.Errorf("got %+v", profile)
	}
}

func TestGetResumeData_CarriesSkillsAndPaths(t *testing.T) {
	dir := writeConfigDir(t, validConfigJSON, validProfileJSON)
	p := NewProvider(dir)
	resume, err := p.GetResumeData()
	if err != nil {
		t.Fatalf("GetResumeData: %v", err)
	}
	if len(resume.Skills) != 2 || resume.PrimaryResumePath != p.ResumePath() {
		t.Errorf("got %+v", resume)
	}
}

func TestCheckConnectivity_UnauthorizedLLMIsReportedDistinctly(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer llm.Close()

	cfg := &models.AppConfig{BotToken: "", LLMKey: "sk-bad", LLMBaseURL: llm.URL}
	result := CheckConnectivity(t.Context(), cfg)
	if result.OK {
		t.Fatal("expected connectivity failure")
	}
	if !containsSubstring(result.Errors, "unauthorized") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func containsSubstring(items []string, substr string) bool {
	for _, item := range items {
		if strings.Contains(item, substr) {
			return true
		}
	}
	return false
}
