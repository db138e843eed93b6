package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
)

var playwrightCheck struct {
	once sync.Once
	err  error
}

func requirePlaywright(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser integration tests in short mode")
	}
	playwrightCheck.once.Do(func() {
		s, err := NewSession(SessionConfig{Timeout: 10 * time.Second, Headless: true})
		if err != nil {
			playwrightCheck.err = err
			return
		}
		s.Close()
	})
	if playwrightCheck.err != nil {
		t.Skipf("Playwright not available: %v", playwrightCheck.err)
	}

	session, err := NewSession(SessionConfig{Timeout: 30 * time.Second, Headless: true})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

type fakeChatPort struct {
	reply string
	sent  []string
}

func (f *fakeChatPort) AskFreeText(ctx context.Context, question string) (string, error) {
	return f.reply, nil
}

func (f *fakeChatPort) SendInfo(ctx context.Context, message string) error {
	f.sent = append(f.sent, message)
	return nil
}

type fakeCredentialSink struct {
	passwords []string
	err       error
}

func (f *fakeCredentialSink) ReportCredential(ctx context.Context, password string) error {
	if f.err != nil {
		return f.err
	}
	f.passwords = append(f.passwords, password)
	return nil
}

func newTestRegistry(session *Session, chat agent.ChatPort) *agent.ToolRegistry {
	return newTestRegistryWithCreds(session, chat, &fakeCredentialSink{})
}

func newTestRegistryWithCreds(session *Session, chat agent.ChatPort, creds agent.CredentialSink) *agent.ToolRegistry {
	registry := agent.NewToolRegistry()
	NewTools(session, chat, creds, "", "").Register(registry)
	return registry
}

func TestTools_Register_AllFourteen(t *testing.T) {
	registry := newTestRegistry(&Session{}, &fakeChatPort{})
	names := []string{
		"page_snapshot", "screenshot", "goto", "click", "fill",
		"select_option", "upload_file", "scroll", "get_current_url",
		"wait", "ask_user", "report_status", "report_credential", "done",
	}
	for _, name := range names {
		if _, ok := registry.Get(name); !ok {
			t.Errorf("expected tool %q to be registered", name)
		}
	}
}

func TestGotoTool_NavigatesAndReportsURL(t *testing.T) {
	session := requirePlaywright(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Welcome</h1></body></html>`))
	}))
	defer ts.Close()

	registry := newTestRegistry(session, &fakeChatPort{})
	ctx := context.Background()

	result, err := registry.Execute(ctx, "goto", map[string]any{"url": ts.URL})
	if err != nil {
		t.Fatalf("goto: %v", err)
	}
	if result.IsError {
		t.Fatalf("goto reported an error: %s", result.Content)
	}

	urlResult, err := registry.Execute(ctx, "get_current_url", map[string]any{})
	if err != nil {
		t.Fatalf("get_current_url: %v", err)
	}
	if !strings.HasPrefix(urlResult.Content, ts.URL) {
		t.Errorf("current url = %q, want prefix %q", urlResult.Content, ts.URL)
	}
}

func TestClickTool_ElementNotFoundIsRecoverable(t *testing.T) {
	session := requirePlaywright(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>no buttons here</p></body></html>`))
	}))
	defer ts.Close()

	registry := newTestRegistry(session, &fakeChatPort{})
	ctx := context.Background()
	if _, err := registry.Execute(ctx, "goto", map[string]any{"url": ts.URL}); err != nil {
		t.Fatalf("goto: %v", err)
	}

	result, err := registry.Execute(ctx, "click", map[string]any{"target": "Nonexistent Button"})
	if err != nil {
		t.Fatalf("a missing element should be a benign result, not a Go error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for a missing element")
	}
}

func TestAskUserTool_ReturnsChatReply(t *testing.T) {
	chat := &fakeChatPort{reply: "yes, I am authorized to work"}
	registry := newTestRegistry(&Session{}, chat)

	result, err := registry.Execute(context.Background(), "ask_user", map[string]any{"question": "Are you authorized to work?"})
	if err != nil {
		t.Fatalf("ask_user: %v", err)
	}
	if result.Content != chat.reply {
		t.Errorf("Content = %q, want %q", result.Content, chat.reply)
	}
}

func TestReportStatusTool_ForwardsToChat(t *testing.T) {
	chat := &fakeChatPort{}
	registry := newTestRegistry(&Session{}, chat)

	if _, err := registry.Execute(context.Background(), "report_status", map[string]any{"message": "applied to 3 jobs"}); err != nil {
		t.Fatalf("report_status: %v", err)
	}
	if len(chat.sent) != 1 || chat.sent[0] != "applied to 3 jobs" {
		t.Errorf("sent = %v, want one message", chat.sent)
	}
}

func TestUploadFileTool_NoDocumentConfigured(t *testing.T) {
	registry := newTestRegistry(&Session{}, &fakeChatPort{})
	result, err := registry.Execute(context.Background(), "upload_file", map[string]any{"field": "resume", "file_type": "resume"})
	if err != nil {
		t.Fatalf("upload_file: %v", err)
	}
	if !strings.Contains(result.Content, "No resume file configured") {
		t.Errorf("Content = %q, want a no-file-configured message", result.Content)
	}
}

func TestReportCredentialTool_ForwardsPasswordToSink(t *testing.T) {
	creds := &fakeCredentialSink{}
	registry := newTestRegistryWithCreds(&Session{}, &fakeChatPort{}, creds)

	if _, err := registry.Execute(context.Background(), "report_credential", map[string]any{"password": "s3cr3t!"}); err != nil {
		t.Fatalf("report_credential: %v", err)
	}
	if len(creds.passwords) != 1 || creds.passwords[0] != "s3cr3t!" {
		t.Errorf("passwords = %v, want one entry", creds.passwords)
	}
}

func TestReportCredentialTool_MissingPasswordIsRecoverable(t *testing.T) {
	registry := newTestRegistry(&Session{}, &fakeChatPort{})
	result, err := registry.Execute(context.Background(), "report_credential", map[string]any{})
	if err != nil {
		t.Fatalf("report_credential: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for a missing password")
	}
}

func TestReportCredentialTool_SinkErrorIsInfrastructure(t *testing.T) {
	creds := &fakeCredentialSink{err: context.DeadlineExceeded}
	registry := newTestRegistryWithCreds(&Session{}, &fakeChatPort{}, creds)

	if _, err := registry.Execute(context.Background(), "report_credential", map[string]any{"password": "x"}); err == nil {
		t.Fatal("expected a Go error for an infrastructure-classified sink failure")
	}
}
