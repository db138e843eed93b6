package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/playwright-community/playwright-go"
)

// maxSnapshotBytes and maxBodyTextBytes bound how much page text is fed
// back to the model per page_snapshot call.
const (
	maxSnapshotBytes = 8000
	maxBodyTextBytes = 4000
)

// Tools builds the registered set of page_snapshot/screenshot/goto/
// click/fill/select_option/upload_file/scroll/get_current_url/wait
// browser tools plus the ask_user/report_status/report_credential/done
// tools, all sharing one page for the lifetime of an apply run.
type Tools struct {
	page            playwright.Page
	chat            agent.ChatPort
	credSink        agent.CredentialSink
	resumePath      string
	coverLetterPath string
}

// NewTools builds the tool set over session's page. resumePath and
// coverLetterPath may be empty when no document is configured.
func NewTools(session *Session, chat agent.ChatPort, credSink agent.CredentialSink, resumePath, coverLetterPath string) *Tools {
	return &Tools{page: session.Page, chat: chat, credSink: credSink, resumePath: resumePath, coverLetterPath: coverLetterPath}
}

// Register adds every tool in the set to registry.
func (t *Tools) Register(registry *agent.ToolRegistry) {
	registry.Register(&pageSnapshotTool{t})
	registry.Register(&screenshotTool{t})
	registry.Register(&gotoTool{t})
	registry.Register(&clickTool{t})
	registry.Register(&fillTool{t})
	registry.Register(&selectOptionTool{t})
	registry.Register(&uploadFileTool{t})
	registry.Register(&scrollTool{t})
	registry.Register(&getCurrentURLTool{t})
	registry.Register(&waitTool{t})
	registry.Register(&askUserTool{t})
	registry.Register(&reportStatusTool{t})
	registry.Register(&reportCredentialTool{t})
	registry.Register(&doneTool{})
}

func errResult(format string, args ...any) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}, nil
}

func okResult(format string, args ...any) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: fmt.Sprintf(format, args...)}, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// --- page_snapshot -----------------------------------------------------

type pageSnapshotTool struct{ t *Tools }

func (pageSnapshotTool) Name() string        { return "page_snapshot" }
func (pageSnapshotTool) Description() string { return "Return the accessibility tree of the current page as structured text." }
func (pageSnapshotTool) Schema() map[string]map[string]any { return map[string]map[string]any{} }

func (p *pageSnapshotTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	snapshot, err := p.t.page.Locator("html").AriaSnapshot()
	if err != nil || snapshot == "" {
		body, bodyErr := p.t.page.InnerText("body")
		if bodyErr != nil {
			return nil, agent.NewToolError("page_snapshot", bodyErr).WithType(agent.ToolErrorInfrastructure)
		}
		return okResult("%s", truncate(body, maxBodyTextBytes))
	}
	return okResult("%s", truncate(snapshot, maxSnapshotBytes))
}

// --- screenshot ----------------------------------------------------------

type screenshotTool struct{ t *Tools }

func (screenshotTool) Name() string        { return "screenshot" }
func (screenshotTool) Description() string { return "Take a full-page screenshot and return the raw PNG bytes (base64 in messages)." }
func (screenshotTool) Schema() map[string]map[string]any { return map[string]map[string]any{} }

func (s *screenshotTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	data, err := s.t.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, agent.NewToolError("screenshot", err).WithType(agent.ToolErrorInfrastructure)
	}
	return okResult("%s", base64.StdEncoding.EncodeToString(data))
}

// --- goto ------------------------------------------------------------

type gotoTool struct{ t *Tools }

func (gotoTool) Name() string        { return "goto" }
func (gotoTool) Description() string { return "Navigate the browser to the given URL." }
func (gotoTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"url": {"type": "string", "description": "The URL to navigate to."},
	}
}

func (g *gotoTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	url := stringArg(args, "url")
	if url == "" {
		return errResult("url is required")
	}
	_, err := g.t.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
	if err != nil {
		return nil, agent.NewToolError("goto", err).WithType(agent.ToolErrorInfrastructure)
	}
	return okResult("Navigated to %s", url)
}

// --- click -------------------------------------------------------------

type clickTool struct{ t *Tools }

func (clickTool) Name() string        { return "click" }
func (clickTool) Description() string { return "Click an element identified by visible text, ARIA role label, or CSS selector." }
func (clickTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"target": {"type": "string", "description": "Button text, link text, or CSS selector."},
	}
}

func (c *clickTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	target := stringArg(args, "target")
	page := c.t.page
	candidates := []playwright.Locator{
		page.GetByRole("button", playwright.PageGetByRoleOptions{Name: target}),
		page.GetByRole("link", playwright.PageGetByRoleOptions{Name: target}),
		page.GetByText(target, playwright.PageGetByTextOptions{Exact: playwright.Bool(false)}),
		page.Locator(target),
	}
	for _, loc := range candidates {
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := loc.First().Click(); err != nil {
			return nil, agent.NewToolError("click", err).WithType(agent.ToolErrorInfrastructure)
		}
		return okResult("Clicked: %s", target)
	}
	return errResult("Element not found: %s", target)
}

// --- fill ----------------------------------------------------------------

type fillTool struct{ t *Tools }

func (fillTool) Name() string        { return "fill" }
func (fillTool) Description() string {
	return "Fill a form field with the given value. Identifies the field by label, placeholder, name attribute, or CSS selector."
}
func (fillTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"field": {"type": "string", "description": "Field label, placeholder, name, or CSS selector."},
		"value": {"type": "string", "description": "The value to type into the field."},
	}
}

func (f *fillTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	field := stringArg(args, "field")
	value := stringArg(args, "value")
	page := f.t.page
	candidates := []playwright.Locator{
		page.GetByLabel(field, playwright.PageGetByLabelOptions{}),
		page.GetByPlaceholder(field, playwright.PageGetByPlaceholderOptions{}),
		page.Locator(fmt.Sprintf(`[name="%s"]`, field)),
		page.Locator("#" + field),
		page.Locator(field),
	}
	for _, loc := range candidates {
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := loc.First().Fill(value); err != nil {
			return nil, agent.NewToolError("fill", err).WithType(agent.ToolErrorInfrastructure)
		}
		return okResult("Filled %s", field)
	}
	return errResult("Field not found: %s", field)
}

// --- select_option ---------------------------------------------------

type selectOptionTool struct{ t *Tools }

func (selectOptionTool) Name() string        { return "select_option" }
func (selectOptionTool) Description() string { return "Select a dropdown option by its visible text or value." }
func (selectOptionTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"field": {"type": "string", "description": "Dropdown label or selector."},
		"value": {"type": "string", "description": "Option text or value to select."},
	}
}

func (s *selectOptionTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	field := stringArg(args, "field")
	value := stringArg(args, "value")
	page := s.t.page
	candidates := []playwright.Locator{
		page.GetByLabel(field, playwright.PageGetByLabelOptions{}),
		page.Locator(fmt.Sprintf(`[name="%s"]`, field)),
		page.Locator(field),
	}
	for _, loc := range candidates {
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		if _, err := loc.First().SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}); err != nil {
			return nil, agent.NewToolError("select_option", err).WithType(agent.ToolErrorInfrastructure)
		}
		return okResult("Selected %s in %s", value, field)
	}
	return errResult("Dropdown not found: %s", field)
}

// --- upload_file -------------------------------------------------------

type uploadFileTool struct{ t *Tools }

func (uploadFileTool) Name() string        { return "upload_file" }
func (uploadFileTool) Description() string { return "Upload a document to a file input field." }
func (uploadFileTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"field":     {"type": "string", "description": "File input label or selector."},
		"file_type": {"type": "string", "enum": []string{"resume", "cover_letter"}, "description": "Which document to upload."},
	}
}

func (u *uploadFileTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	field := stringArg(args, "field")
	fileType := stringArg(args, "file_type")
	if fileType == "" {
		fileType = "resume"
	}
	path := u.t.resumePath
	if fileType == "cover_letter" {
		path = u.t.coverLetterPath
	}
	if path == "" {
		return okResult("No %s file configured", fileType)
	}

	page := u.t.page
	candidates := []playwright.Locator{
		page.GetByLabel(field, playwright.PageGetByLabelOptions{}),
		page.Locator(fmt.Sprintf(`[name="%s"]`, field)),
		page.Locator(field),
	}
	for _, loc := range candidates {
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := loc.First().SetInputFiles([]string{path}); err != nil {
			return nil, agent.NewToolError("upload_file", err).WithType(agent.ToolErrorInfrastructure)
		}
		return okResult("Uploaded %s to %s", fileType, field)
	}
	return errResult("File input not found: %s", field)
}

// --- scroll --------------------------------------------------------------

type scrollTool struct{ t *Tools }

func (scrollTool) Name() string        { return "scroll" }
func (scrollTool) Description() string { return "Scroll the page up or down." }
func (scrollTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"direction": {"type": "string", "enum": []string{"up", "down"}, "description": "Scroll direction."},
	}
}

func (s *scrollTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	direction := stringArg(args, "direction")
	if direction == "" {
		direction = "down"
	}
	delta := 600
	if direction != "down" {
		delta = -600
	}
	if _, err := s.t.page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", delta)); err != nil {
		return nil, agent.NewToolError("scroll", err).WithType(agent.ToolErrorInfrastructure)
	}
	return okResult("Scrolled %s", direction)
}

// --- get_current_url -------------------------------------------------

type getCurrentURLTool struct{ t *Tools }

func (getCurrentURLTool) Name() string        { return "get_current_url" }
func (getCurrentURLTool) Description() string { return "Return the current page URL." }
func (getCurrentURLTool) Schema() map[string]map[string]any { return map[string]map[string]any{} }

func (g *getCurrentURLTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	return okResult("%s", g.t.page.URL())
}

// --- wait ----------------------------------------------------------------

type waitTool struct{ t *Tools }

func (waitTool) Name() string        { return "wait" }
func (waitTool) Description() string { return "Wait for the page to finish loading or for a specified number of seconds." }
func (waitTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"seconds": {"type": "integer", "description": "Seconds to wait (default 2).", "default": 2},
	}
}

func (w *waitTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	seconds := intArg(args, "seconds", 2)
	err := w.t.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(seconds * 1000)),
	})
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, agent.NewToolError("wait", ctx.Err()).WithType(agent.ToolErrorInfrastructure)
		case <-timeAfterSeconds(seconds):
		}
	}
	return okResult("Waited %ds", seconds)
}

// --- ask_user --------------------------------------------------------

type askUserTool struct{ t *Tools }

func (askUserTool) Name() string        { return "ask_user" }
func (askUserTool) Description() string { return "Ask the human user a question via chat and wait for their text reply." }
func (askUserTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"question": {"type": "string", "description": "The question to ask the user."},
	}
}

func (a *askUserTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	question := stringArg(args, "question")
	reply, err := a.t.chat.AskFreeText(ctx, question)
	if err != nil {
		return nil, agent.NewToolError("ask_user", err).WithType(agent.ToolErrorInfrastructure)
	}
	return okResult("%s", reply)
}

// --- report_status -----------------------------------------------------

type reportStatusTool struct{ t *Tools }

func (reportStatusTool) Name() string        { return "report_status" }
func (reportStatusTool) Description() string { return "Send an informational status message to the user (no reply expected)." }
func (reportStatusTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"message": {"type": "string", "description": "The status message."},
	}
}

func (r *reportStatusTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	message := stringArg(args, "message")
	if err := r.t.chat.SendInfo(ctx, message); err != nil {
		return nil, agent.NewToolError("report_status", err).WithType(agent.ToolErrorInfrastructure)
	}
	return okResult("Status sent")
}

// --- report_credential -------------------------------------------------

type reportCredentialTool struct{ t *Tools }

func (reportCredentialTool) Name() string { return "report_credential" }
func (reportCredentialTool) Description() string {
	return "Record the password just set when creating a new account on this job board, so it can be reused next time you apply here."
}
func (reportCredentialTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"password": {"type": "string", "description": "The password set when creating or resetting the account."},
	}
}

func (r *reportCredentialTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	password := stringArg(args, "password")
	if password == "" {
		return errResult("password is required")
	}
	if r.t.credSink == nil {
		return okResult("Credential storage not configured")
	}
	if err := r.t.credSink.ReportCredential(ctx, password); err != nil {
		return nil, agent.NewToolError("report_credential", err).WithType(agent.ToolErrorInfrastructure)
	}
	return okResult("Credential recorded")
}

// --- done ------------------------------------------------------------

// doneTool is registered only so its schema is advertised to the model;
// AgentLoop.ExecuteTask intercepts a "done" call before it reaches the
// registry, so Execute here is unreachable in normal operation.
type doneTool struct{}

func (doneTool) Name() string        { return "done" }
func (doneTool) Description() string { return "Signal that the current task is complete." }
func (doneTool) Schema() map[string]map[string]any {
	return map[string]map[string]any{
		"status": {"type": "string", "enum": []string{"success", "failed", "skipped"}, "description": "Outcome."},
		"reason": {"type": "string", "description": "Short explanation of the outcome."},
	}
}

func (doneTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolResult, error) {
	data, _ := json.Marshal(map[string]any{"done": true, "status": args["status"], "reason": args["reason"]})
	return okResult("%s", string(data))
}

func timeAfterSeconds(seconds int) <-chan time.Time {
	return time.After(time.Duration(seconds) * time.Second)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
