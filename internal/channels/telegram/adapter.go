// Package telegram implements the chat dispatcher (C5): command
// parsing, URL staging, the at-most-one-concurrent-apply guard, and
// routing of mid-flow human questions (ask_user/report_status) back to
// the same Telegram chat the apply was started from.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/storage"
	"github.com/haasonsaas/nexus/pkg/models"
)

// httpURLPattern matches a bare http(s) URL, used to recognize a
// free-form message as a job posting link rather than a command.
var httpURLPattern = regexp.MustCompile(`^https?://\S+$`)

// Applier is the slice of the application orchestrator (C4) the
// dispatcher drives one /apply through.
type Applier interface {
	Apply(ctx context.Context, chat agent.ChatPort, jobURL string) (*models.JobApplicationRecord, error)
}

// Dispatcher is the chat front-end: one Telegram chat, one pending URL,
// one in-flight apply at a time. It also implements agent.ChatPort, so
// the same instance is handed to the orchestrator as the human channel
// for ask_user/report_status.
type Dispatcher struct {
	bot    BotClient
	chatID int64
	jobs   storage.JobApplicationRepository
	apply  Applier
	cfg    *config.Provider
	logger *slog.Logger

	mu       sync.Mutex
	lastURL  string
	applying bool
	answers  chan string
}

// NewDispatcher builds a Dispatcher bound to one Telegram chat. The
// BotClient is attached separately via AttachBot once the underlying
// *bot.Bot has been constructed with this dispatcher's HandleUpdate as
// its default handler (they have a circular construction order: the
// bot needs the handler, the handler needs the bot to reply).
func NewDispatcher(chatID int64, jobs storage.JobApplicationRepository, applier Applier, cfg *config.Provider, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		chatID:  chatID,
		jobs:    jobs,
		apply:   applier,
		cfg:     cfg,
		logger:  logger.With("component", "chat_dispatcher"),
		answers: make(chan string, 16),
	}
}

// AttachBot wires the live bot transport in after construction.
func (d *Dispatcher) AttachBot(b BotClient) {
	d.bot = b
}

// Listen registers the update handler and blocks in long-polling mode
// until ctx is cancelled. The caller is expected to have constructed
// the underlying *bot.Bot with bot.WithDefaultHandler(d.HandleUpdate).
func (d *Dispatcher) Listen(ctx context.Context) {
	d.logger.Info("chat_dispatcher_listening", "chat_id", d.chatID)
	d.bot.Start(ctx)
}

// HandleUpdate is the bot.HandlerFunc registered as the default
// handler. Non-text updates and messages from any chat other than the
// configured one are ignored: this system serves a single human user.
func (d *Dispatcher) HandleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Chat.ID != d.chatID {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}
	d.route(ctx, text)
}

// route dispatches one inbound chat message: either as an answer to a
// currently pending ask_user call, or as a command/URL. While an apply
// is in flight, /apply is still handled as a command (and rejected);
// every other message is queued as an answer.
func (d *Dispatcher) route(ctx context.Context, text string) {
	d.mu.Lock()
	applying := d.applying
	d.mu.Unlock()

	if applying && !matchesCommand(text, "/apply") {
		select {
		case d.answers <- text:
		default:
			d.logger.Warn("answer_queue_full", "dropped", text)
		}
		return
	}

	switch {
	case httpURLPattern.MatchString(text):
		d.handleURL(ctx, text)
	case matchesCommand(text, "/apply"):
		d.handleApply(ctx)
	case matchesCommand(text, "/status"):
		d.handleStatus(ctx)
	case matchesCommand(text, "/debug"):
		d.handleDebug(ctx)
	case matchesCommand(text, "/help"):
		d.send(ctx, helpText)
	default:
		d.send(ctx, "Unrecognized message")
	}
}

// matchesCommand reports whether text's first whitespace-delimited
// token equals cmd, case-insensitively, per spec.md §4.5's "prefix
// match on first token."
func matchesCommand(text, cmd string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(fields[0], cmd)
}

func (d *Dispatcher) handleURL(ctx context.Context, text string) {
	d.mu.Lock()
	d.lastURL = text
	d.mu.Unlock()
	d.send(ctx, fmt.Sprintf("Got it, saved job URL: %s\nSend /apply to start.", text))
}

// handleApply enforces the at-most-one-concurrent-apply guard, then
// runs the orchestrator to completion in its own goroutine so this
// dispatcher's listener keeps draining inbound messages (including the
// answers the in-flight apply's ask_user calls are waiting on).
func (d *Dispatcher) handleApply(ctx context.Context) {
	d.mu.Lock()
	if d.applying {
		d.mu.Unlock()
		d.send(ctx, "An application is already in progress. Please wait for it to finish.")
		return
	}
	if d.lastURL == "" {
		d.mu.Unlock()
		d.send(ctx, "No job URL saved yet. Send me a job posting link first.")
		return
	}
	jobURL := d.lastURL
	d.lastURL = ""
	d.applying = true
	d.mu.Unlock()

	drainAnswers(d.answers)

	go func() {
		defer func() {
			d.mu.Lock()
			d.applying = false
			d.mu.Unlock()
		}()
		d.runApply(ctx, jobURL)
	}()
}

// runApply drives one C4 invocation to completion, converting any
// panic or error C4 surfaces into a chat-visible message so the
// dispatcher goroutine survives, per spec.md §7's "C5 catches all
// exceptions from C4."
func (d *Dispatcher) runApply(ctx context.Context, jobURL string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("apply_panicked", "job_url", jobURL, "panic", r)
			d.send(ctx, fmt.Sprintf("Failed to apply for %s. Reason: internal error.", models.CompanyNameFromURL(jobURL)))
		}
	}()

	record, err := d.apply.Apply(ctx, d, jobURL)
	if err != nil {
		d.logger.Error("apply_errored", "job_url", jobURL, "error", err)
		d.send(ctx, fmt.Sprintf("Application failed: %v", err))
		return
	}

	switch record.Status {
	case models.StatusApplied:
		d.send(ctx, fmt.Sprintf("Application submitted for %s (%s).", record.CompanyName, record.JobURL))
	case models.StatusSkipped:
		d.send(ctx, fmt.Sprintf("Skipped application for %s. Reason: %s", record.CompanyName, reasonOrDefault(record.FailureReason)))
	default:
		d.send(ctx, fmt.Sprintf("Failed to apply for %s. Reason: %s", record.CompanyName, reasonOrDefault(record.FailureReason)))
	}
}

func reasonOrDefault(reason *string) string {
	if reason == nil || *reason == "" {
		return "unknown"
	}
	return *reason
}

func (d *Dispatcher) handleStatus(ctx context.Context) {
	records, err := d.jobs.ListAll(ctx)
	if err != nil {
		d.send(ctx, fmt.Sprintf("Could not read application history: %v", err))
		return
	}
	if len(records) == 0 {
		d.send(ctx, "No applications recorded yet.")
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		ai, aj := records[i].AppliedAt, records[j].AppliedAt
		switch {
		case ai == nil && aj == nil:
			return false
		case ai == nil:
			return false
		case aj == nil:
			return true
		default:
			return ai.After(*aj)
		}
	})
	if len(records) > 10 {
		records = records[:10]
	}
	var b strings.Builder
	b.WriteString("Recent applications:\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Status, r.CompanyName, r.JobURL)
	}
	d.send(ctx, b.String())
}

func (d *Dispatcher) handleDebug(ctx context.Context) {
	cfg, err := d.cfg.GetConfig()
	if err != nil {
		d.send(ctx, fmt.Sprintf("Could not read config: %v", err))
		return
	}
	d.send(ctx, fmt.Sprintf("debug_mode: %t\nTo change this, edit debug_mode in config.json.", cfg.DebugMode))
}

const helpText = `Commands:
<url> - save a job posting URL
/apply - apply to the saved job URL
/status - show the last 10 applications
/debug - show the current debug_mode setting
/help - show this message`

// drainAnswers discards any stale queued replies (e.g. a user sending
// text between one apply finishing and the next starting) so the next
// ask_user call doesn't consume a leftover message.
func drainAnswers(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, text string) {
	if d.bot == nil {
		d.logger.Warn("send_without_bot", "text", text)
		return
	}
	if _, err := d.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: d.chatID, Text: text}); err != nil {
		d.logger.Error("send_message_failed", "error", err)
	}
}

// AskFreeText implements agent.ChatPort, and is the human-side of C1's
// ask_user tool. It sends question, then blocks until the next inbound
// chat message from the same chat arrives on d.answers, or ctx is
// cancelled.
func (d *Dispatcher) AskFreeText(ctx context.Context, question string) (string, error) {
	d.send(ctx, question)
	select {
	case reply := <-d.answers:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// AskChoice sends question with its options rendered as a numbered
// list, then resolves the reply per spec.md §4.5: an exact literal
// match picks that option; for a comma-separated reply, the
// intersection with the option set is returned; anything else
// defaults to option 0.
func (d *Dispatcher) AskChoice(ctx context.Context, question string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("ask_choice: no options provided")
	}
	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	d.send(ctx, b.String())

	select {
	case reply := <-d.answers:
		return resolveChoice(reply, options), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func resolveChoice(reply string, options []string) []string {
	trimmed := strings.TrimSpace(reply)
	for _, opt := range options {
		if trimmed == opt {
			return []string{opt}
		}
	}
	if strings.Contains(trimmed, ",") {
		parts := strings.Split(trimmed, ",")
		set := make(map[string]bool, len(options))
		for _, opt := range options {
			set[opt] = true
		}
		var picked []string
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if set[p] {
				picked = append(picked, p)
			}
		}
		if len(picked) > 0 {
			return picked
		}
	}
	return []string{options[0]}
}

// SendImageAndAskText implements the send_image_and_ask_text human
// channel operation: a photo alongside a free-text question (used for
// text-captcha screenshots per spec.md §4.3's captcha policy), blocking
// for the reply the same way AskFreeText does.
func (d *Dispatcher) SendImageAndAskText(ctx context.Context, png []byte, caption string) (string, error) {
	if d.bot == nil {
		return "", fmt.Errorf("send_image_and_ask_text: bot not attached")
	}
	params := &bot.SendPhotoParams{
		ChatID:  d.chatID,
		Photo:   &tgmodels.InputFileUpload{Filename: "screenshot.png", Data: bytes.NewReader(png)},
		Caption: caption,
	}
	if _, err := d.bot.SendPhoto(ctx, params); err != nil {
		return "", fmt.Errorf("send screenshot: %w", err)
	}
	select {
	case reply := <-d.answers:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendInfo implements agent.ChatPort's report_status side: a one-way
// informational message, no reply expected.
func (d *Dispatcher) SendInfo(ctx context.Context, message string) error {
	d.send(ctx, message)
	return nil
}

var _ agent.ChatPort = (*Dispatcher)(nil)
