// Package orchestrator implements the application orchestrator (C4):
// it takes one job URL, wires a fresh browser session, tool registry,
// and agent loop together, drives the loop to completion, and persists
// the outcome. This is the only place an agent-loop error becomes a
// terminal JobApplicationRecord.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/agent/providers"
	"github.com/haasonsaas/nexus/internal/artifacts"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/storage"
	"github.com/haasonsaas/nexus/internal/tools/browser"
	"github.com/haasonsaas/nexus/pkg/models"
)

const defaultMaxSteps = 50

// IDGenerator produces record and run identifiers. Separated from
// google/uuid's package-level functions so tests can inject
// deterministic IDs, grounded on the original's IdGeneratorPort.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the real IDGenerator, backed by github.com/google/uuid.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.New().String() }

// NewSessionFunc launches the single browser session for one apply
// attempt. Swappable in tests for a fake that never touches Playwright.
type NewSessionFunc func(opts browser.SessionConfig) (*browser.Session, error)

// NewLLMFunc builds the LLM provider for one apply attempt from the
// validated config. Swappable in tests for a scripted fake provider.
type NewLLMFunc func(cfg *models.AppConfig) agent.LLMProvider

// Orchestrator owns the collaborators needed to run one /apply attempt
// end to end: config, persistence, artifacts, and a browser session
// factory. It holds no per-run state, so one Orchestrator is reused
// across every /apply.
type Orchestrator struct {
	Config      *config.Provider
	Jobs        storage.JobApplicationRepository
	Credentials storage.CredentialRepository
	Artifacts   *artifacts.LocalStore
	Clock       Clock
	IDs         IDGenerator
	Logger      *slog.Logger
	SessionOpts browser.SessionConfig
	NewSession  NewSessionFunc
	NewLLM      NewLLMFunc
}

// New builds an Orchestrator with production defaults: a real clock, a
// real UUID generator, a real Playwright session per run, and a real
// OpenAI-compatible provider per run.
func New(cfg *config.Provider, jobs storage.JobApplicationRepository, credentials storage.CredentialRepository, store *artifacts.LocalStore) *Orchestrator {
	return &Orchestrator{
		Config:      cfg,
		Jobs:        jobs,
		Credentials: credentials,
		Artifacts:   store,
		Clock:       SystemClock{},
		IDs:         UUIDGenerator{},
		Logger:      slog.Default(),
		NewSession: func(opts browser.SessionConfig) (*browser.Session, error) {
			return browser.NewSession(opts)
		},
		NewLLM: func(appCfg *models.AppConfig) agent.LLMProvider {
			return providers.NewOpenAIProvider(appCfg.LLMKey, appCfg.LLMBaseURL, "")
		},
	}
}

// Apply runs one application attempt against jobURL, asking chat for
// anything the agent can't safely infer, and returns the persisted
// terminal record. It never returns an error for an application that
// merely failed — that's recorded as models.StatusFailed, and so is a
// browser that cannot be launched — only for infrastructure problems
// that prevented recording an outcome at all (config unreadable,
// database write failure).
func (o *Orchestrator) Apply(ctx context.Context, chat agent.ChatPort, jobURL string) (*models.JobApplicationRecord, error) {
	startedAt := o.Clock.Now()
	appCfg, err := o.Config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	profile, err := o.Config.GetProfile()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	resumeData, err := o.Config.GetResumeData()
	if err != nil {
		return nil, fmt.Errorf("load resume data: %w", err)
	}

	runID := o.IDs.NewID()
	record := &models.JobApplicationRecord{
		ID:          o.IDs.NewID(),
		CompanyName: models.CompanyNameFromURL(jobURL),
		JobTitle:    "",
		JobURL:      jobURL,
		Status:      models.StatusPending,
	}
	if appCfg.DebugMode {
		record.DebugRunID = &runID
	}
	if err := o.Jobs.Add(ctx, record); err != nil {
		return nil, fmt.Errorf("record pending application: %w", err)
	}

	session, err := o.NewSession(o.SessionOpts)
	if err != nil {
		record.Status = models.StatusFailed
		record.FailureReason = strPtr(fmt.Sprintf("launch browser: %v", err))
		o.Jobs.Update(ctx, record)
		if sendErr := chat.SendInfo(ctx, summaryMessage(record)); sendErr != nil {
			o.Logger.Warn("send_summary_failed", "run_id", runID, "error", sendErr)
		}
		return record, nil
	}
	defer session.Close()

	credSink := &credentialSink{
		repo:   o.Credentials,
		clock:  o.Clock,
		ids:    o.IDs,
		logger: o.Logger,
		portal: "unknown",
		tenant: tenantSlug(record.CompanyName),
		email:  profile.Email,
	}
	tools := browser.NewTools(session, chat, credSink, resumeData.PrimaryResumePath, firstOrEmpty(resumeData.CoverLetterPaths))
	registry := agent.NewToolRegistry()
	tools.Register(registry)

	runCtx := models.RunContext{RunID: runID, IsDebug: appCfg.DebugMode}

	llm := o.NewLLM(appCfg)
	loopCfg := agent.LoopConfig{Logger: o.Logger}
	if appCfg.DebugMode {
		if _, dirErr := o.Artifacts.EnsureRunDirectory(runCtx); dirErr != nil {
			o.Logger.Warn("ensure_run_directory_failed", "run_id", runID, "error", dirErr)
		}
		loopCfg.OnStep = func(stepCtx context.Context, step models.AgentStep) {
			png, shotErr := session.Page.Screenshot(playwright.PageScreenshotOptions{Type: playwright.ScreenshotTypePng})
			if shotErr != nil {
				o.Logger.Warn("debug_screenshot_failed", "run_id", runID, "step", step.StepNumber, "error", shotErr)
				return
			}
			stepName := fmt.Sprintf("step_%03d_%s", step.StepNumber, step.ToolName)
			if _, saveErr := o.Artifacts.SaveScreenshot(stepCtx, runCtx, stepName, png); saveErr != nil {
				o.Logger.Warn("debug_screenshot_save_failed", "run_id", runID, "step", step.StepNumber, "error", saveErr)
			}
		}
	}
	loop := agent.NewAgentLoop(llm, registry, loopCfg)

	task := models.AgentTask{
		Objective: jobURL,
		MaxSteps:  defaultMaxSteps,
		Debug:     appCfg.DebugMode,
		Context: map[string]any{
			"job_url":                 jobURL,
			"company":                 record.CompanyName,
			"job_title":               record.JobTitle,
			"resume_available":        resumeData.PrimaryResumePath != "" && isFile(resumeData.PrimaryResumePath),
			"cover_letter_available":  len(resumeData.CoverLetterPaths) > 0 && isFile(firstOrEmpty(resumeData.CoverLetterPaths)),
			"profile": map[string]any{
				"full_name": profile.FullName,
				"email":     profile.Email,
				"phone":     profile.Phone,
				"address":   profile.Address,
			},
		},
	}

	result, loopErr := loop.ExecuteTask(ctx, task)
	if loopErr != nil {
		o.Logger.Error("apply_failed", "run_id", runID, "job_url", jobURL, "error", loopErr)
		record.Status = models.StatusFailed
		record.FailureReason = strPtr(loopErr.Error())
	} else {
		record.Status = statusFromResult(result.Status)
		switch record.Status {
		case models.StatusApplied:
			appliedAt := o.Clock.Now()
			record.AppliedAt = &appliedAt
		case models.StatusSkipped:
			reason := result.Reason
			if reason == "" {
				reason = "Debug mode: final submit skipped"
			}
			record.FailureReason = strPtr(reason)
		case models.StatusFailed:
			reason := result.Reason
			if reason == "" {
				reason = "Agent reported failure"
			}
			record.FailureReason = strPtr(reason)
		}
	}

	if appCfg.DebugMode {
		meta := map[string]any{
			"run_id":         runID,
			"company":        record.CompanyName,
			"job_url":        jobURL,
			"mode":           "debug",
			"started_at":     startedAt,
			"ended_at":       o.Clock.Now(),
			"outcome":        string(record.Status),
			"status":         string(record.Status),
			"failure_reason": record.FailureReason,
		}
		if result != nil {
			meta["steps_taken"] = result.StepsTaken
		}
		if _, err := o.Artifacts.SaveRunMetadata(ctx, runCtx, meta); err != nil {
			o.Logger.Warn("save_run_metadata_failed", "run_id", runID, "error", err)
		}
	}

	if err := chat.SendInfo(ctx, summaryMessage(record)); err != nil {
		o.Logger.Warn("send_summary_failed", "run_id", runID, "error", err)
	}

	if err := o.Jobs.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("persist application outcome: %w", err)
	}
	reason := ""
	if record.FailureReason != nil {
		reason = *record.FailureReason
	}
	o.Logger.Info("apply_complete", "run_id", runID, "job_url", jobURL, "status", record.Status, "reason", reason)
	return record, nil
}

func statusFromResult(status string) models.JobApplicationStatus {
	switch strings.ToLower(status) {
	case "success", "applied":
		return models.StatusApplied
	case "skipped":
		return models.StatusSkipped
	default:
		return models.StatusFailed
	}
}

// tenantSlug derives the credential tenant key from a company name:
// lowercase, spaces replaced with dashes. Grounded on
// original_source/domain/services/account_flow.py's
// `job.company_name.lower().replace(" ", "-")`.
func tenantSlug(companyName string) string {
	return strings.ReplaceAll(strings.ToLower(companyName), " ", "-")
}

// credentialSink implements agent.CredentialSink for one apply run,
// scoped to the (portal, tenant, email) this run's job and profile
// resolve to. It is the bridge spec.md §8 scenario 2 requires between
// the agent's report_credential tool call and C7's credential upsert:
// the original's LLM-driven browser_agent.py has no equivalent, since
// credential persistence lived only in the deterministic
// domain/services/account_flow.py path this spec does not carry
// forward (DESIGN.md open question 2); report_credential plus this
// sink is what lets the LLM-driven variant still satisfy that scenario.
type credentialSink struct {
	repo   storage.CredentialRepository
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
	portal string
	tenant string
	email  string
}

func (c *credentialSink) ReportCredential(ctx context.Context, password string) error {
	if c.repo == nil {
		c.logger.Warn("credential_repository_not_configured", "portal", c.portal, "tenant", c.tenant, "email", c.email)
		return nil
	}
	now := c.clock.Now()
	return c.repo.Upsert(ctx, &models.AccountCredential{
		ID:        c.ids.NewID(),
		Portal:    c.portal,
		Tenant:    c.tenant,
		Email:     c.email,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func strPtr(s string) *string { return &s }

// summaryMessage renders the human-readable completion summary sent to
// chat: "Result: {status}\nCompany: {company}\nURL: {url}", with an
// optional trailing "Reason: {reason}" line when the record carries one.
// Grounded on original_source/infra/telegram/bot_listener.py's
// post-apply summary formatting.
func summaryMessage(record *models.JobApplicationRecord) string {
	msg := fmt.Sprintf("Result: %s\nCompany: %s\nURL: %s", record.Status, record.CompanyName, record.JobURL)
	if record.FailureReason != nil && *record.FailureReason != "" {
		msg += fmt.Sprintf("\nReason: %s", *record.FailureReason)
	}
	return msg
}
