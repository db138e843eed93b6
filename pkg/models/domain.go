// Package models holds the data types shared across the agent loop,
// the orchestrator, the chat dispatcher, persistence, and config layers.
package models

import (
	"net/url"
	"strings"
	"time"
)

// JobApplicationStatus is the lifecycle state of a JobApplicationRecord.
type JobApplicationStatus string

const (
	StatusPending JobApplicationStatus = "pending"
	StatusApplied JobApplicationStatus = "applied"
	StatusFailed  JobApplicationStatus = "failed"
	StatusSkipped JobApplicationStatus = "skipped"
)

// UserProfile carries the static identity fields the agent may use
// directly, without asking the human.
type UserProfile struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// ResumeData references the documents available to attach to an
// application.
type ResumeData struct {
	PrimaryResumePath     string   `json:"primary_resume_path"`
	CoverLetterPaths      []string `json:"cover_letter_paths,omitempty"`
	AdditionalResumePaths []string `json:"additional_resume_paths,omitempty"`
	Skills                []string `json:"skills,omitempty"`
}

// JobPostingRef identifies the job posting an application targets.
type JobPostingRef struct {
	CompanyName string `json:"company_name"`
	JobTitle    string `json:"job_title"`
	JobURL      string `json:"job_url"`
	BoardType   string `json:"board_type,omitempty"`
}

// JobApplicationRecord is the persisted outcome of one apply attempt.
// It is created pending and mutated exactly once to a terminal status.
type JobApplicationRecord struct {
	ID            string               `json:"id"`
	CompanyName   string               `json:"company_name"`
	JobTitle      string               `json:"job_title"`
	JobURL        string               `json:"job_url"`
	Status        JobApplicationStatus `json:"status"`
	AppliedAt     *time.Time           `json:"applied_at,omitempty"`
	FailureReason *string              `json:"failure_reason,omitempty"`
	DebugRunID    *string              `json:"debug_run_id,omitempty"`
}

// CompanyNameFromURL derives a human-readable company name from a job
// posting URL's hostname: strip a leading "www.", take the first
// label, and title-case it. Grounded on
// original_source/infra/telegram/bot_listener.py's _extract_company_name.
// The single implementation here is shared by the orchestrator (for
// the persisted record) and the chat dispatcher (for its panic-recovery
// fallback message), so the two never silently diverge.
func CompanyNameFromURL(jobURL string) string {
	parsed, err := url.Parse(jobURL)
	if err != nil || parsed.Hostname() == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "Unknown"
	}
	return titleCase(parts[0])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// AccountCredential is a job-board account keyed by (portal, tenant, email).
// Passwords are stored as plain text; see SPEC_FULL.md §9 for the
// accepted limitation this carries forward.
type AccountCredential struct {
	ID        string    `json:"id"`
	Portal    string    `json:"portal"`
	Tenant    string    `json:"tenant"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunContext scopes one orchestrator invocation: its run id, whether it
// is running in debug mode, and an optional override of the debug log
// directory.
type RunContext struct {
	RunID        string `json:"run_id"`
	IsDebug      bool   `json:"is_debug"`
	LogDirectory string `json:"log_directory,omitempty"`
}

// ToolDefinition declares one tool's name, description, and parameter
// schema. A parameter schema without a "default" key is required.
type ToolDefinition struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Parameters  map[string]map[string]any `json:"parameters"`
}

// ToolCall is one action the model instructs the system to perform. ID
// follows the call_{step}_{name} format so each step's tool result can
// be correlated back to the assistant turn that requested it.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// AgentStep is one recorded tool execution within a run.
type AgentStep struct {
	StepNumber int            `json:"step_number"`
	ToolName   string         `json:"tool_name"`
	ToolArgs   map[string]any `json:"tool_args"`
	ToolResult string         `json:"tool_result"`
}

// AgentTask is the immutable input to one agent loop invocation.
type AgentTask struct {
	Objective string         `json:"objective"`
	Context   map[string]any `json:"context"`
	MaxSteps  int            `json:"max_steps"`
	Debug     bool           `json:"debug"`
}

// AgentResult is the single outcome produced by one agent loop run.
type AgentResult struct {
	Status     string         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	StepsTaken []AgentStep    `json:"steps_taken"`
}

// LLMMessage is one entry in the ordered conversation history passed to
// the LLM tool-calling client.
type LLMMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []LLMToolCall  `json:"tool_calls,omitempty"`
}

// LLMToolCall is the wire-level shape of one assistant tool invocation,
// carrying the JSON-encoded arguments the way the chat-completions API
// represents them.
type LLMToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// LLMToolResponse is the result of one LLM round-trip: either a batch of
// tool calls, free text, or both.
type LLMToolResponse struct {
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Text         string     `json:"text,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// AppConfig is the validated runtime configuration: bot credentials,
// LLM credentials, and the debug flag.
type AppConfig struct {
	BotToken    string `json:"bot_token"`
	ChatID      int64  `json:"chat_id"`
	LLMKey      string `json:"llm_key"`
	LLMBaseURL  string `json:"llm_base_url"`
	DebugMode   bool   `json:"debug_mode"`
}

// ConnectivityResult is the outcome of C6's live connectivity check.
type ConnectivityResult struct {
	OK          bool     `json:"ok"`
	Errors      []string `json:"errors,omitempty"`
	BotUsername string   `json:"bot_username,omitempty"`
}

// FreeTextQuestionResponse is the human's answer to an ask_user question.
type FreeTextQuestionResponse struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// ChoiceQuestionResponse is the human's answer to a multiple-choice
// question.
type ChoiceQuestionResponse struct {
	QuestionID      string   `json:"question_id"`
	SelectedOptions []string `json:"selected_options"`
}
