package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the agent loop and its collaborators.
var (
	// ErrMaxSteps indicates the loop exhausted task.MaxSteps without the
	// model calling done.
	ErrMaxSteps = errors.New("max steps exceeded")

	// ErrMalformedToolCall indicates the LLM returned tool call
	// arguments that could not be parsed. This is an unrecoverable
	// protocol error: it terminates the run as failed.
	ErrMalformedToolCall = errors.New("malformed tool call arguments")
)

// ToolErrorType categorizes a tool execution failure for the error
// taxonomy in SPEC_FULL.md §7.
type ToolErrorType string

const (
	// ToolErrorRecoverable is a browser miss (element not found,
	// ambiguous selector) reported back to the model as a benign
	// result string, not propagated as a Go error.
	ToolErrorRecoverable ToolErrorType = "recoverable"

	// ToolErrorInfrastructure is a network failure, browser crash, or
	// channel disconnect. It propagates to the orchestrator, which maps
	// it to a failed record.
	ToolErrorInfrastructure ToolErrorType = "infrastructure"

	// ToolErrorUnknown is an unclassified error, treated as infrastructure.
	ToolErrorUnknown ToolErrorType = "unknown"
)

// IsRetryable reports whether a tool error of this type is worth a caller
// retrying the same call. Only the recoverable class benefits: the model
// already sees the result and can choose to retry with different
// arguments.
func (t ToolErrorType) IsRetryable() bool {
	return t == ToolErrorRecoverable
}

// ToolError is a structured error from tool execution, classified for
// the error taxonomy.
type ToolError struct {
	Type     ToolErrorType
	ToolName string
	Message  string
	Cause    error
}

func (e *ToolError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[tool:%s]", e.Type))
	if e.ToolName != "" {
		parts = append(parts, e.ToolName)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewToolError wraps cause as an infrastructure-classified ToolError.
// Use WithType to mark it recoverable instead.
func NewToolError(toolName string, cause error) *ToolError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ToolError{
		ToolName: toolName,
		Cause:    cause,
		Message:  msg,
		Type:     ToolErrorInfrastructure,
	}
}

// WithType sets the error classification.
func (e *ToolError) WithType(t ToolErrorType) *ToolError {
	e.Type = t
	return e
}

// LoopError carries the phase the agent loop was in when an error
// occurred, for diagnostic logging.
type LoopError struct {
	Phase LoopPhase
	Step  int
	Cause error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("loop error at %s (step %d): %v", e.Phase, e.Step, e.Cause)
}

func (e *LoopError) Unwrap() error {
	return e.Cause
}

// LoopPhase is a distinct phase in the agent loop's single iteration.
type LoopPhase string

const (
	PhaseInit          LoopPhase = "init"
	PhaseLLMTurn       LoopPhase = "llm_turn"
	PhaseToolExecution LoopPhase = "tool_execution"
	PhaseComplete      LoopPhase = "complete"
)
