package agent

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ToolExecConfig configures the per-call timeout applied around every
// tool invocation made by the agent loop.
type ToolExecConfig struct {
	// PerToolTimeout bounds a single tool call. Default: 30 seconds,
	// generous enough for a slow page load without letting a hung
	// browser call stall the whole run.
	PerToolTimeout time.Duration
}

// DefaultToolExecConfig returns the 30 second per-call timeout.
func DefaultToolExecConfig() ToolExecConfig {
	return ToolExecConfig{PerToolTimeout: 30 * time.Second}
}

// ToolExecutor wraps a ToolRegistry with a timeout and classifies the
// outcome into the ToolErrorType taxonomy. The agent loop calls one
// tool at a time: there is no concurrency to manage here.
type ToolExecutor struct {
	registry *ToolRegistry
	config   ToolExecConfig
}

// NewToolExecutor builds an executor over registry. A zero PerToolTimeout
// in config is replaced with the default.
func NewToolExecutor(registry *ToolRegistry, config ToolExecConfig) *ToolExecutor {
	if config.PerToolTimeout <= 0 {
		config.PerToolTimeout = 30 * time.Second
	}
	return &ToolExecutor{registry: registry, config: config}
}

// Execute runs call.Name through the registry under a timeout. A
// recoverable tool miss is returned as an IsError ToolResult, matching
// the registry's contract. A timeout or other infrastructure failure is
// returned as a *ToolError so the loop can terminate the run as failed.
func (e *ToolExecutor) Execute(ctx context.Context, call models.ToolCall) (*ToolResult, error) {
	toolCtx, cancel := context.WithTimeout(ctx, e.config.PerToolTimeout)
	defer cancel()

	result, err := e.registry.Execute(toolCtx, call.Name, call.Arguments)
	if err != nil {
		return nil, NewToolError(call.Name, err).WithType(ToolErrorInfrastructure)
	}
	if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
		return nil, NewToolError(call.Name, toolCtx.Err()).WithType(ToolErrorInfrastructure)
	}
	return result, nil
}
