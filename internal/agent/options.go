package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// StepObserver is notified after each tool call the loop executes. The
// application orchestrator uses it in debug mode to capture a
// per-step screenshot into the debug artifact store; it is nil
// (skipped) outside of debug mode.
type StepObserver func(ctx context.Context, step models.AgentStep)

// LoopConfig configures one ExecuteTask invocation: how many steps it
// may take and how long each tool call is given before it is treated as
// an infrastructure failure.
type LoopConfig struct {
	// MaxSteps bounds the loop; exceeding it without a done call
	// produces a failed AgentResult whose reason is "Agent exceeded
	// maximum steps (N)". Default: 50.
	MaxSteps int

	// ToolTimeout bounds a single tool call. Default: 30 seconds.
	ToolTimeout time.Duration

	// Logger receives step-by-step diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnStep, if set, is called synchronously after every executed tool
	// call (not after "done"). Nil is a valid no-op value.
	OnStep StepObserver
}

// DefaultLoopConfig returns the baseline loop configuration: 50 steps,
// a 30 second per-tool timeout.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxSteps:    50,
		ToolTimeout: 30 * time.Second,
		Logger:      slog.Default(),
	}
}

// mergeLoopConfig applies non-zero fields from override onto base,
// leaving base's defaults in place where override is unset.
func mergeLoopConfig(base LoopConfig, override LoopConfig) LoopConfig {
	merged := base
	if override.MaxSteps > 0 {
		merged.MaxSteps = override.MaxSteps
	}
	if override.ToolTimeout > 0 {
		merged.ToolTimeout = override.ToolTimeout
	}
	if override.Logger != nil {
		merged.Logger = override.Logger
	}
	if override.OnStep != nil {
		merged.OnStep = override.OnStep
	}
	return merged
}
