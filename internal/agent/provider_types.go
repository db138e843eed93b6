package agent

import (
	"context"

	"github.com/haasonsaas/nexus/pkg/models"
)

// LLMProvider is a synchronous tool-calling chat completion backend.
// Unlike a streaming provider, a single call returns the full response:
// the agent loop has no use for partial text, since every turn either
// ends in tool calls or a complete assistant message.
type LLMProvider interface {
	// CompleteWithTools sends the ordered message history and the
	// declared tool vocabulary, and returns either a batch of tool
	// calls, a text-only message, or both.
	CompleteWithTools(ctx context.Context, messages []models.LLMMessage, tools []models.ToolDefinition) (*models.LLMToolResponse, error)

	// Name returns the provider name, for logging.
	Name() string
}

// Tool is one declared action the agent loop can invoke through the
// registry. Execute never returns an error for a recoverable miss
// (element not found, ambiguous selector) — those are reported back to
// the model as a benign ToolResult so it can decide what to do next.
// Execute returns an error only for infrastructure failures (browser
// crashed, channel disconnected).
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]map[string]any
	Execute(ctx context.Context, args map[string]any) (*ToolResult, error)
}

// ToolResult is the string-shaped output fed back to the model.
type ToolResult struct {
	Content string
	IsError bool
}
