package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ToolRegistry manages the fixed vocabulary of declared tools with
// thread-safe registration and lookup. Tools are registered by name and
// retrieved for execution during agent loop turns.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates a new empty tool registry ready for tool registration.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry by its name. If a tool with the
// same name already exists, it is replaced.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name and a boolean indicating if it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// MaxToolNameLength bounds tool names accepted by Execute, guarding
// against a malformed or adversarial tool call from the model.
const MaxToolNameLength = 256

// Execute runs a tool by name with the given arguments. A missing tool
// or oversized name produces a benign error result (IsError set) rather
// than a Go error, so the model sees it and the run continues.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &ToolResult{
			Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength),
			IsError: true,
		}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{
			Content: "tool not found: " + name,
			IsError: true,
		}, nil
	}
	return tool.Execute(ctx, args)
}

// Definitions returns the declared ToolDefinition for every registered
// tool, in the shape the LLM tool-calling client translates into the
// remote API's function-calling schema.
func (r *ToolRegistry) Definitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, models.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}
