package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/nexus/pkg/models"
)

// scriptedProvider replays one LLMToolResponse per call, in order, so a
// test can script an exact multi-turn conversation the way spec.md §8's
// literal end-to-end scenarios describe.
type scriptedProvider struct {
	responses []*models.LLMToolResponse
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) CompleteWithTools(ctx context.Context, messages []models.LLMMessage, tools []models.ToolDefinition) (*models.LLMToolResponse, error) {
	if p.calls >= len(p.responses) {
		return nil, errors.New("scriptedProvider: no more scripted responses")
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

// erroringProvider always fails, for testing LLM round-trip error propagation.
type erroringProvider struct{ err error }

func (p *erroringProvider) Name() string { return "erroring" }
func (p *erroringProvider) CompleteWithTools(ctx context.Context, messages []models.LLMMessage, tools []models.ToolDefinition) (*models.LLMToolResponse, error) {
	return nil, p.err
}

func doneCall(status, reason string) models.ToolCall {
	return models.ToolCall{Name: "done", Arguments: map[string]any{"status": status, "reason": reason}}
}

func toolCall(name string, args map[string]any) models.ToolCall {
	return models.ToolCall{Name: name, Arguments: args}
}

func newRegistryWithFakeTools() *ToolRegistry {
	registry := NewToolRegistry()
	registry.Register(&fakeExecTool{name: "goto", fn: func(ctx context.Context, args map[string]any) (*ToolResult, error) {
		return &ToolResult{Content: "Navigated"}, nil
	}})
	registry.Register(&fakeExecTool{name: "fill", fn: func(ctx context.Context, args map[string]any) (*ToolResult, error) {
		return &ToolResult{Content: "Filled"}, nil
	}})
	registry.Register(&fakeExecTool{name: "click", fn: func(ctx context.Context, args map[string]any) (*ToolResult, error) {
		return &ToolResult{Content: "Clicked"}, nil
	}})
	registry.Register(&fakeExecTool{name: "upload_file", fn: func(ctx context.Context, args map[string]any) (*ToolResult, error) {
		return &ToolResult{Content: "Uploaded"}, nil
	}})
	return registry
}

func TestExecuteTask_GuestApplyHappyPath(t *testing.T) {
	registry := newRegistryWithFakeTools()
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{toolCall("goto", map[string]any{"url": "https://acme.test/jobs/1"})}},
		{ToolCalls: []models.ToolCall{toolCall("fill", map[string]any{"field": "full_name", "value": "Ada"})}},
		{ToolCalls: []models.ToolCall{toolCall("fill", map[string]any{"field": "email", "value": "ada@x.test"})}},
		{ToolCalls: []models.ToolCall{toolCall("upload_file", map[string]any{"field": "resume", "file_type": "resume"})}},
		{ToolCalls: []models.ToolCall{toolCall("click", map[string]any{"target": "Apply"})}},
		{ToolCalls: []models.ToolCall{doneCall("success", "")}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	result, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if result.Status != "success" {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if len(result.StepsTaken) != 5 {
		t.Fatalf("StepsTaken = %d, want 5", len(result.StepsTaken))
	}
	for i, step := range result.StepsTaken {
		if step.StepNumber != i {
			t.Errorf("StepsTaken[%d].StepNumber = %d, want %d", i, step.StepNumber, i)
		}
	}
}

func TestExecuteTask_ImageCaptchaTerminatesFailed(t *testing.T) {
	registry := newRegistryWithFakeTools()
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{doneCall("failed", "Image captcha prevents automation")}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	result, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if result.Status != "failed" {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	if !contains(result.Reason, "Image captcha") {
		t.Errorf("Reason = %q, should mention image captcha", result.Reason)
	}
	if len(result.StepsTaken) != 0 {
		t.Errorf("StepsTaken = %d, want 0 (no tool steps before the terminal done)", len(result.StepsTaken))
	}
}

func TestExecuteTask_DebugModeSkipsFinalSubmit(t *testing.T) {
	registry := newRegistryWithFakeTools()
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{toolCall("click", map[string]any{"target": "Next"})}},
		{ToolCalls: []models.ToolCall{toolCall("click", map[string]any{"target": "Next"})}},
		{ToolCalls: []models.ToolCall{doneCall("skipped", "Debug mode: final submit skipped")}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	result, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50, Debug: true})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if result.Status != "skipped" {
		t.Errorf("Status = %q, want skipped", result.Status)
	}
	if len(result.StepsTaken) != 2 {
		t.Fatalf("StepsTaken = %d, want 2 intermediate Next clicks", len(result.StepsTaken))
	}
}

func TestExecuteTask_StepBudgetExhaustionFails(t *testing.T) {
	registry := newRegistryWithFakeTools()
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{toolCall("click", map[string]any{"target": "Next"})}},
		{ToolCalls: []models.ToolCall{toolCall("click", map[string]any{"target": "Next"})}},
		{ToolCalls: []models.ToolCall{toolCall("click", map[string]any{"target": "Next"})}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	result, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 3})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if result.Status != "failed" {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	if !contains(result.Reason, "maximum steps") {
		t.Errorf("Reason = %q, should mention maximum steps", result.Reason)
	}
	if len(result.StepsTaken) != 3 {
		t.Errorf("StepsTaken = %d, want 3", len(result.StepsTaken))
	}
}

func TestExecuteTask_OnStepObservesExecutedSteps(t *testing.T) {
	var seenIDs []string
	registry := NewToolRegistry()
	registry.Register(&fakeExecTool{name: "click", fn: func(ctx context.Context, args map[string]any) (*ToolResult, error) {
		return &ToolResult{Content: "ok"}, nil
	}})
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{toolCall("click", nil)}},
		{ToolCalls: []models.ToolCall{doneCall("success", "")}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{
		OnStep: func(ctx context.Context, step models.AgentStep) {
			seenIDs = append(seenIDs, step.ToolName)
		},
	})

	if _, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50}); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if len(seenIDs) != 1 || seenIDs[0] != "click" {
		t.Errorf("OnStep should have observed exactly one click step, got %v", seenIDs)
	}
}

func TestExecuteTask_EmptyToolNameIsMalformed(t *testing.T) {
	registry := NewToolRegistry()
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{{Name: "", Arguments: nil}}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	_, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50})
	if err == nil {
		t.Fatal("ExecuteTask() should error on a tool call with an empty name")
	}
	var loopErr *LoopError
	if !errors.As(err, &loopErr) {
		t.Fatalf("error should be a *LoopError, got %T", err)
	}
	if !errors.Is(loopErr, ErrMalformedToolCall) {
		t.Error("LoopError should unwrap to ErrMalformedToolCall")
	}
}

func TestExecuteTask_LLMErrorTerminatesRun(t *testing.T) {
	registry := NewToolRegistry()
	provider := &erroringProvider{err: errors.New("connection reset")}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	_, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50})
	if err == nil {
		t.Fatal("ExecuteTask() should propagate an LLM round-trip error")
	}
	var loopErr *LoopError
	if !errors.As(err, &loopErr) || loopErr.Phase != PhaseLLMTurn {
		t.Fatalf("error should be a *LoopError in PhaseLLMTurn, got %v", err)
	}
}

func TestExecuteTask_InfrastructureToolFailureTerminatesRun(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&fakeExecTool{name: "goto", fn: func(ctx context.Context, args map[string]any) (*ToolResult, error) {
		return nil, NewToolError("goto", errors.New("browser crashed")).WithType(ToolErrorInfrastructure)
	}})
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{ToolCalls: []models.ToolCall{toolCall("goto", map[string]any{"url": "https://acme.test"})}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	_, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50})
	if err == nil {
		t.Fatal("ExecuteTask() should propagate an infrastructure tool failure")
	}
	var loopErr *LoopError
	if !errors.As(err, &loopErr) || loopErr.Phase != PhaseToolExecution {
		t.Fatalf("error should be a *LoopError in PhaseToolExecution, got %v", err)
	}
}

func TestExecuteTask_NoToolCallsContinuesConversation(t *testing.T) {
	registry := NewToolRegistry()
	provider := &scriptedProvider{responses: []*models.LLMToolResponse{
		{Text: "Let me think about this."},
		{ToolCalls: []models.ToolCall{doneCall("success", "")}},
	}}
	loop := NewAgentLoop(provider, registry, LoopConfig{})

	result, err := loop.ExecuteTask(context.Background(), models.AgentTask{Objective: "apply", MaxSteps: 50})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if result.Status != "success" {
		t.Errorf("Status = %q, want success", result.Status)
	}
}
