package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/nexus/pkg/models"
)

// AgentLoop runs one task to completion: decide, act, observe, repeat.
// It holds no per-run state between ExecuteTask calls, so a single
// AgentLoop can be reused across successive /apply invocations.
type AgentLoop struct {
	llm      LLMProvider
	registry *ToolRegistry
	executor *ToolExecutor
	config   LoopConfig
}

// NewAgentLoop wires an LLM provider and a populated tool registry into
// a loop. config is merged over DefaultLoopConfig.
func NewAgentLoop(llm LLMProvider, registry *ToolRegistry, config LoopConfig) *AgentLoop {
	merged := mergeLoopConfig(DefaultLoopConfig(), config)
	executor := NewToolExecutor(registry, ToolExecConfig{PerToolTimeout: merged.ToolTimeout})
	return &AgentLoop{llm: llm, registry: registry, executor: executor, config: merged}
}

// ExecuteTask drives the decide/act/observe cycle until the model calls
// done, the context is canceled, or task.MaxSteps is exhausted. A
// malformed tool call or an infrastructure-classified tool failure
// aborts the run with a *LoopError rather than returning a result: the
// caller (the application orchestrator) maps that to a failed record.
func (a *AgentLoop) ExecuteTask(ctx context.Context, task models.AgentTask) (*models.AgentResult, error) {
	maxSteps := task.MaxSteps
	if maxSteps <= 0 {
		maxSteps = a.config.MaxSteps
	}

	messages := []models.LLMMessage{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: buildInitialMessage(task)},
	}
	toolDefs := a.registry.Definitions()
	var steps []models.AgentStep

	for stepNum := 0; stepNum < maxSteps; stepNum++ {
		if err := ctx.Err(); err != nil {
			return nil, &LoopError{Phase: PhaseLLMTurn, Step: stepNum, Cause: err}
		}

		response, err := a.llm.CompleteWithTools(ctx, messages, toolDefs)
		if err != nil {
			return nil, &LoopError{Phase: PhaseLLMTurn, Step: stepNum, Cause: err}
		}

		if len(response.ToolCalls) == 0 {
			if response.Text != "" {
				messages = append(messages, models.LLMMessage{Role: "assistant", Content: response.Text})
			}
			continue
		}

		for _, tc := range response.ToolCalls {
			if tc.Name == "" {
				return nil, &LoopError{Phase: PhaseLLMTurn, Step: stepNum, Cause: ErrMalformedToolCall}
			}

			if tc.Name == "done" {
				status, _ := tc.Arguments["status"].(string)
				if status == "" {
					status = "success"
				}
				reason, _ := tc.Arguments["reason"].(string)
				return &models.AgentResult{
					Status:     status,
					Reason:     reason,
					Data:       tc.Arguments,
					StepsTaken: steps,
				}, nil
			}

			callID := fmt.Sprintf("call_%d_%s", stepNum, tc.Name)
			tc.ID = callID

			result, err := a.executor.Execute(ctx, tc)
			if err != nil {
				return nil, &LoopError{Phase: PhaseToolExecution, Step: stepNum, Cause: err}
			}

			step := models.AgentStep{
				StepNumber: stepNum,
				ToolName:   tc.Name,
				ToolArgs:   tc.Arguments,
				ToolResult: result.Content,
			}
			steps = append(steps, step)
			if a.config.OnStep != nil {
				a.config.OnStep(ctx, step)
			}

			a.config.Logger.Info("agent_step",
				"step", stepNum,
				"tool", tc.Name,
				"result_preview", previewString(result.Content, 120),
			)

			argsJSON, _ := json.Marshal(tc.Arguments)
			messages = append(messages, models.LLMMessage{
				Role: "assistant",
				ToolCalls: []models.LLMToolCall{{
					ID:        callID,
					Name:      tc.Name,
					Arguments: string(argsJSON),
				}},
			})
			messages = append(messages, models.LLMMessage{
				Role:       "tool",
				ToolCallID: callID,
				Content:    result.Content,
			})
		}
	}

	a.config.Logger.Warn("agent_max_steps_exceeded", "max_steps", maxSteps)
	return &models.AgentResult{
		Status:     "failed",
		Reason:     fmt.Sprintf("Agent exceeded maximum steps (%d)", maxSteps),
		StepsTaken: steps,
	}, nil
}

// buildInitialMessage renders the first user message. When task.Context
// carries a "profile" entry the message is the full apply-task prompt;
// otherwise task.Objective is passed through as-is, for non-apply uses
// of the loop (none exist yet, but the fallback keeps the loop generic).
func buildInitialMessage(task models.AgentTask) string {
	ctx := task.Context
	profileData, ok := ctx["profile"].(map[string]any)
	if !ok {
		return task.Objective
	}

	profile := models.UserProfile{
		FullName: stringField(profileData, "full_name"),
		Email:    stringField(profileData, "email"),
		Phone:    stringField(profileData, "phone"),
		Address:  stringField(profileData, "address"),
	}

	jobURL := stringFieldOr(ctx, "job_url", task.Objective)
	company := stringFieldOr(ctx, "company", "Unknown")
	jobTitle := stringField(ctx, "job_title")
	resumeAvailable, _ := ctx["resume_available"].(bool)
	coverLetterAvailable, _ := ctx["cover_letter_available"].(bool)

	return BuildApplyTaskPrompt(jobURL, company, jobTitle, profile, resumeAvailable, coverLetterAvailable, task.Debug)
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func stringFieldOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func previewString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
