// Package providers adapts third-party LLM clients to agent.LLMProvider.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// requestTimeout bounds one chat/completions round trip.
const requestTimeout = 120 * time.Second

// OpenAIProvider implements agent.LLMProvider against any OpenAI-
// compatible chat/completions endpoint (OpenAI itself, or a compatible
// gateway reachable at a custom base URL).
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider. baseURL may be empty to use
// OpenAI's default endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name returns "openai", for logging.
func (p *OpenAIProvider) Name() string { return "openai" }

// CompleteWithTools sends one non-streaming chat/completions request
// carrying the full message history and the declared tool vocabulary,
// and parses the single returned choice into an LLMToolResponse.
func (p *OpenAIProvider) CompleteWithTools(ctx context.Context, messages []models.LLMMessage, tools []models.ToolDefinition) (*models.LLMToolResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:      p.model,
		Messages:   toOpenAIMessages(messages),
		Tools:      toOpenAITools(tools),
		ToolChoice: "auto",
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat completion: empty choices")
	}
	return parseResponse(resp.Choices[0])
}

func toOpenAIMessages(messages []models.LLMMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if len(m.ToolCalls) > 0 {
			msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				msg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		out = append(out, msg)
	}
	return out
}

// toOpenAITools applies the required-iff-no-default rule: a parameter
// with a "default" entry in its schema is optional; every other
// parameter is listed in the function's "required" array. The default
// marker itself is stripped before being sent, since it isn't part of
// JSON Schema.
func toOpenAITools(tools []models.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, td := range tools {
		properties := make(map[string]any, len(td.Parameters))
		required := make([]string, 0, len(td.Parameters))
		for name, schema := range td.Parameters {
			prop := make(map[string]any, len(schema))
			for k, v := range schema {
				if k == "default" {
					continue
				}
				prop[k] = v
			}
			properties[name] = prop
			if _, hasDefault := schema["default"]; !hasDefault {
				required = append(required, name)
			}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        td.Name,
				Description: td.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		}
	}
	return out
}

// parseResponse translates one chat-completions choice into an
// LLMToolResponse. A tool call whose Arguments string fails to parse as
// JSON is a protocol error per spec.md §4.2 ("malformed arguments
// surface as a protocol error that terminates the run as failed"), not
// a silently-empty argument map: the caller propagates this error up
// through the agent loop as a failed run.
func parseResponse(choice openai.ChatCompletionChoice) (*models.LLMToolResponse, error) {
	if len(choice.Message.ToolCalls) == 0 {
		return &models.LLMToolResponse{
			Text:         choice.Message.Content,
			FinishReason: string(choice.FinishReason),
		}, nil
	}

	calls := make([]models.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("tool call %q: %w: %v", tc.Function.Name, agent.ErrMalformedToolCall, err)
			}
		}
		calls = append(calls, models.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return &models.LLMToolResponse{
		ToolCalls:    calls,
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}, nil
}
