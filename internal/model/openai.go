package model

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenRouter OpenAI-compatible endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is used when no model name is configured.
const DefaultModel = "openai/gpt-4o-mini"

// OpenAIConfig configures an OpenAI-compatible backend.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the transport; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// OpenAI calls a chat-completions endpoint and forces a single tool call.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if oc.BaseURL == "" {
		oc.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), model: name, timeout: cfg.Timeout}
}

// Name returns the backend and model name.
func (o *OpenAI) Name() string { return "openai:" + o.model }

// Complete sends the request and returns the tool call arguments.
func (o *OpenAI) Complete(ctx context.Context, req Request) ([]byte, error) {
	ctx, cancel := withDefaultTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  req.Tool.Parameters,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.Tool.Name},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoOutput
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == req.Tool.Name {
			return []byte(call.Function.Arguments), nil
		}
	}
	// some providers ignore tool_choice and answer in content
	if msg.Content != "" {
		return []byte(msg.Content), nil
	}
	return nil, ErrNoOutput
}
