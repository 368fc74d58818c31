// Package judge defines the provider-agnostic judge function used by
// LLM-backed graders and judge-only re-grading, plus an
// OpenAI-compatible implementation.
package judge

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// Message is a single chat message sent to the judge.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Options tunes a single judge call. Zero values fall back to the
// implementation's defaults.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Response is what a judge call produces.
type Response struct {
	Text       string
	TokenUsage *eval.TokenUsage
	Cost       float64
	ModelID    string
}

// Func is the judge function signature. Implementations are
// user-supplied and provider-agnostic; a nil Func means no judge is
// configured.
type Func func(ctx context.Context, messages []Message, opts *Options) (*Response, error)

// OpenAIClient implements the judge function against any
// OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature *float64
}

// NewOpenAIClient creates an OpenAI-compatible judge client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	cfg := &clientConfig{
		baseURL: "https://api.openai.com/v1",
		apiKey:  "not-needed",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	config.BaseURL = cfg.baseURL

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.model,
		temperature: cfg.temperature,
	}
}

// Complete sends the messages as a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error) {
	req := openai.ChatCompletionRequest{Model: c.model}
	if c.temperature != nil {
		req.Temperature = float32(*c.temperature)
	}
	if opts != nil {
		if opts.Model != "" {
			req.Model = opts.Model
		}
		if opts.Temperature != nil {
			req.Temperature = float32(*opts.Temperature)
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
	}

	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("judge completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no choices")
	}

	return &Response{
		Text:    resp.Choices[0].Message.Content,
		ModelID: resp.Model,
		TokenUsage: &eval.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Func adapts the client to the judge function signature.
func (c *OpenAIClient) Func() Func {
	return c.Complete
}
