// Package openai adapts the OpenAI chat-completions API to the ai port.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"outlay/internal/ai"

	gopenai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 25 * time.Second

const systemPrompt = "You are a concise financial coach for personal expenses."

type Client struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
}

// Ensure interface conformance
var _ ai.Generator = (*Client)(nil)

// New creates an OpenAI client. baseURL overrides the public API (for
// tests pass the fake server URL plus "/v1"); pass "" in production.
func New(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = gopenai.GPT3Dot5Turbo
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Generate(ctx context.Context, prompt string) ai.Outcome {
	if c.apiKey == "" {
		return ai.Unconfigured("OPENAI_API_KEY not configured")
	}

	cfg := gopenai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	client := gopenai.NewClientWithConfig(cfg)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   300,
		Temperature: 0.6,
	})
	if err != nil {
		if isQuotaErr(err) {
			return ai.Quota("OpenAI quota exceeded")
		}
		return ai.Failure(fmt.Sprintf("OpenAI API error: %v", err))
	}

	if len(resp.Choices) == 0 {
		return ai.Failure("OpenAI returned empty response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return ai.Failure("OpenAI returned empty response")
	}
	return ai.Success(text)
}

// isQuotaErr matches both the HTTP 429 status and the insufficient_quota
// error code, which OpenAI returns with other statuses as well.
func isQuotaErr(err error) bool {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "insufficient_quota")
}
