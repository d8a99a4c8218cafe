// Package gemini adapts the Google Generative Language REST API to the ai
// port. No module in the stack ships a Gemini client, so this speaks the
// v1beta generateContent wire format directly.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outlay/internal/ai"
)

const (
	defaultTimeout  = 25 * time.Second
	defaultEndpoint = "https://generativelanguage.googleapis.com"
)

type Client struct {
	apiKey   string
	model    string
	endpoint string
	httpc    *http.Client
}

// Ensure interface conformance
var _ ai.Generator = (*Client)(nil)

// New creates a Gemini client. The API key is injected by the caller, not
// read from the environment here. endpoint overrides the public API base
// URL and exists for tests; pass "" in production.
func New(apiKey, model, endpoint string, timeout time.Duration) *Client {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:   strings.TrimSpace(apiKey),
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpc:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "gemini" }

// Request and response shapes for the generateContent call. Only the fields
// this adapter reads are declared.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate posts the prompt to the generateContent endpoint. A missing key
// short-circuits to Unconfigured before any request is built, HTTP 429 maps
// to Quota, and every other error (including the call timeout) maps to
// Failure.
func (c *Client) Generate(ctx context.Context, prompt string) ai.Outcome {
	if c.apiKey == "" {
		return ai.Unconfigured("GEMINI_API_KEY not configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return ai.Failure(fmt.Sprintf("Gemini request encode error: %v", err))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ai.Failure(fmt.Sprintf("Gemini request build error: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header rather than a query parameter so it
	// cannot leak through request logs.
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ai.Failure(fmt.Sprintf("Gemini API error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ai.Quota("Gemini quota exceeded")
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ai.Failure(fmt.Sprintf("Gemini response read error: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ai.Failure(fmt.Sprintf("Gemini API error: %d %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ai.Failure(fmt.Sprintf("Gemini response parse error: %v", err))
	}
	text := firstCandidateText(parsed)
	if text == "" {
		return ai.Failure("Gemini response parse error: no candidate text")
	}
	return ai.Success(text)
}

func firstCandidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0].Text)
}
