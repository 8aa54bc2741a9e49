// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/rst-engine/internal/httputil"
	"github.com/pdiddy/rst-engine/internal/normalize"
)

// anthropicAPIURL is the Anthropic Messages API endpoint. Package-level
// var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicBackend calls the Anthropic Messages API.
type AnthropicBackend struct {
	apiKey     string
	model      string
	userAgent  string
	maxRetries int
	client     *http.Client
}

// NewAnthropicBackend builds the backend. An empty model selects the
// default.
func NewAnthropicBackend(apiKey, model, userAgent string, maxRetries int, client *http.Client) *AnthropicBackend {
	if model == "" {
		model = defaultAnthropicModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &AnthropicBackend{
		apiKey:     apiKey,
		model:      model,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		client:     client,
	}
}

// Name identifies the backend in result metadata.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Model returns the model identifier in effect.
func (b *AnthropicBackend) Model() string { return b.model }

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage is a single message in the conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Messages API.
type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

// anthropicContent is a content block in the response.
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Analyze submits the analysis prompt for one text.
func (b *AnthropicBackend) Analyze(ctx context.Context, req Request) (normalize.RawResult, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := anthropicRequest{
		Model:     b.model,
		MaxTokens: 8192,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	if b.userAgent != "" {
		httpReq.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.client, httpReq, b.maxRetries)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return normalize.RawResult{}, fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, string(body))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return normalize.RawResult{}, fmt.Errorf("decoding Anthropic response: %w", err)
	}

	for _, block := range aResp.Content {
		if block.Type != "text" {
			continue
		}
		return decodeModelJSON(block.Text)
	}

	return normalize.RawResult{}, fmt.Errorf("no text content in Anthropic response")
}
