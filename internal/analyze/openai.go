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

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIBackend calls an OpenAI-compatible chat completions API. Setting
// a base URL points it at gateways such as OpenRouter.
type OpenAIBackend struct {
	apiKey     string
	model      string
	baseURL    string
	userAgent  string
	maxRetries int
	client     *http.Client
}

// NewOpenAIBackend builds the backend. Empty model and base URL select
// the defaults.
func NewOpenAIBackend(apiKey, model, baseURL, userAgent string, maxRetries int, client *http.Client) *OpenAIBackend {
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIBackend{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		client:     client,
	}
}

// Name identifies the backend in result metadata.
func (b *OpenAIBackend) Name() string { return "openai" }

// Model returns the model identifier in effect.
func (b *OpenAIBackend) Model() string { return b.model }

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

// Analyze submits the analysis prompt for one text.
func (b *OpenAIBackend) Analyze(ctx context.Context, req Request) (normalize.RawResult, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := openAIRequest{
		Model: b.model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	if b.userAgent != "" {
		httpReq.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.client, httpReq, b.maxRetries)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("calling chat completions API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return normalize.RawResult{}, fmt.Errorf("chat completions API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return normalize.RawResult{}, fmt.Errorf("decoding chat completions response: %w", err)
	}

	if len(oResp.Choices) == 0 {
		return normalize.RawResult{}, fmt.Errorf("chat completions API returned no choices")
	}

	return decodeModelJSON(oResp.Choices[0].Message.Content)
}
