// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/pdiddy/rst-engine/internal/normalize"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiBackend calls the Gemini API through the GenAI SDK, asking for a
// JSON response directly.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend builds the backend. An empty model selects the
// default; a non-empty baseURL overrides the API endpoint (used in
// tests).
func NewGeminiBackend(apiKey, model, baseURL string, httpClient *http.Client) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Name identifies the backend in result metadata.
func (b *GeminiBackend) Name() string { return "gemini" }

// Model returns the model identifier in effect.
func (b *GeminiBackend) Model() string { return b.model }

// Analyze submits the analysis prompt for one text.
func (b *GeminiBackend) Analyze(ctx context.Context, req Request) (normalize.RawResult, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return normalize.RawResult{}, fmt.Errorf("calling Gemini API: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return normalize.RawResult{}, fmt.Errorf("Gemini API returned empty content")
	}

	return decodeModelJSON(text)
}
