// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rst-engine/pkg/types"
)

const modelAnswer = `{"edus": [{"id": 1, "text": "Hello.", "span": {"start": 0, "end": 6}}], "relations": [], "tree": {"format": "brackets", "value": "(Background (N 1))"}, "pragmatic_summary": "A greeting."}`

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt(Request{
		Text:     "Hello there.",
		LangHint: types.LangSpanish,
		Ruleset:  types.RulesetMinimal,
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Hello there.")
	assert.Contains(t, prompt, `"es"`)
	assert.Contains(t, prompt, "Elaboration, Background, Explanation, Sequence, Contrast, Evaluation, Summary")
	assert.NotContains(t, prompt, "Concession")
}

func TestRenderPromptExtendedVocabulary(t *testing.T) {
	prompt, err := renderPrompt(Request{Text: "x", Ruleset: types.RulesetExtended})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Concession")
	assert.Contains(t, prompt, "Circumstance")
	assert.NotContains(t, prompt, `The text is in`)
}

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		wantErr bool
	}{
		{"bare object", modelAnswer, false},
		{"json fence", "```json\n" + modelAnswer + "\n```", false},
		{"plain fence", "```\n" + modelAnswer + "\n```", false},
		{"leading prose", "Here is the analysis:\n" + modelAnswer, false},
		{"no object", "I cannot analyze this text.", true},
		{"broken json", `{"edus": [`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := decodeModelJSON(tt.answer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, raw.EDUs, 1)
			assert.Equal(t, "Hello.", raw.EDUs[0].Text)
			require.NotNil(t, raw.Tree)
			assert.Equal(t, types.TreeBrackets, raw.Tree.Format)
			assert.Equal(t, "A greeting.", raw.PragmaticSummary)
		})
	}
}

func TestAnthropicBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "rst-engine/test", r.Header.Get("User-Agent"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Rhetorical Structure Theory")

		resp := anthropicResponse{Content: []anthropicContent{{Type: "text", Text: modelAnswer}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	oldURL := anthropicAPIURL
	anthropicAPIURL = ts.URL
	defer func() { anthropicAPIURL = oldURL }()

	backend := NewAnthropicBackend("test-key", "claude-test", "rst-engine/test", 1, ts.Client())
	raw, err := backend.Analyze(context.Background(), Request{Text: "Hello.", Ruleset: types.RulesetExtended})
	require.NoError(t, err)
	require.Len(t, raw.EDUs, 1)
	assert.Equal(t, "A greeting.", raw.PragmaticSummary)
}

func TestAnthropicBackendAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "bad model"}}`)
	}))
	defer ts.Close()

	oldURL := anthropicAPIURL
	anthropicAPIURL = ts.URL
	defer func() { anthropicAPIURL = oldURL }()

	backend := NewAnthropicBackend("test-key", "", "", 1, ts.Client())
	_, err := backend.Analyze(context.Background(), Request{Text: "Hello."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestAnthropicBackendDefaults(t *testing.T) {
	backend := NewAnthropicBackend("k", "", "", 0, nil)
	assert.Equal(t, defaultAnthropicModel, backend.Model())
	assert.Equal(t, "anthropic", backend.Name())
}

func TestOpenAIBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		resp := openAIResponse{Choices: []openAIChoice{{Message: openAIMessage{Role: "assistant", Content: modelAnswer}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	backend := NewOpenAIBackend("test-key", "gpt-test", ts.URL+"/v1", "", 1, ts.Client())
	raw, err := backend.Analyze(context.Background(), Request{Text: "Hello.", Ruleset: types.RulesetExtended})
	require.NoError(t, err)
	require.Len(t, raw.EDUs, 1)
}

func TestGeminiBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "models/gemini-test:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"responseMimeType":"application/json"`)
		assert.Contains(t, string(body), "Rhetorical Structure Theory")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": modelAnswer}},
				}},
			},
		})
	}))
	defer ts.Close()

	backend, err := NewGeminiBackend("test-key", "gemini-test", ts.URL, ts.Client())
	require.NoError(t, err)

	raw, err := backend.Analyze(context.Background(), Request{Text: "Hello.", Ruleset: types.RulesetExtended})
	require.NoError(t, err)
	require.Len(t, raw.EDUs, 1)
	assert.Equal(t, "A greeting.", raw.PragmaticSummary)
}

func TestGeminiBackendEmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer ts.Close()

	backend, err := NewGeminiBackend("test-key", "", ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = backend.Analyze(context.Background(), Request{Text: "Hello."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}

func TestGeminiBackendDefaults(t *testing.T) {
	backend, err := NewGeminiBackend("k", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultGeminiModel, backend.Model())
	assert.Equal(t, "gemini", backend.Name())

	_, err = NewGeminiBackend("", "", "", nil)
	assert.Error(t, err)
}

func TestOpenAIBackendNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer ts.Close()

	backend := NewOpenAIBackend("test-key", "", ts.URL, "", 1, ts.Client())
	_, err := backend.Analyze(context.Background(), Request{Text: "Hello."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
