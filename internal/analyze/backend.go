// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"fmt"
	"net/http"

	"github.com/pdiddy/rst-engine/pkg/types"
)

// NewBackend builds the backend named in the config. An empty backend
// name selects Anthropic.
func NewBackend(cfg types.AnalysisConfig) (Backend, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Backend {
	case "", types.BackendAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is required (ANTHROPIC_API_KEY or .secrets/anthropic-api-key)")
		}
		return NewAnthropicBackend(cfg.APIKey, cfg.Model, cfg.UserAgent, cfg.MaxRetries, client), nil

	case types.BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required (OPENAI_API_KEY or .secrets/openai-api-key)")
		}
		return NewOpenAIBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.UserAgent, cfg.MaxRetries, client), nil

	case types.BackendGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required (GEMINI_API_KEY or .secrets/gemini-api-key)")
		}
		return NewGeminiBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, client)

	default:
		return nil, fmt.Errorf("unknown backend %q (want anthropic, openai, or gemini)", cfg.Backend)
	}
}
