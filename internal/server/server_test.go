// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/rst-engine/internal/analyze"
	"github.com/pdiddy/rst-engine/internal/normalize"
	"github.com/pdiddy/rst-engine/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubBackend returns a canned analysis per request.
type stubBackend struct {
	answer func(text string) (normalize.RawResult, error)
}

func (b *stubBackend) Name() string  { return "stub" }
func (b *stubBackend) Model() string { return "stub-model" }

func (b *stubBackend) Analyze(_ context.Context, req analyze.Request) (normalize.RawResult, error) {
	return b.answer(req.Text)
}

// splitBackend segments on sentence boundaries and links units pairwise.
func splitBackend() *stubBackend {
	return &stubBackend{answer: func(text string) (normalize.RawResult, error) {
		var raw normalize.RawResult
		parts := strings.SplitAfter(text, ". ")
		id := 0
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			id++
			raw.EDUs = append(raw.EDUs, normalize.RawEDU{ID: id, Text: p})
		}
		if id >= 2 {
			raw.Relations = append(raw.Relations, normalize.RawRelation{
				Type:       "Cause",
				Nucleus:    types.RoleChunk{EDUIDs: []int{2}},
				Satellite:  types.RoleChunk{EDUIDs: []int{1}},
				Confidence: 0.9,
			})
		}
		raw.PragmaticSummary = "Things happened."
		return raw, nil
	}}
}

func newTestServer(t *testing.T, backend analyze.Backend) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(backend, types.AnalysisConfig{
		Ruleset:    types.RulesetExtended,
		LangHint:   types.LangAuto,
		MaxWorkers: 2,
	}, types.ServerConfig{
		ArtifactsDir: t.TempDir(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, splitBackend())

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAnalyzeBatch(t *testing.T) {
	_, ts := newTestServer(t, splitBackend())

	resp := postJSON(t, ts, "/v1/analyze", types.Payload{
		Texts: []string{
			"The river rose overnight. The town was evacuated.",
			"El rio subio durante la noche.",
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sr types.ServiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	require.Len(t, sr.Results, 2)

	first := sr.Results[0]
	assert.Equal(t, "text_1", first.Source)
	assert.Equal(t, types.LangEnglish, first.Lang)
	require.Len(t, first.EDUs, 2)
	assert.Equal(t, "The river rose overnight.", first.EDUs[0].Text)
	require.Len(t, first.Relations, 1)
	assert.Equal(t, types.RelCause, first.Relations[0].Type)

	second := sr.Results[1]
	assert.Equal(t, "text_2", second.Source)
	assert.Equal(t, types.LangSpanish, second.Lang)

	require.Len(t, sr.Artifacts, 1)
	dot, err := os.ReadFile(sr.Artifacts[0].Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dot), "digraph Forest {"))
	assert.Contains(t, string(dot), `label="text_1";`)
	assert.Contains(t, string(dot), `label="text_2";`)
}

func TestAnalyzeRulesetOverride(t *testing.T) {
	_, ts := newTestServer(t, splitBackend())

	resp := postJSON(t, ts, "/v1/analyze", types.Payload{
		Texts:   []string{"The river rose overnight. The town was evacuated."},
		Ruleset: types.RulesetMinimal,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sr types.ServiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	require.Len(t, sr.Results, 1)

	// Cause is not part of the minimal vocabulary, so the relation is
	// dropped with a warning.
	assert.Empty(t, sr.Results[0].Relations)
	assert.NotEmpty(t, sr.Results[0].Metadata.Warnings)
}

func TestAnalyzeValidation(t *testing.T) {
	_, ts := newTestServer(t, splitBackend())

	cases := []struct {
		name string
		body string
		code string
	}{
		{"empty batch", `{"texts": []}`, "empty_batch"},
		{"bad json", `{not json`, "bad_request"},
		{"bad ruleset", `{"texts": ["hi"], "ruleset": "verbose"}`, "bad_ruleset"},
		{"bad lang hint", `{"texts": ["hi"], "lang_hint": "fr"}`, "bad_lang_hint"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := ts.Client().Post(ts.URL+"/v1/analyze", "application/json",
				strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var env errorEnvelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestAnalyzeAllTextsFail(t *testing.T) {
	// A backend that returns no units makes every text fail
	// normalization without triggering retries.
	backend := &stubBackend{answer: func(string) (normalize.RawResult, error) {
		return normalize.RawResult{}, nil
	}}
	_, ts := newTestServer(t, backend)

	resp := postJSON(t, ts, "/v1/analyze", types.Payload{Texts: []string{"One.", "Two."}})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var env errorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "analysis_failed", env.Error.Code)
}

func TestAnalyzePartialFailureKeepsSlots(t *testing.T) {
	backend := &stubBackend{answer: func(text string) (normalize.RawResult, error) {
		if strings.HasPrefix(text, "bad") {
			return normalize.RawResult{}, nil
		}
		return splitBackend().answer(text)
	}}
	_, ts := newTestServer(t, backend)

	resp := postJSON(t, ts, "/v1/analyze", types.Payload{
		Texts: []string{"bad input", "The river rose overnight."},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sr types.ServiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	require.Len(t, sr.Results, 2)
	assert.Empty(t, sr.Results[0].ID)
	assert.Equal(t, "text_2", sr.Results[1].Source)
}
