// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the analysis engine over HTTP. Batches of raw
// texts come in as JSON; structured analyses and a combined diagram
// artifact come back.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pdiddy/rst-engine/internal/analyze"
	"github.com/pdiddy/rst-engine/internal/rsttree"
	"github.com/pdiddy/rst-engine/pkg/types"
)

const maxRequestBody = 10 << 20

// Server handles analysis requests over HTTP.
type Server struct {
	backend analyze.Backend
	cfg     types.AnalysisConfig
	srvCfg  types.ServerConfig
	logger  *slog.Logger
}

// New builds a Server. The artifacts directory is created if missing.
func New(backend analyze.Backend, cfg types.AnalysisConfig, srvCfg types.ServerConfig, logger *slog.Logger) (*Server, error) {
	if srvCfg.ArtifactsDir == "" {
		srvCfg.ArtifactsDir = "artifacts"
	}
	if err := os.MkdirAll(srvCfg.ArtifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts directory: %w", err)
	}
	return &Server{
		backend: backend,
		cfg:     cfg,
		srvCfg:  srvCfg,
		logger:  logger,
	}, nil
}

// Router assembles the chi router with the shared middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(recoverPanic(s.logger))
	r.Use(logging(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/v1/analyze", s.handleAnalyze)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.srvCfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.srvCfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload types.Payload
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("decoding payload: %v", err))
		return
	}

	if len(payload.Texts) == 0 {
		writeJSONError(w, http.StatusBadRequest, "empty_batch", "payload contains no texts")
		return
	}
	if payload.LangHint != "" && !payload.LangHint.Valid() {
		writeJSONError(w, http.StatusBadRequest, "bad_lang_hint",
			fmt.Sprintf("unknown lang hint %q", payload.LangHint))
		return
	}
	if payload.Ruleset != "" && !payload.Ruleset.Valid() {
		writeJSONError(w, http.StatusBadRequest, "bad_ruleset",
			fmt.Sprintf("unknown ruleset %q", payload.Ruleset))
		return
	}

	cfg := s.cfg
	if payload.LangHint != "" {
		cfg.LangHint = payload.LangHint
	}
	if payload.Ruleset != "" {
		cfg.Ruleset = payload.Ruleset
	}

	docs := make([]types.Document, len(payload.Texts))
	for i, text := range payload.Texts {
		docs[i] = types.Document{
			Name: fmt.Sprintf("text_%d", i+1),
			Text: text,
		}
	}

	analyzer := analyze.New(s.backend, cfg)
	results, summary, err := analyzer.AnalyzeAll(r.Context(), docs, io.Discard)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}

	s.logger.Info("batch analyzed",
		slog.Int("analyzed", summary.Analyzed),
		slog.Int("failed", summary.Failed),
		slog.String("request_id", r.Header.Get(headerRequestID)),
	)

	if summary.Analyzed == 0 {
		writeJSONError(w, http.StatusBadGateway, "analysis_failed", "no text in the batch could be analyzed")
		return
	}

	resp := types.ServiceResponse{
		Results:   results,
		Artifacts: []types.Artifact{},
	}
	if path, err := s.writeForest(results); err != nil {
		s.logger.Error("writing forest artifact", slog.String("error", err.Error()))
	} else if path != "" {
		resp.Artifacts = append(resp.Artifacts, types.Artifact{Path: path})
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeForest renders every successful tree in the batch into one
// Graphviz file under the artifacts directory. Returns "" when the
// batch produced no trees.
func (s *Server) writeForest(results []types.Result) (string, error) {
	var trees []rsttree.ForestTree
	for _, res := range results {
		if res.ID == "" || res.Tree.Value == "" {
			continue
		}
		trees = append(trees, rsttree.ForestTree{
			Label:    res.Source,
			Brackets: res.Tree.Value,
		})
	}
	if len(trees) == 0 {
		return "", nil
	}

	path := filepath.Join(s.srvCfg.ArtifactsDir, fmt.Sprintf("forest_%s.dot", uuid.NewString()))
	dot := rsttree.ToForestDOT(trees)
	if err := os.WriteFile(path, []byte(dot+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
