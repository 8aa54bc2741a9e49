// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rst-engine/internal/analyze"
	"github.com/pdiddy/rst-engine/internal/server"
	"github.com/pdiddy/rst-engine/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis pipeline over HTTP",
	Long: `Serve runs an HTTP service exposing the analysis pipeline. POST a JSON
payload of texts to /v1/analyze and get back structured results plus a
combined Graphviz forest artifact. GET /healthz reports liveness.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := analysisConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	backend, err := analyze.NewBackend(cfg)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	srv, err := server.New(backend, cfg, types.ServerConfig{
		Addr:         addr,
		ArtifactsDir: artifactsDir,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("artifacts-dir", "artifacts", "directory for generated diagram artifacts")
	serveCmd.Flags().String("lang-hint", "", "default language hint: es, en, or auto")
	serveCmd.Flags().Int("max-workers", 4, "maximum concurrent model calls per batch")
	serveCmd.Flags().String("ruleset", "", "default relation vocabulary: minimal or extended")
	serveCmd.Flags().String("backend", "", "model backend: anthropic, openai, or gemini")
	serveCmd.Flags().String("model", "", "model identifier (backend default when empty)")
	serveCmd.Flags().Duration("timeout", 2*time.Minute, "per-request HTTP timeout to the model")

	rootCmd.AddCommand(serveCmd)
}
