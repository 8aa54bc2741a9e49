// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rst-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rst-engine/internal/secrets"
	"github.com/pdiddy/rst-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// apiKeyFor resolves the credential for a backend: environment variable
// first, then the .secrets/ directory.
func apiKeyFor(backend types.BackendName) string {
	switch backend {
	case types.BackendOpenAI:
		return secretDefault("openai-api-key", os.Getenv("OPENAI_API_KEY"))
	case types.BackendGemini:
		return secretDefault("gemini-api-key", os.Getenv("GEMINI_API_KEY"))
	default:
		return secretDefault("anthropic-api-key", os.Getenv("ANTHROPIC_API_KEY"))
	}
}

// rootCmd is the base command for the rst-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "rst-engine",
	Short: "Rhetorical Structure Theory analysis backed by hosted language models",
	Long: `rst-engine segments texts into elementary discourse units, labels the
rhetorical relations between them, and builds the discourse tree, using a
hosted language model (Anthropic, OpenAI, or Gemini) for the linguistic
analysis. Results are written as JSON, plain-text reports, Graphviz
diagrams, and Newick trees.

Each stage is a subcommand: analyze runs texts through a model, serve
exposes the same pipeline over HTTP, and archive indexes past results
for full-text retrieval.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; missing files are fine.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./rst-engine.yaml or ~/.config/rst-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rst-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rst-engine"))
		}
	}

	viper.SetEnvPrefix("RST_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
