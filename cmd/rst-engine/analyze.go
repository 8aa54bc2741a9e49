// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rst-engine/internal/analyze"
	"github.com/pdiddy/rst-engine/internal/input"
	"github.com/pdiddy/rst-engine/internal/output"
	"github.com/pdiddy/rst-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze texts into discourse units, relations, and trees",
	Long: `Analyze reads texts from a file, a directory, a list file, or stdin,
sends each to the configured model backend, and writes structured results
to the output directory: JSON, a plain-text report, and optionally a
Graphviz diagram and a Newick tree, plus a batch manifest.

Inputs may be plain text, Markdown, HTML, PDF, or DOCX; markup is
stripped before analysis.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("in")
	docs, err := input.Load(in)
	if err != nil {
		return err
	}

	cfg, err := analysisConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	backend, err := analyze.NewBackend(cfg)
	if err != nil {
		return err
	}

	analyzer := analyze.New(backend, cfg)
	results, summary, err := analyzer.AnalyzeAll(cmd.Context(), docs, os.Stderr)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	emitJSON, _ := cmd.Flags().GetBool("json")
	emitText, _ := cmd.Flags().GetBool("txt")
	emitDOT, _ := cmd.Flags().GetBool("diagram")
	emitNewick, _ := cmd.Flags().GetBool("newick")

	writer := output.New(types.OutputConfig{
		OutDir:     outDir,
		EmitJSON:   emitJSON,
		EmitText:   emitText,
		EmitDOT:    emitDOT,
		EmitNewick: emitNewick,
	})
	if _, err := writer.WriteAll(results, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	fmt.Printf("analyzed %d texts\n", summary.Analyzed)
	if summary.HasFailures() {
		return fmt.Errorf("%d text(s) failed analysis", summary.Failed)
	}
	return nil
}

// analysisConfigFromFlags resolves the model configuration from flags,
// the viper config file, and the environment, in that order.
func analysisConfigFromFlags(cmd *cobra.Command) (types.AnalysisConfig, error) {
	backendName, _ := cmd.Flags().GetString("backend")
	if backendName == "" {
		backendName = viper.GetString("backend")
	}
	if backendName == "" {
		backendName = string(types.BackendAnthropic)
	}
	backend := types.BackendName(backendName)

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("model")
	}

	ruleset, _ := cmd.Flags().GetString("ruleset")
	if ruleset == "" {
		ruleset = viper.GetString("ruleset")
	}
	if ruleset == "" {
		ruleset = string(types.RulesetExtended)
	}
	if !types.Ruleset(ruleset).Valid() {
		return types.AnalysisConfig{}, fmt.Errorf("unknown ruleset %q: use minimal or extended", ruleset)
	}

	langHint, _ := cmd.Flags().GetString("lang-hint")
	if langHint == "" {
		langHint = string(types.LangAuto)
	}
	if !types.Lang(langHint).Valid() {
		return types.AnalysisConfig{}, fmt.Errorf("unknown lang hint %q: use es, en, or auto", langHint)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	maxWorkers, _ := cmd.Flags().GetInt("max-workers")

	cfg := types.AnalysisConfig{
		AIConfig: types.AIConfig{
			Model:      model,
			APIKey:     apiKeyFor(backend),
			BaseURL:    viper.GetString("base_url"),
			MaxRetries: viper.GetInt("max_retries"),
		},
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: "rst-engine/" + version,
		},
		Backend:    backend,
		Ruleset:    types.Ruleset(ruleset),
		LangHint:   types.Lang(langHint),
		MaxWorkers: maxWorkers,
	}

	return cfg, nil
}

func init() {
	analyzeCmd.Flags().String("in", "", "input: file, directory, list file, or - for stdin")
	analyzeCmd.Flags().String("out", "out", "directory for result files")
	analyzeCmd.Flags().Bool("json", true, "write JSON result files")
	analyzeCmd.Flags().Bool("txt", true, "write plain-text reports")
	analyzeCmd.Flags().Bool("diagram", false, "write Graphviz diagram files")
	analyzeCmd.Flags().Bool("newick", false, "write Newick tree files")
	analyzeCmd.Flags().String("lang-hint", "", "language hint: es, en, or auto")
	analyzeCmd.Flags().Int("max-workers", 4, "maximum concurrent model calls")
	analyzeCmd.Flags().String("ruleset", "", "relation vocabulary: minimal or extended")
	analyzeCmd.Flags().String("backend", "", "model backend: anthropic, openai, or gemini")
	analyzeCmd.Flags().String("model", "", "model identifier (backend default when empty)")
	analyzeCmd.Flags().Duration("timeout", 2*time.Minute, "per-request HTTP timeout")

	rootCmd.AddCommand(analyzeCmd)
}
