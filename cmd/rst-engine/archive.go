// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rst-engine/internal/archive"
	"github.com/pdiddy/rst-engine/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the result archive (index, query, export)",
	Long: `Archive manages a local SQLite index built from analysis result files.
Use subcommands to index results, query discourse units, or export.`,
}

// --- index subcommand ---

var archiveIndexCmd = &cobra.Command{
	Use:   "index [results-dir]",
	Short: "Ingest analysis results into the archive",
	Long: `Index reads rst_*.json result files from the given directory (default
out/), ingests them into a SQLite database with FTS5 indexing over the
discourse unit text. Unchanged files are skipped on subsequent runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runArchiveIndex,
}

func runArchiveIndex(cmd *cobra.Command, args []string) error {
	resultsDir := "out"
	if len(args) > 0 {
		resultsDir = args[0]
	}

	store, err := archive.NewStore(archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), resultsDir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d result file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var archiveQueryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query archived discourse units with full-text search and filters",
	Long: `Query searches the archive using FTS5 full-text search over discourse
unit text, structured filters (language, relation type, analysis id), or
a combination of both. Text matches come back best-first.`,
	RunE: runArchiveQuery,
}

func runArchiveQuery(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.Query == "" && opts.Lang == "" && opts.RelationType == "" && opts.AnalysisID == "" {
		return fmt.Errorf("query or filter required: provide search text, --lang, --relation, or --id")
	}

	store, err := archive.NewStore(archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(results, jsonOutput)
}

func formatQueryOutput(results []archive.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-4s  %-5s  %-50s  %s\n",
		"Rank", "Analysis", "Unit", "Lang", "Text", "Source")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, r := range results {
		text := r.Text
		if len(text) > 50 {
			text = text[:47] + "..."
		}
		source := r.Source
		if len(source) > 20 {
			source = source[:17] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-4d  %-5s  %-50s  %s\n",
			i+1, r.AnalysisID, r.EDUID, r.Lang, text, source)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive to YAML or JSON",
	Long: `Export writes the full archive (or a filtered subset) to
archive-export.yaml or archive-export.json under the index directory.
Supports --lang and --id filters for partial exports.`,
	RunE: runArchiveExport,
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	lang, _ := cmd.Flags().GetString("lang")
	analysisID, _ := cmd.Flags().GetString("id")

	store, err := archive.NewStore(archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := archive.ExportOptions{
		Lang:       lang,
		AnalysisID: analysisID,
	}

	switch format {
	case "yaml", "":
		path, err := store.ExportYAML(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Println("Exported to " + path)
	case "json":
		path, err := store.ExportJSON(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Println("Exported to " + path)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func archiveConfig(cmd *cobra.Command) types.ArchiveConfig {
	archiveDir, _ := cmd.Flags().GetString("archive-dir")
	if archiveDir == "" {
		archiveDir = "archive"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.ArchiveConfig{
		ArchiveDir: archiveDir,
		MaxResults: maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) archive.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	lang, _ := cmd.Flags().GetString("lang")
	relation, _ := cmd.Flags().GetString("relation")
	analysisID, _ := cmd.Flags().GetString("id")
	limit, _ := cmd.Flags().GetInt("limit")

	return archive.QueryOptions{
		Query:        queryText,
		Lang:         types.Lang(lang),
		RelationType: types.RelationType(relation),
		AnalysisID:   analysisID,
		MaxResults:   limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	archiveCmd.PersistentFlags().String("archive-dir", "archive", "base directory for the archive (contains index/)")
	archiveCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Query flags.
	archiveQueryCmd.Flags().String("query", "", "full-text search over discourse unit text")
	archiveQueryCmd.Flags().String("lang", "", "filter by language: es or en")
	archiveQueryCmd.Flags().String("relation", "", "filter by relation type, e.g. Cause or Contrast")
	archiveQueryCmd.Flags().String("id", "", "filter by analysis ID")
	archiveQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	archiveQueryCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	archiveExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	archiveExportCmd.Flags().String("lang", "", "filter by language for partial export")
	archiveExportCmd.Flags().String("id", "", "filter by analysis ID for partial export")

	// Wire subcommands.
	archiveCmd.AddCommand(archiveIndexCmd)
	archiveCmd.AddCommand(archiveQueryCmd)
	archiveCmd.AddCommand(archiveExportCmd)

	rootCmd.AddCommand(archiveCmd)
}
