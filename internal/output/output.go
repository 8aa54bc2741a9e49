// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes analysis results to disk: a JSON document, a
// human-readable report, and optional Graphviz DOT and Newick renderings
// per result, plus a YAML manifest for the batch.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rst-engine/internal/rsttree"
	"github.com/pdiddy/rst-engine/pkg/types"
)

const manifestFile = "manifest.yaml"

// ManifestEntry records the files emitted for one result.
type ManifestEntry struct {
	ID        string     `json:"id" yaml:"id"`
	Source    string     `json:"source,omitempty" yaml:"source,omitempty"`
	Lang      types.Lang `json:"lang" yaml:"lang"`
	EDUs      int        `json:"edus" yaml:"edus"`
	Relations int        `json:"relations" yaml:"relations"`
	Files     []string   `json:"files" yaml:"files"`
}

// Manifest indexes a batch's output files.
type Manifest struct {
	GeneratedAt string          `json:"generated_at" yaml:"generated_at"`
	Results     []ManifestEntry `json:"results" yaml:"results"`
}

// Writer emits result files into the configured output directory.
type Writer struct {
	cfg types.OutputConfig
}

// New builds a Writer. The output directory is created on first write.
func New(cfg types.OutputConfig) *Writer {
	return &Writer{cfg: cfg}
}

// WriteAll writes files for every non-empty result and a manifest.yaml
// indexing them. Empty slots (failed analyses) are skipped. Base names
// follow rst_NNN_<id> with NNN counting emitted results from 1.
func (w *Writer) WriteAll(results []types.Result, generatedAt string) (Manifest, error) {
	if err := os.MkdirAll(w.cfg.OutDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating output directory: %w", err)
	}

	manifest := Manifest{GeneratedAt: generatedAt}
	seq := 0
	for _, res := range results {
		if res.ID == "" {
			continue
		}
		seq++
		entry, err := w.writeResult(seq, res)
		if err != nil {
			return Manifest{}, err
		}
		manifest.Results = append(manifest.Results, entry)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(w.cfg.OutDir, manifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("writing manifest: %w", err)
	}

	return manifest, nil
}

func (w *Writer) writeResult(seq int, res types.Result) (ManifestEntry, error) {
	base := fmt.Sprintf("rst_%03d_%s", seq, res.ID)
	entry := ManifestEntry{
		ID:        res.ID,
		Source:    res.Source,
		Lang:      res.Lang,
		EDUs:      len(res.EDUs),
		Relations: len(res.Relations),
	}

	emit := func(ext string, data []byte) error {
		name := base + ext
		if err := os.WriteFile(filepath.Join(w.cfg.OutDir, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		entry.Files = append(entry.Files, name)
		return nil
	}

	if w.cfg.EmitJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return ManifestEntry{}, fmt.Errorf("marshaling result %s: %w", res.ID, err)
		}
		if err := emit(".json", append(data, '\n')); err != nil {
			return ManifestEntry{}, err
		}
	}

	if w.cfg.EmitText {
		if err := emit(".txt", []byte(RenderReport(res))); err != nil {
			return ManifestEntry{}, err
		}
	}

	if w.cfg.EmitDOT {
		dot, err := rsttree.ToDOT(res.Tree.Value)
		if err != nil {
			return ManifestEntry{}, fmt.Errorf("rendering DOT for %s: %w", res.ID, err)
		}
		if err := emit(".dot", []byte(dot+"\n")); err != nil {
			return ManifestEntry{}, err
		}
	}

	if w.cfg.EmitNewick {
		node, err := rsttree.Parse(res.Tree.Value)
		if err != nil {
			return ManifestEntry{}, fmt.Errorf("rendering Newick for %s: %w", res.ID, err)
		}
		if err := emit(".nwk", []byte(node.Newick()+";\n")); err != nil {
			return ManifestEntry{}, err
		}
	}

	return entry, nil
}

// RenderReport formats one result as the human-readable text report.
func RenderReport(res types.Result) string {
	var b strings.Builder

	b.WriteString("EDUs\n")
	for _, edu := range res.EDUs {
		fmt.Fprintf(&b, "[%d] %s\n", edu.ID, edu.Text)
	}

	b.WriteString("\nRelations (type | nucleus | satellite | conf)\n")
	for _, rel := range res.Relations {
		fmt.Fprintf(&b, "%s | %s | %s | %.2f\n",
			rel.Type, joinIDs(rel.Nucleus.EDUIDs), joinIDs(rel.Satellite.EDUIDs), rel.Confidence)
	}

	b.WriteString("\nTree (brackets)\n")
	b.WriteString(res.Tree.Value)
	b.WriteString("\n")

	b.WriteString("\nPragmatic summary\n")
	b.WriteString(res.PragmaticSummary)
	b.WriteString("\n")

	return b.String()
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
