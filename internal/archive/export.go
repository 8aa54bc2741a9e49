// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportOptions filters which analyses are exported. Empty fields
// export everything.
type ExportOptions struct {
	Lang       string
	AnalysisID string
}

// AnalysisRecord is a fully materialized analysis row for export.
type AnalysisRecord struct {
	ID         string           `json:"id" yaml:"id"`
	Source     string           `json:"source" yaml:"source"`
	Lang       string           `json:"lang" yaml:"lang"`
	Ruleset    string           `json:"ruleset" yaml:"ruleset"`
	Model      string           `json:"model" yaml:"model"`
	Backend    string           `json:"backend" yaml:"backend"`
	Tree       string           `json:"tree" yaml:"tree"`
	Summary    string           `json:"summary" yaml:"summary"`
	AnalyzedAt string           `json:"analyzed_at" yaml:"analyzed_at"`
	EDUs       []EDURecord      `json:"edus" yaml:"edus"`
	Relations  []RelationRecord `json:"relations" yaml:"relations"`
}

// EDURecord is one discourse unit row for export.
type EDURecord struct {
	ID   int    `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// RelationRecord is one relation row for export.
type RelationRecord struct {
	Type       string  `json:"type" yaml:"type"`
	Nucleus    string  `json:"nucleus" yaml:"nucleus"`
	Satellite  string  `json:"satellite" yaml:"satellite"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ExportYAML writes matching analyses to archive-export.yaml under the
// index directory and returns the written path.
func (s *Store) ExportYAML(ctx context.Context, opts ExportOptions) (string, error) {
	records, err := s.collect(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}
	return s.writeExport("archive-export.yaml", data)
}

// ExportJSON writes matching analyses to archive-export.json under the
// index directory and returns the written path.
func (s *Store) ExportJSON(ctx context.Context, opts ExportOptions) (string, error) {
	records, err := s.collect(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}
	return s.writeExport("archive-export.json", append(data, '\n'))
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.archiveDir, indexDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

func (s *Store) collect(ctx context.Context, opts ExportOptions) ([]AnalysisRecord, error) {
	query := `SELECT id, source, lang, ruleset, model, backend, tree, summary, analyzed_at FROM analyses`
	var (
		conditions []string
		args       []any
	)
	if opts.Lang != "" {
		conditions = append(conditions, `lang = ?`)
		args = append(args, opts.Lang)
	}
	if opts.AnalysisID != "" {
		conditions = append(conditions, `id = ?`)
		args = append(args, opts.AnalysisID)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	records := []AnalysisRecord{}
	for rows.Next() {
		var r AnalysisRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.Lang, &r.Ruleset, &r.Model, &r.Backend,
			&r.Tree, &r.Summary, &r.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}

	for i := range records {
		if err := s.fillAnalysis(ctx, &records[i]); err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (s *Store) fillAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	eduRows, err := s.db.QueryContext(ctx,
		`SELECT edu_id, text FROM edus WHERE analysis_id = ? ORDER BY edu_id`, rec.ID)
	if err != nil {
		return fmt.Errorf("querying units for %s: %w", rec.ID, err)
	}
	defer eduRows.Close()
	for eduRows.Next() {
		var e EDURecord
		if err := eduRows.Scan(&e.ID, &e.Text); err != nil {
			return fmt.Errorf("scanning unit: %w", err)
		}
		rec.EDUs = append(rec.EDUs, e)
	}
	if err := eduRows.Err(); err != nil {
		return fmt.Errorf("iterating units: %w", err)
	}

	relRows, err := s.db.QueryContext(ctx,
		`SELECT type, nucleus, satellite, confidence FROM relations WHERE analysis_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("querying relations for %s: %w", rec.ID, err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r RelationRecord
		if err := relRows.Scan(&r.Type, &r.Nucleus, &r.Satellite, &r.Confidence); err != nil {
			return fmt.Errorf("scanning relation: %w", err)
		}
		rec.Relations = append(rec.Relations, r)
	}
	return relRows.Err()
}
