// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists analysis results in a local SQLite database
// and builds a full-text retrieval index over their discourse units.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/rst-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "rst.db"
)

// Store manages the archive SQLite database.
type Store struct {
	db         *sql.DB
	archiveDir string
	maxResults int
}

// NewStore opens or creates the archive database at
// archiveDir/index/rst.db, creating the schema if needed.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.ArchiveDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		archiveDir: cfg.ArchiveDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			source TEXT,
			lang TEXT,
			ruleset TEXT,
			model TEXT,
			backend TEXT,
			tree TEXT,
			summary TEXT,
			chars INTEGER,
			tokens_est INTEGER,
			analyzed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS edus (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			analysis_id TEXT NOT NULL REFERENCES analyses(id),
			edu_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			span_start INTEGER,
			span_end INTEGER,
			UNIQUE(analysis_id, edu_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edus_analysis_id ON edus(analysis_id)`,
		`CREATE TABLE IF NOT EXISTS relations (
			analysis_id TEXT NOT NULL REFERENCES analyses(id),
			type TEXT NOT NULL,
			nucleus TEXT NOT NULL,
			satellite TEXT NOT NULL,
			confidence REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_analysis_id ON relations(analysis_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(type)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='edus_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE edus_fts USING fts5(text, content=edus, content_rowid=rowid)`,
			`CREATE TRIGGER edus_ai AFTER INSERT ON edus BEGIN
				INSERT INTO edus_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
			`CREATE TRIGGER edus_ad AFTER DELETE ON edus BEGIN
				INSERT INTO edus_fts(edus_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			END`,
			`CREATE TRIGGER edus_au AFTER UPDATE ON edus BEGIN
				INSERT INTO edus_fts(edus_fts, rowid, text) VALUES('delete', old.rowid, old.text);
				INSERT INTO edus_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Indexed int
	Skipped int
	Failed  int
}

// HasFailures reports whether any files failed.
func (s IngestSummary) HasFailures() bool {
	return s.Failed > 0
}

// Ingest reads rst_*.json result files from resultsDir into the archive.
// Files already ingested with an unchanged modification time are skipped;
// changed files are re-indexed. Progress lines are written to w.
func (s *Store) Ingest(ctx context.Context, resultsDir string, w io.Writer) (IngestSummary, error) {
	matches, err := filepath.Glob(filepath.Join(resultsDir, "rst_*.json"))
	if err != nil {
		return IngestSummary{}, fmt.Errorf("listing results in %s: %w", resultsDir, err)
	}
	sort.Strings(matches)

	var summary IngestSummary
	for _, path := range matches {
		name := filepath.Base(path)

		changed, modTime, err := s.fileChanged(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		res, err := readResult(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.indexResult(ctx, res, name, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "indexed %s (%d units)\n", name, len(res.EDUs))
		summary.Indexed++
	}

	return summary, nil
}

// fileChanged reports whether the file is new or newer than its recorded
// ingest time.
func (s *Store) fileChanged(ctx context.Context, path string) (bool, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "", fmt.Errorf("stat %s: %w", path, err)
	}
	modTime := info.ModTime().UTC().Format("2006-01-02T15:04:05.999999999Z")

	var recorded string
	err = s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM indexing_status WHERE file = ?`, filepath.Base(path),
	).Scan(&recorded)
	if err == sql.ErrNoRows {
		return true, modTime, nil
	}
	if err != nil {
		return false, "", fmt.Errorf("checking indexing status: %w", err)
	}
	return recorded != modTime, modTime, nil
}

func readResult(path string) (types.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var res types.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return types.Result{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if res.ID == "" {
		return types.Result{}, fmt.Errorf("%s: result has no id", path)
	}
	return res, nil
}

// indexResult replaces any existing rows for the analysis inside one
// transaction.
func (s *Store) indexResult(ctx context.Context, res types.Result, file, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edus WHERE analysis_id = ?`, res.ID); err != nil {
		return fmt.Errorf("clearing units: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE analysis_id = ?`, res.ID); err != nil {
		return fmt.Errorf("clearing relations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, res.ID); err != nil {
		return fmt.Errorf("clearing analysis: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, source, lang, ruleset, model, backend, tree, summary, chars, tokens_est, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Source, string(res.Lang), string(res.Metadata.Ruleset),
		res.Metadata.Model, res.Metadata.Backend, res.Tree.Value, res.PragmaticSummary,
		res.Metadata.Chars, res.Metadata.TokensEst, res.Metadata.TimestampUTC)
	if err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}

	for _, edu := range res.EDUs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO edus (analysis_id, edu_id, text, span_start, span_end) VALUES (?, ?, ?, ?, ?)`,
			res.ID, edu.ID, edu.Text, edu.Span.Start, edu.Span.End)
		if err != nil {
			return fmt.Errorf("inserting unit %d: %w", edu.ID, err)
		}
	}

	for _, rel := range res.Relations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO relations (analysis_id, type, nucleus, satellite, confidence) VALUES (?, ?, ?, ?, ?)`,
			res.ID, string(rel.Type), joinIDs(rel.Nucleus.EDUIDs), joinIDs(rel.Satellite.EDUIDs), rel.Confidence)
		if err != nil {
			return fmt.Errorf("inserting relation: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(file) DO UPDATE SET file_mod_time = excluded.file_mod_time`,
		file, modTime)
	if err != nil {
		return fmt.Errorf("recording indexing status: %w", err)
	}

	return tx.Commit()
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
