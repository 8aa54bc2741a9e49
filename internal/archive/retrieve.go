// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/rst-engine/pkg/types"
)

// QueryOptions filters a retrieval query. All fields are optional; an
// empty Query returns units matched by the structured filters alone.
type QueryOptions struct {
	// Query is an FTS5 match expression over discourse unit text.
	Query string
	// Lang restricts results to analyses in the given language.
	Lang types.Lang
	// RelationType restricts results to analyses containing the relation.
	RelationType types.RelationType
	// AnalysisID restricts results to a single analysis.
	AnalysisID string
	// MaxResults caps the result count. Zero uses the store default.
	MaxResults int
}

// QueryResult is one matched discourse unit with its analysis context.
type QueryResult struct {
	AnalysisID string  `json:"analysis_id" yaml:"analysis_id"`
	Source     string  `json:"source" yaml:"source"`
	Lang       string  `json:"lang" yaml:"lang"`
	EDUID      int     `json:"edu_id" yaml:"edu_id"`
	Text       string  `json:"text" yaml:"text"`
	Summary    string  `json:"summary" yaml:"summary"`
	Rank       float64 `json:"rank,omitempty" yaml:"rank,omitempty"`
}

// Retrieve runs a ranked query against the archive. Text matches come
// back best-first; filter-only queries come back in analysis order.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		conditions []string
		args       []any
	)

	query := `SELECT a.id, a.source, a.lang, e.edu_id, e.text, a.summary`
	if opts.Query != "" {
		query += `, edus_fts.rank`
		query += ` FROM edus_fts
			JOIN edus e ON e.rowid = edus_fts.rowid
			JOIN analyses a ON a.id = e.analysis_id`
		conditions = append(conditions, `edus_fts MATCH ?`)
		args = append(args, ftsQuote(opts.Query))
	} else {
		query += `, 0.0`
		query += ` FROM edus e
			JOIN analyses a ON a.id = e.analysis_id`
	}

	if opts.Lang != "" {
		conditions = append(conditions, `a.lang = ?`)
		args = append(args, string(opts.Lang))
	}
	if opts.RelationType != "" {
		conditions = append(conditions,
			`EXISTS (SELECT 1 FROM relations r WHERE r.analysis_id = a.id AND r.type = ?)`)
		args = append(args, string(opts.RelationType))
	}
	if opts.AnalysisID != "" {
		conditions = append(conditions, `a.id = ?`)
		args = append(args, opts.AnalysisID)
	}

	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	if opts.Query != "" {
		query += ` ORDER BY edus_fts.rank`
	} else {
		query += ` ORDER BY a.id, e.edu_id`
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		if err := rows.Scan(&r.AnalysisID, &r.Source, &r.Lang, &r.EDUID, &r.Text, &r.Summary, &r.Rank); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}

	return results, nil
}

// ftsQuote wraps each term in double quotes so punctuation in user input
// is not parsed as FTS5 syntax.
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
