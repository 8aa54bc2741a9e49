// Package analyze sends texts to a hosted language model for rhetorical
// structure analysis and normalizes the responses into Results.
package analyze

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/rst-engine/internal/normalize"
	"github.com/pdiddy/rst-engine/pkg/types"
)

// Request is one text submitted to a backend together with the options
// that shape the prompt.
type Request struct {
	Text     string
	LangHint types.Lang
	Ruleset  types.Ruleset
}

// Backend abstracts the hosted model API so tests can supply a mock.
// Implementations send one analysis prompt and decode the model's JSON
// answer. Per Strategy pattern.
type Backend interface {
	// Name identifies the backend for result metadata.
	Name() string

	// Model returns the model identifier in effect.
	Model() string

	// Analyze submits one text and returns the raw structured response.
	Analyze(ctx context.Context, req Request) (normalize.RawResult, error)
}

// BatchSummary holds counts from a batch analysis run.
type BatchSummary struct {
	Analyzed int
	Failed   int
}

// Total returns the number of texts processed.
func (s BatchSummary) Total() int {
	return s.Analyzed + s.Failed
}

// HasFailures reports whether any texts failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Analyzer runs texts through a backend and the normalizer.
type Analyzer struct {
	backend Backend
	cfg     types.AnalysisConfig
}

// New builds an Analyzer over the given backend.
func New(backend Backend, cfg types.AnalysisConfig) *Analyzer {
	return &Analyzer{backend: backend, cfg: cfg}
}

// AnalyzeText analyzes a single document. Empty texts fail without a
// model call.
func (a *Analyzer) AnalyzeText(ctx context.Context, doc types.Document) (types.Result, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return types.Result{}, fmt.Errorf("analyzing %s: empty text", doc.Name)
	}

	req := Request{
		Text:     doc.Text,
		LangHint: a.cfg.LangHint,
		Ruleset:  a.cfg.Ruleset,
	}

	maxRetries := a.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	raw, err := callWithRetry(ctx, a.backend, req, maxRetries)
	if err != nil {
		return types.Result{}, fmt.Errorf("analyzing %s: %w", doc.Name, err)
	}

	result, err := normalize.Normalize(doc.Text, raw, normalize.Options{
		Source:   doc.Name,
		LangHint: a.cfg.LangHint,
		Ruleset:  a.cfg.Ruleset,
		Model:    a.backend.Model(),
		Backend:  a.backend.Name(),
	})
	if err != nil {
		return types.Result{}, fmt.Errorf("normalizing %s: %w", doc.Name, err)
	}
	return result, nil
}

// AnalyzeAll analyzes documents concurrently, bounded by MaxWorkers, and
// returns results in input order. A failed document leaves a zero Result
// in its slot and counts toward the summary; the batch keeps going.
// Progress lines are written to w.
func (a *Analyzer) AnalyzeAll(ctx context.Context, docs []types.Document, w io.Writer) ([]types.Result, BatchSummary, error) {
	if len(docs) == 0 {
		return nil, BatchSummary{}, nil
	}

	maxWorkers := a.cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	results := make([]types.Result, len(docs))
	errs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := a.AnalyzeText(gctx, doc)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, BatchSummary{}, err
	}

	var summary BatchSummary
	for i, doc := range docs {
		if errs[i] != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", doc.Name, errs[i])
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "analyzed %s (%d units, %d relations)\n",
			doc.Name, len(results[i].EDUs), len(results[i].Relations))
		summary.Analyzed++
	}

	return results, summary, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend Backend, req Request, maxRetries int) (normalize.RawResult, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return normalize.RawResult{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := backend.Analyze(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return normalize.RawResult{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
