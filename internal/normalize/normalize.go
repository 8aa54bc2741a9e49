// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize validates and coerces raw model output into the
// Result schema. It performs no linguistic analysis of its own: every
// discourse decision comes from the hosted model, and this package only
// repairs mechanical defects (missing spans, malformed trees, out-of-range
// confidences) deterministically.
package normalize

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/rst-engine/internal/rsttree"
	"github.com/pdiddy/rst-engine/pkg/types"
)

// RawResult is the JSON object the model is prompted to return.
type RawResult struct {
	EDUs             []RawEDU      `json:"edus"`
	Relations        []RawRelation `json:"relations"`
	Tree             *types.Tree   `json:"tree"`
	PragmaticSummary string        `json:"pragmatic_summary"`
}

// RawEDU is a discourse unit as returned by the model. Span is optional;
// missing or inconsistent spans are recomputed against the source text.
type RawEDU struct {
	ID   int         `json:"id"`
	Text string      `json:"text"`
	Span *types.Span `json:"span"`
}

// RawRelation is a rhetorical relation as returned by the model.
type RawRelation struct {
	Type       string          `json:"type"`
	Nucleus    types.RoleChunk `json:"nucleus"`
	Satellite  types.RoleChunk `json:"satellite"`
	Confidence float64         `json:"confidence"`
}

// Options carries the analysis context recorded into Result metadata.
type Options struct {
	Source   string
	LangHint types.Lang
	Ruleset  types.Ruleset
	Model    string
	Backend  string
}

// now is the clock used for metadata timestamps. Tests override it.
var now = time.Now

// Normalize coerces a raw model response for text into a Result. It
// returns an error when the response is unusable (no discourse units);
// recoverable defects are repaired and recorded as metadata warnings.
func Normalize(text string, raw RawResult, opts Options) (types.Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return types.Result{}, fmt.Errorf("text is empty")
	}
	if len(raw.EDUs) == 0 {
		return types.Result{}, fmt.Errorf("model returned no discourse units")
	}

	ruleset := opts.Ruleset
	if !ruleset.Valid() {
		ruleset = types.RulesetExtended
	}

	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	edus := normalizeEDUs(trimmed, raw.EDUs, warnf)
	relations := normalizeRelations(raw.Relations, edus, ruleset, warnf)
	tree := normalizeTree(raw.Tree, edus, relations, warnf)

	lang := DetectLanguage(trimmed, opts.LangHint)

	summary := strings.TrimSpace(raw.PragmaticSummary)
	if summary == "" {
		summary = fallbackSummary(edus, lang)
		warnf("empty pragmatic summary, derived from leading units")
	}

	return types.Result{
		ID:               ShortHash(trimmed),
		Source:           opts.Source,
		Lang:             lang,
		EDUs:             edus,
		Relations:        relations,
		Tree:             tree,
		PragmaticSummary: summary,
		Metadata: types.Metadata{
			Chars:        len(trimmed),
			TokensEst:    EstimateTokens(trimmed),
			TimestampUTC: now().UTC().Format(time.RFC3339),
			Ruleset:      ruleset,
			Model:        opts.Model,
			Backend:      opts.Backend,
			Warnings:     warnings,
		},
	}, nil
}

// ShortHash returns the stable result identifier for a text: the first
// 10 hex characters of its SHA-1.
func ShortHash(text string) string {
	sum := sha1.Sum([]byte(text))
	return fmt.Sprintf("%x", sum)[:10]
}

// EstimateTokens approximates the token count by whitespace splitting,
// with a floor of 1.
func EstimateTokens(text string) int {
	n := len(strings.Fields(text))
	if n < 1 {
		return 1
	}
	return n
}

// normalizeEDUs renumbers unit IDs when they are not a strict 1..n
// sequence and reconciles spans against the source text.
func normalizeEDUs(text string, raw []RawEDU, warnf func(string, ...any)) []types.EDU {
	ordered := make([]RawEDU, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	renumber := false
	for i, e := range ordered {
		if e.ID != i+1 {
			renumber = true
			break
		}
	}
	if renumber {
		warnf("unit IDs were not sequential, renumbered")
	}

	edus := make([]types.EDU, 0, len(ordered))
	cursor := 0
	for i, e := range ordered {
		unitText := strings.TrimSpace(e.Text)
		span, located := locateSpan(text, unitText, cursor, e.Span)
		if !located {
			warnf("unit %d: span recomputed", i+1)
		}
		cursor = span.End
		edus = append(edus, types.EDU{ID: i + 1, Text: unitText, Span: span})
	}
	return edus
}

// locateSpan keeps the model's span when it exactly covers the unit text;
// otherwise it searches for the text from startHint, falling back to the
// hint position when the substring cannot be found.
func locateSpan(text, fragment string, startHint int, claimed *types.Span) (types.Span, bool) {
	if claimed != nil &&
		claimed.Start >= 0 && claimed.End <= len(text) && claimed.Start <= claimed.End &&
		text[claimed.Start:claimed.End] == fragment {
		return *claimed, true
	}

	start := startHint
	if startHint <= len(text) {
		if idx := strings.Index(text[startHint:], fragment); idx >= 0 {
			start = startHint + idx
		}
	}
	return types.Span{Start: start, End: start + len(fragment)}, false
}

// normalizeRelations drops relations the schema cannot hold and clamps
// confidences into [0, 1].
func normalizeRelations(raw []RawRelation, edus []types.EDU, ruleset types.Ruleset, warnf func(string, ...any)) []types.Relation {
	allowed := make(map[types.RelationType]bool)
	for _, rt := range types.RelationVocabulary(ruleset) {
		allowed[rt] = true
	}
	known := make(map[int]bool, len(edus))
	for _, e := range edus {
		known[e.ID] = true
	}

	var relations []types.Relation
	for i, r := range raw {
		rt := types.RelationType(r.Type)
		if !allowed[rt] {
			warnf("relation %d: type %q not in %s vocabulary, dropped", i, r.Type, ruleset)
			continue
		}
		if len(r.Nucleus.EDUIDs) == 0 || len(r.Satellite.EDUIDs) == 0 {
			warnf("relation %d: missing nucleus or satellite, dropped", i)
			continue
		}
		if !allKnown(r.Nucleus.EDUIDs, known) || !allKnown(r.Satellite.EDUIDs, known) {
			warnf("relation %d: references unknown unit, dropped", i)
			continue
		}

		conf := r.Confidence
		if conf < 0 || conf > 1 {
			warnf("relation %d: confidence %v clamped", i, conf)
			conf = clamp(conf)
		}

		relations = append(relations, types.Relation{
			Type:       rt,
			Nucleus:    r.Nucleus,
			Satellite:  r.Satellite,
			Confidence: conf,
		})
	}
	return relations
}

func allKnown(ids []int, known map[int]bool) bool {
	for _, id := range ids {
		if !known[id] {
			return false
		}
	}
	return true
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeTree keeps the model's brackets tree when it parses and its
// leaves reference known units; anything else is rebuilt from the
// relation sequence.
func normalizeTree(raw *types.Tree, edus []types.EDU, relations []types.Relation, warnf func(string, ...any)) types.Tree {
	if raw != nil && raw.Format == types.TreeBrackets {
		node, err := rsttree.Parse(raw.Value)
		if err == nil && leavesKnown(node, edus) {
			return *raw
		}
		if err != nil {
			warnf("tree did not parse (%v), rebuilt", err)
		} else {
			warnf("tree references unknown units, rebuilt")
		}
	} else if raw == nil {
		warnf("missing tree, rebuilt")
	} else {
		warnf("unsupported tree format %q, rebuilt", raw.Format)
	}

	return types.Tree{Format: types.TreeBrackets, Value: BuildBrackets(edus, relations)}
}

func leavesKnown(node *rsttree.Node, edus []types.EDU) bool {
	known := make(map[int]bool, len(edus))
	for _, e := range edus {
		known[e.ID] = true
	}
	for _, id := range node.Leaves() {
		if !known[id] {
			return false
		}
	}
	return true
}

// BuildBrackets folds the units into a left-leaning binary tree, labeling
// each join with the next relation type (cycling) and wrapping the root
// in Background.
func BuildBrackets(edus []types.EDU, relations []types.Relation) string {
	if len(edus) == 0 {
		return "(Summary)"
	}

	nodes := make([]string, len(edus))
	for i, e := range edus {
		nodes[i] = fmt.Sprintf("(N %d)", e.ID)
	}

	next := 0
	for len(nodes) > 1 {
		relType := types.RelElaboration
		if len(relations) > 0 {
			relType = relations[next%len(relations)].Type
			next++
		}
		joined := fmt.Sprintf("(%s %s %s)", relType, nodes[0], nodes[1])
		nodes = append([]string{joined}, nodes[2:]...)
	}
	return fmt.Sprintf("(Background %s)", nodes[0])
}

// fallbackSummary joins the first two units under a language-appropriate
// prefix.
func fallbackSummary(edus []types.EDU, lang types.Lang) string {
	if len(edus) == 0 {
		return ""
	}
	limit := 2
	if len(edus) < limit {
		limit = len(edus)
	}
	sentences := make([]string, limit)
	for i := 0; i < limit; i++ {
		sentences[i] = edus[i].Text
	}

	prefix := "Summary: "
	if lang == types.LangSpanish {
		prefix = "Resumen: "
	}
	return prefix + strings.Join(sentences, " ")
}
