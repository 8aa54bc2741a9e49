// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rst-engine/pkg/types"
)

func TestMain(m *testing.M) {
	now = func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) }
	os.Exit(m.Run())
}

func span(start, end int) *types.Span {
	return &types.Span{Start: start, End: end}
}

func wellFormedRaw() RawResult {
	return RawResult{
		EDUs: []RawEDU{
			{ID: 1, Text: "The river rose overnight.", Span: span(0, 25)},
			{ID: 2, Text: "The town was evacuated.", Span: span(26, 49)},
		},
		Relations: []RawRelation{
			{
				Type:       "Cause",
				Nucleus:    types.RoleChunk{EDUIDs: []int{2}},
				Satellite:  types.RoleChunk{EDUIDs: []int{1}},
				Confidence: 0.85,
			},
		},
		Tree:             &types.Tree{Format: types.TreeBrackets, Value: "(Background (Cause (S 1) (N 2)))"},
		PragmaticSummary: "Flooding forced an evacuation.",
	}
}

const wellFormedText = "The river rose overnight. The town was evacuated."

func TestNormalizeWellFormed(t *testing.T) {
	res, err := Normalize(wellFormedText, wellFormedRaw(), Options{
		Ruleset: types.RulesetExtended,
		Model:   "test-model",
		Backend: "anthropic",
	})
	require.NoError(t, err)

	assert.Equal(t, ShortHash(wellFormedText), res.ID)
	assert.Equal(t, types.LangEnglish, res.Lang)
	require.Len(t, res.EDUs, 2)
	assert.Equal(t, types.Span{Start: 0, End: 25}, res.EDUs[0].Span)
	require.Len(t, res.Relations, 1)
	assert.Equal(t, types.RelCause, res.Relations[0].Type)
	assert.Equal(t, "(Background (Cause (S 1) (N 2)))", res.Tree.Value)
	assert.Equal(t, "Flooding forced an evacuation.", res.PragmaticSummary)
	assert.Empty(t, res.Metadata.Warnings)
	assert.Equal(t, "2026-02-14T12:00:00Z", res.Metadata.TimestampUTC)
	assert.Equal(t, len(wellFormedText), res.Metadata.Chars)
	assert.Equal(t, 8, res.Metadata.TokensEst)
	assert.Equal(t, "test-model", res.Metadata.Model)
	assert.Equal(t, "anthropic", res.Metadata.Backend)
}

func TestNormalizeEmptyText(t *testing.T) {
	_, err := Normalize("   \n ", wellFormedRaw(), Options{})
	assert.Error(t, err)
}

func TestNormalizeNoUnits(t *testing.T) {
	raw := wellFormedRaw()
	raw.EDUs = nil
	_, err := Normalize(wellFormedText, raw, Options{})
	assert.Error(t, err)
}

func TestNormalizeRecomputesSpans(t *testing.T) {
	raw := wellFormedRaw()
	raw.EDUs[0].Span = nil
	raw.EDUs[1].Span = span(3, 5) // does not cover the unit text

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, types.Span{Start: 0, End: 25}, res.EDUs[0].Span)
	assert.Equal(t, types.Span{Start: 26, End: 49}, res.EDUs[1].Span)
	assert.NotEmpty(t, res.Metadata.Warnings)
}

func TestNormalizeRenumbersUnits(t *testing.T) {
	raw := wellFormedRaw()
	raw.EDUs[0].ID = 7
	raw.EDUs[1].ID = 9
	raw.Relations = nil
	raw.Tree = nil

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.EDUs[0].ID)
	assert.Equal(t, 2, res.EDUs[1].ID)
}

func TestNormalizeDropsUnknownRelationType(t *testing.T) {
	raw := wellFormedRaw()
	raw.Relations[0].Type = "Cause"

	// Cause is not in the minimal vocabulary.
	res, err := Normalize(wellFormedText, raw, Options{Ruleset: types.RulesetMinimal})
	require.NoError(t, err)

	assert.Empty(t, res.Relations)
	assert.Equal(t, types.RulesetMinimal, res.Metadata.Ruleset)
}

func TestNormalizeDropsDanglingRelation(t *testing.T) {
	raw := wellFormedRaw()
	raw.Relations[0].Satellite = types.RoleChunk{EDUIDs: []int{42}}

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Relations)
}

func TestNormalizeClampsConfidence(t *testing.T) {
	raw := wellFormedRaw()
	raw.Relations[0].Confidence = 1.7

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	require.Len(t, res.Relations, 1)
	assert.Equal(t, 1.0, res.Relations[0].Confidence)
}

func TestNormalizeRebuildsMalformedTree(t *testing.T) {
	raw := wellFormedRaw()
	raw.Tree = &types.Tree{Format: types.TreeBrackets, Value: "(Cause (N 2"}

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, types.TreeBrackets, res.Tree.Format)
	assert.Equal(t, "(Background (Cause (N 1) (N 2)))", res.Tree.Value)
}

func TestNormalizeRebuildsMissingTree(t *testing.T) {
	raw := wellFormedRaw()
	raw.Tree = nil

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, "(Background (Cause (N 1) (N 2)))", res.Tree.Value)
}

func TestNormalizeTreeWithUnknownLeaf(t *testing.T) {
	raw := wellFormedRaw()
	raw.Tree = &types.Tree{Format: types.TreeBrackets, Value: "(Background (Cause (N 1) (N 5)))"}

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, "(Background (Cause (N 1) (N 2)))", res.Tree.Value)
}

func TestNormalizeRebuildsTreeWithZeroLeaf(t *testing.T) {
	raw := wellFormedRaw()
	raw.Tree = &types.Tree{Format: types.TreeBrackets, Value: "(Background (N 0) (N 1))"}

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, "(Background (Cause (N 1) (N 2)))", res.Tree.Value)
	assert.NotEmpty(t, res.Metadata.Warnings)
}

func TestNormalizeRebuildsTreeWithDoubledLeafToken(t *testing.T) {
	raw := wellFormedRaw()
	raw.Tree = &types.Tree{Format: types.TreeBrackets, Value: "(N 1 2)"}

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, "(Background (Cause (N 1) (N 2)))", res.Tree.Value)
}

func TestNormalizeSummaryFallback(t *testing.T) {
	raw := wellFormedRaw()
	raw.PragmaticSummary = "  "

	res, err := Normalize(wellFormedText, raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Summary: The river rose overnight. The town was evacuated.", res.PragmaticSummary)
}

func TestNormalizeSpanishSummaryFallback(t *testing.T) {
	text := "El río creció durante la noche. El pueblo fue evacuado."
	raw := RawResult{
		EDUs: []RawEDU{
			{ID: 1, Text: "El río creció durante la noche."},
			{ID: 2, Text: "El pueblo fue evacuado."},
		},
	}

	res, err := Normalize(text, raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.LangSpanish, res.Lang)
	assert.Equal(t, "Resumen: El río creció durante la noche. El pueblo fue evacuado.", res.PragmaticSummary)
}

func TestBuildBrackets(t *testing.T) {
	tests := []struct {
		name      string
		edus      []types.EDU
		relations []types.Relation
		want      string
	}{
		{
			name: "no units",
			want: "(Summary)",
		},
		{
			name: "single unit",
			edus: []types.EDU{{ID: 1}},
			want: "(Background (N 1))",
		},
		{
			name: "two units no relations",
			edus: []types.EDU{{ID: 1}, {ID: 2}},
			want: "(Background (Elaboration (N 1) (N 2)))",
		},
		{
			name: "three units cycling relations",
			edus: []types.EDU{{ID: 1}, {ID: 2}, {ID: 3}},
			relations: []types.Relation{
				{Type: types.RelContrast},
				{Type: types.RelEvidence},
			},
			want: "(Background (Evidence (Contrast (N 1) (N 2)) (N 3)))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildBrackets(tt.edus, tt.relations))
		})
	}
}

func TestShortHashStable(t *testing.T) {
	assert.Equal(t, ShortHash("hello"), ShortHash("hello"))
	assert.Len(t, ShortHash("hello"), 10)
	assert.NotEqual(t, ShortHash("hello"), ShortHash("goodbye"))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 3, EstimateTokens("one two three"))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint types.Lang
		want types.Lang
	}{
		{"hint wins", "the quick brown fox", types.LangSpanish, types.LangSpanish},
		{"auto english", "the quick brown fox jumped", types.LangAuto, types.LangEnglish},
		{"auto spanish words", "el perro corre por la calle", types.LangAuto, types.LangSpanish},
		{"spanish punctuation", "¿Quieres venir?", "", types.LangSpanish},
		{"default english", "short", "", types.LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text, tt.hint))
		})
	}
}
