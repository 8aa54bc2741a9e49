// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for the rst-engine pipeline.
package types

// Lang identifies the language of an analyzed text.
type Lang string

const (
	LangSpanish Lang = "es"
	LangEnglish Lang = "en"
	LangAuto    Lang = "auto"
)

// Valid reports whether the language is one of the known values.
func (l Lang) Valid() bool {
	return l == LangSpanish || l == LangEnglish || l == LangAuto
}

// Ruleset selects the relation vocabulary offered to the model and
// accepted by the normalizer.
type Ruleset string

const (
	RulesetMinimal  Ruleset = "minimal"
	RulesetExtended Ruleset = "extended"
)

// Valid reports whether the ruleset is one of the known values.
func (r Ruleset) Valid() bool {
	return r == RulesetMinimal || r == RulesetExtended
}

// RelationType labels a rhetorical relation between discourse units.
type RelationType string

// Extended relation vocabulary. The minimal vocabulary is a compact
// alternative for quick inspections.
const (
	RelElaboration  RelationType = "Elaboration"
	RelEvidence     RelationType = "Evidence"
	RelJustify      RelationType = "Justify"
	RelContrast     RelationType = "Contrast"
	RelConcession   RelationType = "Concession"
	RelCause        RelationType = "Cause"
	RelResult       RelationType = "Result"
	RelCondition    RelationType = "Condition"
	RelPurpose      RelationType = "Purpose"
	RelBackground   RelationType = "Background"
	RelSummary      RelationType = "Summary"
	RelAntithesis   RelationType = "Antithesis"
	RelEnablement   RelationType = "Enablement"
	RelCircumstance RelationType = "Circumstance"

	RelExplanation RelationType = "Explanation"
	RelSequence    RelationType = "Sequence"
	RelEvaluation  RelationType = "Evaluation"
)

// ExtendedRelations is the full vocabulary used by the extended ruleset.
var ExtendedRelations = []RelationType{
	RelElaboration, RelEvidence, RelJustify, RelContrast, RelConcession,
	RelCause, RelResult, RelCondition, RelPurpose, RelBackground,
	RelSummary, RelAntithesis, RelEnablement, RelCircumstance,
}

// MinimalRelations is the compact vocabulary used by the minimal ruleset.
var MinimalRelations = []RelationType{
	RelElaboration, RelBackground, RelExplanation, RelSequence,
	RelContrast, RelEvaluation, RelSummary,
}

// RelationVocabulary returns the relation types allowed under the ruleset.
func RelationVocabulary(r Ruleset) []RelationType {
	if r == RulesetMinimal {
		return MinimalRelations
	}
	return ExtendedRelations
}

// Span is a byte range into the source text.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// EDU is an Elementary Discourse Unit: a contiguous span of the source
// text used as a leaf of the rhetorical structure tree.
type EDU struct {
	// ID is the 1-based sequence index of the unit.
	ID int `json:"id" yaml:"id"`

	// Text is the exact substring of the source covered by the unit.
	Text string `json:"text" yaml:"text"`

	// Span locates Text within the source.
	Span Span `json:"span" yaml:"span"`
}

// RoleChunk collects the EDU IDs playing one role of a relation.
type RoleChunk struct {
	EDUIDs []int `json:"edu_ids" yaml:"edu_ids"`
}

// Relation is a labeled rhetorical link. The nucleus is the more central
// side; the satellite supports it.
type Relation struct {
	Type      RelationType `json:"type" yaml:"type"`
	Nucleus   RoleChunk    `json:"nucleus" yaml:"nucleus"`
	Satellite RoleChunk    `json:"satellite" yaml:"satellite"`

	// Confidence is the model's certainty in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// TreeFormat identifies a tree serialization.
type TreeFormat string

const (
	TreeBrackets TreeFormat = "brackets"
	TreeNewick   TreeFormat = "newick"
)

// Tree is the serialized rhetorical structure over EDUs and relations.
type Tree struct {
	Format TreeFormat `json:"format" yaml:"format"`
	Value  string     `json:"value" yaml:"value"`
}

// Metadata records provenance for one analysis.
type Metadata struct {
	// Chars is the length of the trimmed source text.
	Chars int `json:"chars" yaml:"chars"`

	// TokensEst is a whitespace-based token estimate.
	TokensEst int `json:"tokens_est" yaml:"tokens_est"`

	// TimestampUTC is the analysis time in RFC 3339 UTC.
	TimestampUTC string `json:"timestamp_utc" yaml:"timestamp_utc"`

	// Ruleset is the relation vocabulary in effect.
	Ruleset Ruleset `json:"ruleset" yaml:"ruleset"`

	// Model is the model identifier that produced the analysis.
	Model string `json:"model" yaml:"model"`

	// Backend names the hosted API the analysis went through.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Warnings lists normalizer coercions applied to the model output.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Result is the complete analysis of one text.
type Result struct {
	// ID is a stable identifier: the first 10 hex characters of the
	// SHA-1 of the trimmed source text.
	ID string `json:"id" yaml:"id"`

	// Source is the input name the text came from (file base name, or
	// "stdin"). Empty for texts submitted over the service API.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	Lang             Lang       `json:"lang" yaml:"lang"`
	EDUs             []EDU      `json:"edus" yaml:"edus"`
	Relations        []Relation `json:"relations" yaml:"relations"`
	Tree             Tree       `json:"tree" yaml:"tree"`
	PragmaticSummary string     `json:"pragmatic_summary" yaml:"pragmatic_summary"`
	Metadata         Metadata   `json:"metadata" yaml:"metadata"`
}
