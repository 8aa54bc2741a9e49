// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/rst-engine/internal/normalize"
	"github.com/pdiddy/rst-engine/pkg/types"
)

// analysisPromptTmpl is the prompt sent to the hosted model for each text.
// It pins the response to the Result JSON schema so the normalizer can
// decode it directly.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`You are a discourse analyst applying Rhetorical Structure Theory (RST). Segment the following text into Elementary Discourse Units (EDUs), identify the rhetorical relations between them, build a discourse tree, and write a pragmatic summary.

Rules:
- An EDU is a minimal contiguous span, typically a clause. Copy each EDU's text verbatim from the source; do not paraphrase, merge, or reorder.
- Number EDUs sequentially from 1 in text order. For each EDU give its byte span: "start" is the offset of its first byte in the text, "end" is the offset just past its last byte.
- Label each relation with exactly one type from this vocabulary: {{.Relations}}.
- Each relation links a nucleus (the more central span) to a satellite (the supporting span), each given as a list of EDU ids, with a confidence between 0.0 and 1.0.
- The tree uses bracket notation over EDU ids: leaves are (N <id>) or (S <id>), internal nodes are (<RelationType> <left> <right>), and the root is wrapped as (Background ...).
- The pragmatic summary is one or two sentences describing what the text is doing rhetorically, written in the language of the text.
{{if .LangHint}}- The text is in "{{.LangHint}}". Write the summary in that language.
{{end}}
Respond with a single JSON object and nothing else:
{"edus": [{"id": 1, "text": "...", "span": {"start": 0, "end": 12}}], "relations": [{"type": "Elaboration", "nucleus": {"edu_ids": [1]}, "satellite": {"edu_ids": [2]}, "confidence": 0.8}], "tree": {"format": "brackets", "value": "(Background (Elaboration (N 1) (S 2)))"}, "pragmatic_summary": "..."}

Text:
{{.Text}}
`))

// promptData feeds the analysis prompt template.
type promptData struct {
	Text      string
	LangHint  string
	Relations string
}

// renderPrompt executes the analysis prompt template for one request.
func renderPrompt(req Request) (string, error) {
	vocabulary := types.RelationVocabulary(req.Ruleset)
	names := make([]string, len(vocabulary))
	for i, rt := range vocabulary {
		names[i] = string(rt)
	}

	hint := ""
	if req.LangHint == types.LangSpanish || req.LangHint == types.LangEnglish {
		hint = string(req.LangHint)
	}

	var buf bytes.Buffer
	err := analysisPromptTmpl.Execute(&buf, promptData{
		Text:      req.Text,
		LangHint:  hint,
		Relations: strings.Join(names, ", "),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decodeModelJSON parses the model's answer into a RawResult. Models
// sometimes wrap the object in Markdown fences or lead with prose, so the
// decoder trims fences and cuts to the outermost braces first.
func decodeModelJSON(answer string) (normalize.RawResult, error) {
	s := strings.TrimSpace(answer)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return normalize.RawResult{}, fmt.Errorf("no JSON object in model response")
	}

	var raw normalize.RawResult
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return normalize.RawResult{}, fmt.Errorf("parsing model response JSON: %w", err)
	}
	return raw, nil
}
