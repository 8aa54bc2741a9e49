// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Payload is the request body accepted by the analysis service endpoint.
// It mirrors what agent frameworks submit: a batch of texts plus shared
// analysis options.
type Payload struct {
	Texts    []string `json:"texts"`
	LangHint Lang     `json:"lang_hint,omitempty"`
	Ruleset  Ruleset  `json:"ruleset,omitempty"`
}

// Artifact points at a file generated alongside a service response, such
// as the combined Graphviz forest for a batch.
type Artifact struct {
	Path string `json:"path"`
}

// ServiceResponse is the response body returned by the analysis service.
type ServiceResponse struct {
	Results   []Result   `json:"results"`
	Artifacts []Artifact `json:"artifacts"`
}
