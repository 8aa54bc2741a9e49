// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Document is one loaded input text.
type Document struct {
	// Name identifies the source: a file base name, or "stdin".
	Name string `json:"name" yaml:"name"`

	// Text is the extracted plain text.
	Text string `json:"text" yaml:"text"`
}
