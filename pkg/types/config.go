package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that call
// hosted APIs.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "rst-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BackendName identifies a hosted model API.
type BackendName string

const (
	BackendAnthropic BackendName = "anthropic"
	BackendOpenAI    BackendName = "openai"
	BackendGemini    BackendName = "gemini"
)

// AIConfig holds shared settings for calls to a hosted language model.
type AIConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	// Empty selects the backend's default.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Used for OpenAI-compatible
	// gateways, local model proxies, and in tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AnalysisConfig holds settings for the analysis stage.
type AnalysisConfig struct {
	AIConfig   `yaml:",inline"`
	HTTPConfig `yaml:",inline"`

	// Backend selects the hosted model API: anthropic, openai, or gemini.
	Backend BackendName `json:"backend" yaml:"backend"`

	// Ruleset selects the relation vocabulary (default extended).
	Ruleset Ruleset `json:"ruleset" yaml:"ruleset"`

	// LangHint forces the analysis language; "auto" lets the normalizer
	// detect it.
	LangHint Lang `json:"lang_hint" yaml:"lang_hint"`

	// MaxWorkers caps concurrent model calls in a batch (default 4).
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`
}

// OutputConfig holds settings for the result writers.
type OutputConfig struct {
	// OutDir is the directory result files are written to.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// EmitJSON writes the rst_NNN_<id>.json file per result (default true).
	EmitJSON bool `json:"emit_json" yaml:"emit_json"`

	// EmitText writes the human-readable rst_NNN_<id>.txt report (default true).
	EmitText bool `json:"emit_text" yaml:"emit_text"`

	// EmitDOT writes the Graphviz rst_NNN_<id>.dot file.
	EmitDOT bool `json:"emit_dot" yaml:"emit_dot"`

	// EmitNewick writes the rst_NNN_<id>.nwk tree rendering.
	EmitNewick bool `json:"emit_newick" yaml:"emit_newick"`
}

// ArchiveConfig holds settings for the analysis archive.
type ArchiveConfig struct {
	// ArchiveDir is the base directory for the archive (contains index/).
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServerConfig holds settings for the analysis service.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// ArtifactsDir is where batch artifacts such as the combined forest
	// diagram are written (default "artifacts").
	ArtifactsDir string `json:"artifacts_dir" yaml:"artifacts_dir"`
}

// EngineConfig groups all stage configurations.
type EngineConfig struct {
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Archive  ArchiveConfig  `json:"archive" yaml:"archive"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
