// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on 429 and 503 responses.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LLMConfig holds settings for the generative AI backend.
type LLMConfig struct {
	// APIKey authenticates against the Gemini API (API_KEY).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the model identifier (DEFAULT_MODEL), e.g. "gemini-2.5-flash".
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Timeout caps a single generation call. Zero means no cap beyond the
	// caller's context.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SearchConfig holds Google Custom Search credentials and limits.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the Google API key (GOOGLE_API_KEY).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// EngineID is the programmable search engine id (GOOGLE_CSE_ID).
	EngineID string `json:"engine_id,omitempty" yaml:"engine_id,omitempty" mapstructure:"engine_id"`

	// MaxResults is the number of results requested per query (1-10, default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// TranscriberBackend identifies the PDF transcription backend.
type TranscriberBackend string

const (
	TranscriberModel      TranscriberBackend = "model"
	TranscriberMarkitdown TranscriberBackend = "markitdown"
)

// ScrapeConfig holds settings for URL scraping.
type ScrapeConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxContentChars truncates extracted text returned to the model
	// (default 20000). Persisted artifacts keep the full text.
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars" mapstructure:"max_content_chars"`

	// MaxBodyBytes caps the downloaded body size (default 25 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// Transcriber selects the PDF transcription backend.
	Transcriber TranscriberBackend `json:"transcriber" yaml:"transcriber" mapstructure:"transcriber"`
}

// ResearchConfig holds settings for the research pipeline.
type ResearchConfig struct {
	// MaxToolIterations bounds the tool-calling loop of one research step
	// (default 8).
	MaxToolIterations int `json:"max_tool_iterations" yaml:"max_tool_iterations" mapstructure:"max_tool_iterations"`

	// Concurrency is the number of research steps or sections processed at
	// once within a phase. Values below 2 run sequentially.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// MaxRecordChars truncates each record in the refinement prompt
	// (default 4000).
	MaxRecordChars int `json:"max_record_chars" yaml:"max_record_chars" mapstructure:"max_record_chars"`

	// OutputDir receives report.md and run.yaml when set.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// MinioConfig configures the optional MinIO blob backend for file artifacts.
type MinioConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the sqlite database file (default "data/deep-research.db").
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// Minio stores file artifact bytes in a bucket when Endpoint is set.
	Minio MinioConfig `json:"minio" yaml:"minio" mapstructure:"minio"`
}

// RedisConfig enables Redis-backed events and cancellation when Addr is set.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
}

// Config groups all settings.
type Config struct {
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Scrape   ScrapeConfig   `json:"scrape" yaml:"scrape" mapstructure:"scrape"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	Storage  StorageConfig  `json:"storage" yaml:"storage" mapstructure:"storage"`
	Redis    RedisConfig    `json:"redis" yaml:"redis" mapstructure:"redis"`
}
