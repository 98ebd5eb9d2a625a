package model

import "time"

// Config is the application configuration, loadable from
// ~/.claimforge/config.yaml, CLAIMFORGE_* environment variables, or CLI
// flags (highest priority last).
type Config struct {
	Resolution ResolutionConfig `yaml:"resolution" mapstructure:"resolution"`
	Synthesis  SynthesisConfig  `yaml:"synthesis" mapstructure:"synthesis"`
	Evidence   EvidenceConfig   `yaml:"evidence" mapstructure:"evidence"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
}

// ResolutionConfig controls how linked references are resolved.
type ResolutionConfig struct {
	MaxSources        int           `yaml:"max_sources" mapstructure:"max_sources"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SynthesisConfig bounds claim extraction.
type SynthesisConfig struct {
	MaxClaims  int `yaml:"max_claims" mapstructure:"max_claims"`
	MaxSources int `yaml:"max_sources" mapstructure:"max_sources"`
}

// EvidenceConfig controls per-claim evidence selection and judging.
type EvidenceConfig struct {
	TopK             int  `yaml:"top_k" mapstructure:"top_k"`
	UseJudge         bool `yaml:"use_judge" mapstructure:"use_judge"`
	JudgeConcurrency int  `yaml:"judge_concurrency" mapstructure:"judge_concurrency"`
}

// LLMConfig configures the LLM-backed extractor and judge.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, deepseek, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StorageConfig selects the card persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "", "memory", "sqlite"
	Path   string `yaml:"path" mapstructure:"path"`     // sqlite database path
}

// DefaultConfig returns the standard defaults.
func DefaultConfig() Config {
	return Config{
		Resolution: ResolutionConfig{
			MaxSources:        120,
			Concurrency:       6,
			RequestsPerSecond: 3,
			CacheTTL:          15 * time.Minute,
			UserAgent:         "claimforge/0.1 (+https://github.com/ppiankov/claimforge)",
			Timeout:           20 * time.Second,
		},
		Synthesis: SynthesisConfig{
			MaxClaims:  12,
			MaxSources: 60,
		},
		Evidence: EvidenceConfig{
			TopK:             8,
			UseJudge:         false,
			JudgeConcurrency: 6,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   30,
			MaxTokens: 1000,
		},
		Storage: StorageConfig{
			Driver: "",
			Path:   "claimforge.db",
		},
	}
}
