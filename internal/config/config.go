// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Analyzers AnalyzersConfig `mapstructure:"analyzers" yaml:"analyzers"`
	Corpus    CorpusConfig    `mapstructure:"corpus" yaml:"corpus"`

	// Scan gets its marching orders from CLI flags, not the config file.
	Scan ScanConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// EngineConfig tunes the pipeline executor.
type EngineConfig struct {
	// StageTimeout bounds any stage that shells out or calls the network.
	StageTimeout time.Duration `mapstructure:"stage_timeout" yaml:"stage_timeout"`
	// DetectorConcurrency caps how many independent detector stages run at once.
	DetectorConcurrency int `mapstructure:"detector_concurrency" yaml:"detector_concurrency"`
}

// LLMProvider identifies the LLM backend family.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the network-backed analyzer used by the semantic
// detector, the context producer, and the explanation enhancer.
type LLMConfig struct {
	Provider   LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerMinute rate-limits outbound generation calls.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	// Per-million-token pricing used for the run's cost accounting.
	InputCostPer1M  float64 `mapstructure:"input_cost_per_1m" yaml:"input_cost_per_1m"`
	OutputCostPer1M float64 `mapstructure:"output_cost_per_1m" yaml:"output_cost_per_1m"`
}

// AnalyzersConfig toggles individual detectors.
type AnalyzersConfig struct {
	Lint         LintConfig `mapstructure:"lint" yaml:"lint"`
	Security     Toggle     `mapstructure:"security" yaml:"security"`
	Complexity   Toggle     `mapstructure:"complexity" yaml:"complexity"`
	BugPatterns  Toggle     `mapstructure:"bug_patterns" yaml:"bug_patterns"`
	Performance  Toggle     `mapstructure:"performance" yaml:"performance"`
	BestPractice Toggle     `mapstructure:"best_practice" yaml:"best_practice"`
	Semantic     Toggle     `mapstructure:"semantic" yaml:"semantic"`
}

// Toggle is a plain enable/disable switch for a detector.
type Toggle struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LintConfig configures the external-linter adapter.
type LintConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Tools lists the linter binaries to invoke, in order.
	Tools []string `mapstructure:"tools" yaml:"tools"`
	// Timeout bounds each linter invocation.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CorpusConfig controls which files are loaded for analysis.
type CorpusConfig struct {
	// Extensions whitelists file suffixes; empty means the built-in set.
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	// MaxFileBytes skips files larger than this.
	MaxFileBytes int64 `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
}

// ScanConfig holds settings populated from CLI flags for a specific run.
type ScanConfig struct {
	Target  string
	Output  string
	Format  string
	Explain bool
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "guardian-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.stage_timeout", "30s")
	v.SetDefault("engine.detector_concurrency", 8)

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "30s")
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.requests_per_minute", 60.0)
	v.SetDefault("llm.input_cost_per_1m", 3.0)
	v.SetDefault("llm.output_cost_per_1m", 15.0)

	// -- Analyzers --
	v.SetDefault("analyzers.lint.enabled", true)
	v.SetDefault("analyzers.lint.tools", []string{"pylint", "flake8"})
	v.SetDefault("analyzers.lint.timeout", "30s")
	v.SetDefault("analyzers.security.enabled", true)
	v.SetDefault("analyzers.complexity.enabled", true)
	v.SetDefault("analyzers.bug_patterns.enabled", true)
	v.SetDefault("analyzers.performance.enabled", true)
	v.SetDefault("analyzers.best_practice.enabled", true)
	v.SetDefault("analyzers.semantic.enabled", true)

	// -- Corpus --
	v.SetDefault("corpus.max_file_bytes", 512*1024)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "GUARDIAN_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Engine.DetectorConcurrency <= 0 {
		return fmt.Errorf("engine.detector_concurrency must be a positive integer")
	}
	if c.Engine.StageTimeout <= 0 {
		return fmt.Errorf("engine.stage_timeout must be a positive duration")
	}
	if c.Analyzers.Lint.Enabled && c.Analyzers.Lint.Timeout <= 0 {
		return fmt.Errorf("analyzers.lint.timeout must be a positive duration")
	}
	if c.Corpus.MaxFileBytes <= 0 {
		return fmt.Errorf("corpus.max_file_bytes must be positive")
	}
	return nil
}
