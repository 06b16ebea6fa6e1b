// Package config loads application configuration from file and
// environment, and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Qualify  QualifyConfig  `yaml:"qualify" mapstructure:"qualify"`
	Proposal ProposalConfig `yaml:"proposal" mapstructure:"proposal"`
	AI       AIConfig       `yaml:"ai" mapstructure:"ai"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// SearchConfig bounds multi-source search runs.
type SearchConfig struct {
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxPerSource      int `yaml:"max_per_source" mapstructure:"max_per_source"`
	SourceTimeoutSecs int `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
}

// FetchConfig configures outbound HTTP fetching.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PerHostRPS  float64 `yaml:"per_host_rps" mapstructure:"per_host_rps"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// QualifyConfig configures lead qualification batches.
type QualifyConfig struct {
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
	UseAI       bool `yaml:"use_ai" mapstructure:"use_ai"`
}

// ProposalConfig configures proposal composition.
type ProposalConfig struct {
	SenderName     string `yaml:"sender_name" mapstructure:"sender_name"`
	SenderCompany  string `yaml:"sender_company" mapstructure:"sender_company"`
	SenderContacts string `yaml:"sender_contacts" mapstructure:"sender_contacts"`
	LibraryPath    string `yaml:"library_path" mapstructure:"library_path"`
}

// AIConfig holds per-provider settings for the qualification chain.
// Providers without a key stay unconfigured and are skipped.
type AIConfig struct {
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Groq       GroqConfig       `yaml:"groq" mapstructure:"groq"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Claude     ClaudeConfig     `yaml:"claude" mapstructure:"claude"`
	Ollama     OllamaConfig     `yaml:"ollama" mapstructure:"ollama"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GroqConfig holds Groq API settings.
type GroqConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	Referer string `yaml:"referer" mapstructure:"referer"`
	Title   string `yaml:"title" mapstructure:"title"`
}

// ClaudeConfig holds Anthropic API settings.
type ClaudeConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OllamaConfig holds local Ollama settings.
type OllamaConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "leadgen.db")
	v.SetDefault("search.concurrency", 3)
	v.SetDefault("search.max_per_source", 50)
	v.SetDefault("search.source_timeout_secs", 120)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.per_host_rps", 1.0)
	v.SetDefault("qualify.concurrency", 3)
	v.SetDefault("proposal.sender_name", "Ваш веб-разработчик")
	v.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("ai.openrouter.model", "google/gemini-2.0-flash-exp:free")
	v.SetDefault("ai.claude.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ai.ollama.base_url", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "llama3.2")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
