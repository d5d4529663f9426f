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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Tavily    TavilyConfig    `yaml:"tavily" mapstructure:"tavily"`
	Upstash   UpstashConfig   `yaml:"upstash" mapstructure:"upstash"`
	Trust     TrustConfig     `yaml:"trust" mapstructure:"trust"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// TavilyConfig holds Tavily search API settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// UpstashConfig holds Upstash Redis REST settings. Leaving both empty
// disables the cache layer entirely.
type UpstashConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
}

// TrustConfig configures the trusted-domain registry.
type TrustConfig struct {
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
}

// RetrievalConfig configures the search phase.
type RetrievalConfig struct {
	MaxTrustedResults int `yaml:"max_trusted_results" mapstructure:"max_trusted_results"`
	MaxBroadResults   int `yaml:"max_broad_results" mapstructure:"max_broad_results"`
	MinTrustedResults int `yaml:"min_trusted_results" mapstructure:"min_trusted_results"`
	SearchTimeoutSecs int `yaml:"search_timeout_secs" mapstructure:"search_timeout_secs"`
	SearchRetries     int `yaml:"search_retries" mapstructure:"search_retries"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	TopSources          int `yaml:"top_sources" mapstructure:"top_sources"`
	ClassifyTimeoutSecs int `yaml:"classify_timeout_secs" mapstructure:"classify_timeout_secs"`
	GenerateTimeoutSecs int `yaml:"generate_timeout_secs" mapstructure:"generate_timeout_secs"`
	ExtractTimeoutSecs  int `yaml:"extract_timeout_secs" mapstructure:"extract_timeout_secs"`
	MaxQueryChars       int `yaml:"max_query_chars" mapstructure:"max_query_chars"`
	AnswerMaxTokens     int `yaml:"answer_max_tokens" mapstructure:"answer_max_tokens"`
	ExtractMaxTokens    int `yaml:"extract_max_tokens" mapstructure:"extract_max_tokens"`
}

// RateLimitConfig configures per-client admission control.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("REALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "realty-search.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("retrieval.max_trusted_results", 10)
	v.SetDefault("retrieval.max_broad_results", 5)
	v.SetDefault("retrieval.min_trusted_results", 3)
	v.SetDefault("retrieval.search_timeout_secs", 15)
	v.SetDefault("retrieval.search_retries", 1)
	v.SetDefault("pipeline.top_sources", 8)
	v.SetDefault("pipeline.classify_timeout_secs", 10)
	v.SetDefault("pipeline.generate_timeout_secs", 60)
	v.SetDefault("pipeline.extract_timeout_secs", 30)
	v.SetDefault("pipeline.max_query_chars", 500)
	v.SetDefault("pipeline.answer_max_tokens", 2048)
	v.SetDefault("pipeline.extract_max_tokens", 1024)
	v.SetDefault("rate_limit.requests_per_minute", 10)

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

// Validate checks that the configuration is usable for the given mode.
// Modes: "serve" (HTTP server), "ask" (one-shot pipeline run),
// "cache" (cache-only commands such as popular and stats).
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "serve", "ask":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Tavily.Key == "" {
			missing = append(missing, "tavily.key is required")
		}
	case "cache":
		if c.Upstash.URL == "" {
			missing = append(missing, "upstash.url is required")
		}
		if c.Upstash.Token == "" {
			missing = append(missing, "upstash.token is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
		if c.RateLimit.RequestsPerMinute < 1 || c.RateLimit.RequestsPerMinute > 600 {
			missing = append(missing, "rate_limit.requests_per_minute must be between 1 and 600")
		}
	}

	if mode == "serve" || mode == "ask" {
		if c.Retrieval.MinTrustedResults < 1 {
			missing = append(missing, "retrieval.min_trusted_results must be >= 1")
		}
		if c.Retrieval.MaxTrustedResults < 1 || c.Retrieval.MaxTrustedResults > 20 {
			missing = append(missing, "retrieval.max_trusted_results must be between 1 and 20")
		}
		if c.Pipeline.TopSources < 1 || c.Pipeline.TopSources > 20 {
			missing = append(missing, "pipeline.top_sources must be between 1 and 20")
		}
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
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
