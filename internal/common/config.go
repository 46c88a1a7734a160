package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. Values are resolved
// in priority order: defaults -> config file(s) -> environment.
type Config struct {
	Environment string           `toml:"environment" validate:"oneof=development production"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	HTTP        HTTPConfig       `toml:"http"`
	Browser     BrowserConfig    `toml:"browser"`
	RateLimit   RateLimitConfig  `toml:"rate_limit"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Gemini      GeminiConfig     `toml:"gemini"`
	OpenRouter  OpenRouterConfig `toml:"openrouter"`
	Scan        ScanConfig       `toml:"scan"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Format string   `toml:"format" validate:"oneof=text json"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
}

type StorageConfig struct {
	// DBPath is the sqlite database file; the parent directory is
	// created if absent. Overridden by JOBS_DB_PATH.
	DBPath string `toml:"db_path" validate:"required"`
}

type HTTPConfig struct {
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ProbeTimeout    time.Duration `toml:"probe_timeout"`
	UserAgent       string        `toml:"user_agent"`
	MaxConnections  int           `toml:"max_connections" validate:"min=1"`
	MaxIdleConns    int           `toml:"max_idle_conns" validate:"min=1"`
	GlobalRateLimit float64       `toml:"global_rate_limit"` // requests/sec across all hosts, 0 = unlimited
}

type BrowserConfig struct {
	Headless        bool          `toml:"headless"`
	NoSandbox       bool          `toml:"no_sandbox"`
	PageLoadTimeout time.Duration `toml:"page_load_timeout"`
	SettleDelay     time.Duration `toml:"settle_delay"`
	SelectorTimeout time.Duration `toml:"selector_timeout"`
	MaxScrolls      int           `toml:"max_scrolls" validate:"min=1"`
	UserAgent       string        `toml:"user_agent"`
}

type RateLimitConfig struct {
	BaseDelay         time.Duration `toml:"base_delay"`
	MaxDelay          time.Duration `toml:"max_delay"`
	MaxConcurrent     int           `toml:"max_concurrent" validate:"min=1"`
	BackoffMultiplier float64       `toml:"backoff_multiplier" validate:"gt=1"`
	RecoveryFactor    float64       `toml:"recovery_factor" validate:"gt=0,lt=1"`
}

// LLMProvider represents the AI provider type.
type LLMProvider string

const (
	LLMProviderClaude     LLMProvider = "claude"
	LLMProviderGemini     LLMProvider = "gemini"
	LLMProviderOpenRouter LLMProvider = "openrouter"
)

type LLMConfig struct {
	DefaultProvider LLMProvider   `toml:"default_provider" validate:"oneof=claude gemini openrouter"`
	Timeout         time.Duration `toml:"timeout"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// OpenRouterConfig mirrors the OpenRouter request surface. OpenRouter
// speaks the Anthropic wire protocol, so the Claude client is reused
// with a base-URL override when this provider is selected.
type OpenRouterConfig struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	Provider          string   `toml:"provider"`
	ProviderOrder     []string `toml:"provider_order"`
	AllowFallbacks    bool     `toml:"allow_fallbacks"`
	RequireParameters bool     `toml:"require_parameters"`
}

type ScanConfig struct {
	Workers            int    `toml:"workers" validate:"min=1"`
	MaxPaginationPages int    `toml:"max_pagination_pages" validate:"min=1"`
	DefaultLocation    string `toml:"default_location"`
	DefaultKeywords    string `toml:"default_keywords"`
	OutputFormat       string `toml:"output_format" validate:"oneof=text json"`
	OutputDir          string `toml:"output_dir"`
	SweepSchedule      string `toml:"sweep_schedule"` // cron expression for llm_cache expiry sweep
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			DBPath: "./data/jobradar.db",
		},
		HTTP: HTTPConfig{
			RequestTimeout:  30 * time.Second,
			ProbeTimeout:    8 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxConnections:  100,
			MaxIdleConns:    20,
			GlobalRateLimit: 0,
		},
		Browser: BrowserConfig{
			Headless:        true,
			NoSandbox:       false,
			PageLoadTimeout: 30 * time.Second,
			SettleDelay:     1500 * time.Millisecond,
			SelectorTimeout: 5 * time.Second,
			MaxScrolls:      8,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			BaseDelay:         500 * time.Millisecond,
			MaxDelay:          30 * time.Second,
			MaxConcurrent:     2,
			BackoffMultiplier: 2.0,
			RecoveryFactor:    0.9,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
			Timeout:         300 * time.Second,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   8192,
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
		},
		OpenRouter: OpenRouterConfig{
			BaseURL:        "https://openrouter.ai/api",
			Model:          "anthropic/claude-3.5-haiku",
			AllowFallbacks: true,
		},
		Scan: ScanConfig{
			Workers:            4,
			MaxPaginationPages: 10,
			OutputFormat:       "text",
			OutputDir:          "./out",
			SweepSchedule:      "0 * * * *",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override
// earlier ones; environment variables override everything.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration against struct constraints.
func Validate(config *Config) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("JOBRADAR_ENV"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("JOBRADAR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if path := os.Getenv("JOBS_DB_PATH"); path != "" {
		config.Storage.DBPath = path
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		config.OpenRouter.APIKey = key
	}
	if v := os.Getenv("OPENROUTER_PROVIDER"); v != "" {
		config.OpenRouter.Provider = v
	}
	if v := os.Getenv("OPENROUTER_PROVIDER_ORDER"); v != "" {
		config.OpenRouter.ProviderOrder = splitAndTrim(v)
	}
	if v := os.Getenv("OPENROUTER_ALLOW_FALLBACKS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.OpenRouter.AllowFallbacks = b
		}
	}
	if v := os.Getenv("OPENROUTER_REQUIRE_PARAMETERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.OpenRouter.RequireParameters = b
		}
	}
	if v := os.Getenv("JOBRADAR_DEFAULT_LOCATION"); v != "" {
		config.Scan.DefaultLocation = v
	}
	if v := os.Getenv("JOBRADAR_DEFAULT_KEYWORDS"); v != "" {
		config.Scan.DefaultKeywords = v
	}
	if v := os.Getenv("JOBRADAR_OUTPUT_FORMAT"); v != "" {
		config.Scan.OutputFormat = v
	}
	if v := os.Getenv("JOBRADAR_OUTPUT_DIR"); v != "" {
		config.Scan.OutputDir = v
	}
	if v := os.Getenv("JOBRADAR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Scan.Workers = n
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
