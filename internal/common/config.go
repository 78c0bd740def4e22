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

// Config represents the application configuration
type Config struct {
	Environment     string                `toml:"environment"` // "development" or "production"
	Server          ServerConfig          `toml:"server"`
	Storage         StorageConfig         `toml:"storage"`
	Logging         LoggingConfig         `toml:"logging"`
	Search          SearchConfig          `toml:"search"`
	Bot             BotConfig             `toml:"bot"`
	Cache           CacheConfig           `toml:"cache"`
	Personalization PersonalizationConfig `toml:"personalization"`
	Driver          DriverConfig          `toml:"driver"`
	Claude          ClaudeConfig          `toml:"claude"`
	Gemini          GeminiConfig          `toml:"gemini"`
	LLM             LLMConfig             `toml:"llm"`
	Schedule        ScheduleConfig        `toml:"schedule"`
	Profile         ProfileConfig         `toml:"profile"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SearchConfig controls search queries and result pagination
type SearchConfig struct {
	Queries         []string `toml:"queries"`           // Search query strings, walked in order
	Locale          string   `toml:"locale"`            // Locale/country code, e.g. us, uk, br, fr
	PerPage         int      `toml:"per_page"`          // Result cards per page, used for offset math
	MaxPages        int      `toml:"max_pages"`         // Hard cap on pages per query (safety bound)
	EmptyPageStreak int      `toml:"empty_page_streak"` // Consecutive empty pages before a query terminates
	RequestDelay    string   `toml:"request_delay"`     // Minimum delay between result page fetches, e.g. "2s"
}

// RequestDelayDuration parses the configured page fetch delay
func (c *SearchConfig) RequestDelayDuration() time.Duration {
	return parseDuration(c.RequestDelay, 2*time.Second)
}

// BotConfig controls the worker pool and the wizard pipeline
type BotConfig struct {
	Concurrency        int    `toml:"concurrency" validate:"gte=1"` // Max simultaneous tab workers
	ApplyLimit         int    `toml:"apply_limit" validate:"gte=0"` // Max applications per run (0 = unlimited)
	StaggerDelay       string `toml:"stagger_delay"`                // Delay between initial worker launches
	WizardPollAttempts int    `toml:"wizard_poll_attempts"`         // Bounded attempts waiting for the wizard
	WizardPollInterval string `toml:"wizard_poll_interval"`         // Interval between wizard readiness polls
	WizardTimeout      string `toml:"wizard_timeout"`               // Wall-clock bound per application
	MaxWizardSteps     int    `toml:"max_wizard_steps"`             // Step cap per wizard walk
	TabRetries         int    `toml:"tab_retries"`                  // Tab recreation attempts before abandoning a query
	FillRetryDelay     string `toml:"fill_retry_delay"`             // Delay before retrying an unanswered fill message
	PoolPollInterval   string `toml:"pool_poll_interval"`           // Orchestrator poll interval over pool state
}

func (c *BotConfig) StaggerDelayDuration() time.Duration {
	return parseDuration(c.StaggerDelay, 500*time.Millisecond)
}

func (c *BotConfig) WizardPollIntervalDuration() time.Duration {
	return parseDuration(c.WizardPollInterval, 2*time.Second)
}

func (c *BotConfig) WizardTimeoutDuration() time.Duration {
	return parseDuration(c.WizardTimeout, 60*time.Second)
}

func (c *BotConfig) FillRetryDelayDuration() time.Duration {
	return parseDuration(c.FillRetryDelay, 2*time.Second)
}

func (c *BotConfig) PoolPollIntervalDuration() time.Duration {
	return parseDuration(c.PoolPollInterval, 250*time.Millisecond)
}

// CacheConfig holds the answer cache similarity thresholds.
// The defaults are empirical carry-overs, not derived values; they are
// configurable rather than hard-coded for exactly that reason.
type CacheConfig struct {
	LookupThreshold float64 `toml:"lookup_threshold" validate:"gte=0,lte=1"` // Jaccard score required to reuse an answer
	MergeThreshold  float64 `toml:"merge_threshold" validate:"gte=0,lte=1"`  // Jaccard score above which a write updates in place
	OptionThreshold float64 `toml:"option_threshold" validate:"gte=0,lte=1"` // Edit-distance score required to snap to an option
}

// PersonalizationConfig controls per-job CV/cover letter tailoring
type PersonalizationConfig struct {
	Enabled       bool   `toml:"enabled"`
	Required      bool   `toml:"required"`        // Skip the job if tailoring fails (never submit stale content)
	BaseCVPath    string `toml:"base_cv_path"`    // Path to base CV markdown
	BaseCoverPath string `toml:"base_cover_path"` // Path to base cover letter markdown
	OutputDir     string `toml:"output_dir"`      // Directory for generated PDFs
}

// DriverConfig contains ChromeDP page driver configuration
type DriverConfig struct {
	Headless          bool   `toml:"headless"`
	DisableGPU        bool   `toml:"disable_gpu"`
	NoSandbox         bool   `toml:"no_sandbox"`
	UserAgent         string `toml:"user_agent"`
	NavigationTimeout string `toml:"navigation_timeout"` // Page load bound, e.g. "45s"
	ReadyTimeout      string `toml:"ready_timeout"`      // Wait-for-interactive bound
	MessageRetries    int    `toml:"message_retries"`    // Delivery retries before "no response"
	MessageBackoff    string `toml:"message_backoff"`    // Fixed backoff between delivery retries
}

func (c *DriverConfig) NavigationTimeoutDuration() time.Duration {
	return parseDuration(c.NavigationTimeout, 45*time.Second)
}

func (c *DriverConfig) ReadyTimeoutDuration() time.Duration {
	return parseDuration(c.ReadyTimeout, 10*time.Second)
}

func (c *DriverConfig) MessageBackoffDuration() time.Duration {
	return parseDuration(c.MessageBackoff, time.Second)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string `toml:"api_key"`
	AnswerModel string `toml:"answer_model"` // Fast model for questionnaire answers
	TailorModel string `toml:"tailor_model"` // Stronger model for CV tailoring
	MaxTokens   int    `toml:"max_tokens"`
	Timeout     string `toml:"timeout"`
}

func (c *ClaudeConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 2*time.Minute)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

func (c *GeminiConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 2*time.Minute)
}

// LLMConfig selects the default answer-generation provider
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=claude gemini"`
}

// ScheduleConfig enables unattended cron-triggered runs
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // Standard cron expression, e.g. "0 9 * * 1-5"
}

// ProfileConfig points at the candidate profile file
type ProfileConfig struct {
	Path string `toml:"path"` // YAML candidate profile (contact details, base documents)
}

// DefaultConfig returns the built-in configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/petitor",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Search: SearchConfig{
			Locale:          "us",
			PerPage:         10,
			MaxPages:        100,
			EmptyPageStreak: 3,
			RequestDelay:    "2s",
		},
		Bot: BotConfig{
			Concurrency:        1,
			ApplyLimit:         0,
			StaggerDelay:       "500ms",
			WizardPollAttempts: 10,
			WizardPollInterval: "2s",
			WizardTimeout:      "60s",
			MaxWizardSteps:     10,
			TabRetries:         2,
			FillRetryDelay:     "2s",
			PoolPollInterval:   "250ms",
		},
		Cache: CacheConfig{
			LookupThreshold: 0.5,
			MergeThreshold:  0.85,
			OptionThreshold: 0.3,
		},
		Personalization: PersonalizationConfig{
			Enabled:       false,
			Required:      false,
			BaseCVPath:    "assets/base_cv.md",
			BaseCoverPath: "assets/base_cover_letter.md",
			OutputDir:     "output",
		},
		Driver: DriverConfig{
			Headless:          true,
			DisableGPU:        true,
			NoSandbox:         false,
			NavigationTimeout: "45s",
			ReadyTimeout:      "10s",
			MessageRetries:    2,
			MessageBackoff:    "1s",
		},
		Claude: ClaudeConfig{
			AnswerModel: "claude-haiku-4-5-20251001",
			TailorModel: "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			Timeout:     "2m",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-3-flash-preview",
			Timeout: "2m",
		},
		LLM: LLMConfig{
			DefaultProvider: "claude",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
		},
		Profile: ProfileConfig{
			Path: "profile.yaml",
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PETITOR_ENV"); v != "" {
		config.Environment = v
	} else if v := os.Getenv("GO_ENV"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("PETITOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("PETITOR_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("PETITOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("PETITOR_DATA_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = v
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Cache.MergeThreshold < c.Cache.LookupThreshold {
		return fmt.Errorf("invalid configuration: cache merge_threshold (%.2f) must not be below lookup_threshold (%.2f)",
			c.Cache.MergeThreshold, c.Cache.LookupThreshold)
	}
	return nil
}

// parseDuration parses a duration string, falling back to a default
func parseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
