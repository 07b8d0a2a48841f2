package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Generator   GeneratorConfig `toml:"generator"`
	Firmware    FirmwareConfig  `toml:"firmware"`
	Artifacts   ArtifactsConfig `toml:"artifacts"`
	Device      DeviceConfig    `toml:"device"`
	Monitor     MonitorConfig   `toml:"monitor"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // Default: "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between requests (default: "4s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // Default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"` // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// GeneratorConfig controls the generate/validate/repair loop
type GeneratorConfig struct {
	GenerateModel string `toml:"generate_model"` // Model used for code generation (provider inferred from name)
	ValidateModel string `toml:"validate_model"` // Model used for validation (may be a different provider)
	MaxAttempts   int    `toml:"max_attempts"`   // Regeneration attempts after failed validation (default: 2)
}

// FirmwareConfig locates the PlatformIO project this service writes into
type FirmwareConfig struct {
	Dir          string `toml:"dir"`           // PlatformIO project root
	Source       string `toml:"source"`        // Generated translation unit, relative to Dir (default: "src/ai.cpp")
	GlueHeader   string `toml:"glue_header"`   // Generated header, relative to Dir (default: "include/ai_vars_gen.h")
	PioEnv       string `toml:"pio_env"`       // PlatformIO environment name (default: "esp32dev")
	BuildTimeout string `toml:"build_timeout"` // Compile timeout as duration string (default: "10m")
}

// ArtifactsConfig controls where built binaries are published from
type ArtifactsConfig struct {
	Dir    string `toml:"dir"`     // Directory served at /firmware/ (default: "./data/artifacts")
	MaxAge string `toml:"max_age"` // Stale artifact retention as duration string (default: "24h")
}

// DeviceConfig controls the HTTP client used to reach devices
type DeviceConfig struct {
	RequestTimeout string `toml:"request_timeout"` // Per-request timeout (default: "30s"; OTA triggers use their own longer timeout)
	OTATimeout     string `toml:"ota_timeout"`     // OTA trigger timeout (default: "60s")
	RateLimit      int    `toml:"rate_limit"`      // Requests per second against one device (default: 5)
}

// MonitorConfig controls the background device/artifact monitor
type MonitorConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule with seconds field (default: "0 */1 * * * *")
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in solder.toml; technical parameters
// are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			RateLimit:   "4s", // 15 RPM free tier
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		Generator: GeneratorConfig{
			MaxAttempts: 2,
		},
		Firmware: FirmwareConfig{
			Dir:          "./firmware",
			Source:       "src/ai.cpp",
			GlueHeader:   "include/ai_vars_gen.h",
			PioEnv:       "esp32dev",
			BuildTimeout: "10m",
		},
		Artifacts: ArtifactsConfig{
			Dir:    "./data/artifacts",
			MaxAge: "24h",
		},
		Device: DeviceConfig{
			RequestTimeout: "30s",
			OTATimeout:     "60s",
			RateLimit:      5,
		},
		Monitor: MonitorConfig{
			Enabled:  false,
			Schedule: "0 */1 * * * *", // Every minute, seconds field included
		},
	}
}

// LoadFromFile loads configuration from a single TOML file
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
// Later config files override earlier ones.
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

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies SOLDER_* environment variables on top of the
// merged file configuration
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SOLDER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SOLDER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SOLDER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("SOLDER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SOLDER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("SOLDER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if key := os.Getenv("SOLDER_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("SOLDER_ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}

	if dir := os.Getenv("SOLDER_FIRMWARE_DIR"); dir != "" {
		config.Firmware.Dir = dir
	}
	if env := os.Getenv("SOLDER_PIO_ENV"); env != "" {
		config.Firmware.PioEnv = env
	}
}

// Validate checks cross-field constraints that TOML decoding cannot express
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.LLM.DefaultProvider != LLMProviderGemini && c.LLM.DefaultProvider != LLMProviderClaude {
		return fmt.Errorf("invalid llm.default_provider %q: must be %q or %q",
			c.LLM.DefaultProvider, LLMProviderGemini, LLMProviderClaude)
	}

	for name, value := range map[string]string{
		"gemini.timeout":         c.Gemini.Timeout,
		"claude.timeout":         c.Claude.Timeout,
		"firmware.build_timeout": c.Firmware.BuildTimeout,
		"artifacts.max_age":      c.Artifacts.MaxAge,
		"device.request_timeout": c.Device.RequestTimeout,
		"device.ota_timeout":     c.Device.OTATimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.Monitor.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Monitor.Schedule); err != nil {
			return fmt.Errorf("invalid monitor.schedule %q: %w", c.Monitor.Schedule, err)
		}
	}

	if c.Generator.MaxAttempts < 1 {
		return fmt.Errorf("generator.max_attempts must be at least 1, got %d", c.Generator.MaxAttempts)
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
