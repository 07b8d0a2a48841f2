package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solder.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
	assert.Equal(t, "src/ai.cpp", cfg.Firmware.Source)
	assert.Equal(t, "include/ai_vars_gen.h", cfg.Firmware.GlueHeader)
	assert.Equal(t, "esp32dev", cfg.Firmware.PioEnv)
	assert.Equal(t, 2, cfg.Generator.MaxAttempts)
	assert.False(t, cfg.Monitor.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[server]
port = 9090

[llm]
default_provider = "claude"

[firmware]
dir = "/opt/firmware"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.DefaultProvider)
	assert.Equal(t, "/opt/firmware", cfg.Firmware.Dir)

	// Unset values keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "esp32dev", cfg.Firmware.PioEnv)
}

func TestLoadFromFiles_LaterFileOverrides(t *testing.T) {
	first := writeConfigFile(t, `
[server]
port = 9090
host = "0.0.0.0"
`)
	second := writeConfigFile(t, `
[server]
port = 9191
`)

	cfg, err := LoadFromFiles(first, second)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 7070, "192.168.1.5")
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "192.168.1.5", cfg.Server.Host)

	// Zero values leave the config untouched
	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "192.168.1.5", cfg.Server.Host)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOLDER_SERVER_PORT", "6060")
	t.Setenv("SOLDER_LOG_LEVEL", "debug")
	t.Setenv("SOLDER_GEMINI_API_KEY", "test-key")
	t.Setenv("SOLDER_LOG_OUTPUT", "stdout, file")

	path := writeConfigFile(t, `
[server]
port = 9090
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.DefaultProvider = "openai" },
			wantErr: "invalid llm.default_provider",
		},
		{
			name:    "bad build timeout",
			mutate:  func(c *Config) { c.Firmware.BuildTimeout = "ten minutes" },
			wantErr: "invalid duration for firmware.build_timeout",
		},
		{
			name: "bad monitor schedule",
			mutate: func(c *Config) {
				c.Monitor.Enabled = true
				c.Monitor.Schedule = "not a schedule"
			},
			wantErr: "invalid monitor.schedule",
		},
		{
			name: "monitor schedule ignored when disabled",
			mutate: func(c *Config) {
				c.Monitor.Enabled = false
				c.Monitor.Schedule = "not a schedule"
			},
			wantErr: "",
		},
		{
			name:    "zero generator attempts",
			mutate:  func(c *Config) { c.Generator.MaxAttempts = 0 },
			wantErr: "generator.max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"PRODUCTION", true},
		{" prod ", true},
		{"development", false},
		{"", false},
	}

	for _, tt := range tests {
		cfg := &Config{Environment: tt.env}
		assert.Equal(t, tt.want, cfg.IsProduction(), "env %q", tt.env)
	}
}
