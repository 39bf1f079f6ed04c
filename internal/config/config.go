package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// ErrAPIKeyNotFound is returned when a remote API is configured without a key.
var ErrAPIKeyNotFound = errors.New("API key not found. Please set OPENAI_API_KEY environment variable")

// localServiceKey stands in for the key of servers that do not check one.
const localServiceKey = "local-service"

const (
	DefaultModel        = "gpt-4o"
	DefaultMaxTokens    = 4096
	DefaultBaseURL      = "https://api.openai.com"
	DefaultAPIPath      = "/v1/chat/completions"
	DefaultSystemPrompt = "You are a helpful assistant. Answer in a clear and concise manner."
	DefaultTimeout      = 30
	DefaultTemperature  = 0.7
)

type Config struct {
	APIKey         string         `mapstructure:"api_key" toml:"api_key,omitempty"`
	Model          string         `mapstructure:"model" toml:"model"`
	MaxTokens      int            `mapstructure:"max_tokens" toml:"max_tokens"`
	BaseURL        string         `mapstructure:"base_url" toml:"base_url"`
	APIPath        string         `mapstructure:"api_path" toml:"api_path"`
	SystemPrompt   string         `mapstructure:"system_prompt" toml:"system_prompt"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	Temperature    float64        `mapstructure:"temperature" toml:"temperature"`
	Debug          bool           `mapstructure:"debug" toml:"debug"`
	Theme          ThemeConfig    `mapstructure:"theme" toml:"theme"`
	Sessions       SessionsConfig `mapstructure:"sessions" toml:"sessions"`
}

// ThemeConfig allows customization of UI colors
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Preset    string `mapstructure:"preset" toml:"preset,omitempty"` // gruvbox, classic, nord, dracula
	Primary   string `mapstructure:"primary" toml:"primary,omitempty"`
	Secondary string `mapstructure:"secondary" toml:"secondary,omitempty"`
	Error     string `mapstructure:"error" toml:"error,omitempty"`
	Muted     string `mapstructure:"muted" toml:"muted,omitempty"`
	Code      string `mapstructure:"code" toml:"code,omitempty"`
	Spinner   string `mapstructure:"spinner" toml:"spinner,omitempty"`
}

// SessionsConfig controls the session store
type SessionsConfig struct {
	Enabled  bool   `mapstructure:"enabled" toml:"enabled"`
	MaxCount int    `mapstructure:"max_count" toml:"max_count"` // 0 keeps every session
	Path     string `mapstructure:"path" toml:"path,omitempty"` // database path override
}

// envBindings maps config keys to the environment variables overriding them.
var envBindings = map[string]string{
	"api_key":    "OPENAI_API_KEY",
	"model":      "OPENAI_MODEL",
	"max_tokens": "OPENAI_MAX_TOKENS",
	"base_url":   "OPENAI_BASE_URL",
	"api_path":   "OPENAI_API_PATH",
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Model:          DefaultModel,
		MaxTokens:      DefaultMaxTokens,
		BaseURL:        DefaultBaseURL,
		APIPath:        DefaultAPIPath,
		SystemPrompt:   DefaultSystemPrompt,
		TimeoutSeconds: DefaultTimeout,
		Temperature:    DefaultTemperature,
		Sessions: SessionsConfig{
			Enabled:  true,
			MaxCount: 100,
		},
	}
}

// Load reads the config file at path, or the default location when path
// is empty, and applies environment overrides. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		configDir, err := GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath(configDir)
	}

	def := Default()
	v.SetDefault("model", def.Model)
	v.SetDefault("max_tokens", def.MaxTokens)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("api_path", def.APIPath)
	v.SetDefault("system_prompt", def.SystemPrompt)
	v.SetDefault("timeout_seconds", def.TimeoutSeconds)
	v.SetDefault("temperature", def.Temperature)
	v.SetDefault("debug", false)
	v.SetDefault("sessions.enabled", def.Sessions.Enabled)
	v.SetDefault("sessions.max_count", def.Sessions.MaxCount)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIKey = expandEnv(cfg.APIKey)
	return &cfg, nil
}

// ApplyOverrides applies command line overrides. Empty or zero values
// leave the config unchanged.
func (c *Config) ApplyOverrides(model string, maxTokens int) {
	if model != "" {
		c.Model = model
	}
	if maxTokens > 0 {
		c.MaxTokens = maxTokens
	}
}

// APIURL returns the full chat completions endpoint.
func (c *Config) APIURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.APIPath
}

// IsLocal reports whether the API runs on this machine (LM Studio, Ollama).
func (c *Config) IsLocal() bool {
	for _, prefix := range []string{"http://localhost", "http://127.0.0.1", "http://0.0.0.0"} {
		if strings.HasPrefix(c.BaseURL, prefix) {
			return true
		}
	}
	return false
}

// ResolveAPIKey returns the key to send. Local services need none.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.IsLocal() {
		return localServiceKey, nil
	}
	return "", ErrAPIKeyNotFound
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaskedAPIKey returns the key with everything but its ends hidden.
func (c *Config) MaskedAPIKey() string {
	switch {
	case c.APIKey == "":
		return "(not set)"
	case len(c.APIKey) <= 8:
		return "****"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for llm-cli.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "llm-cli"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "llm-cli"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// Save writes cfg as TOML to path, or to the default location when path
// is empty. The file may hold an API key, so it is only readable by the
// owner.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	return f.Close()
}
