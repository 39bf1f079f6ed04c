package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fadhlirahim/llm-cli/internal/config"
	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/fadhlirahim/llm-cli/internal/session"
	"github.com/fadhlirahim/llm-cli/internal/ui"
)

// configPathInUse returns the --config flag, then OPENAI_CONFIG, then ""
// for the default location.
func configPathInUse() string {
	if configFile != "" {
		return configFile
	}
	return os.Getenv("OPENAI_CONFIG")
}

// loadRawConfig loads the config file without applying flag overrides.
func loadRawConfig() (*config.Config, error) {
	cfg, err := config.Load(configPathInUse())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadConfig loads the config and applies --model and --max-tokens.
func loadConfig() (*config.Config, error) {
	cfg, err := loadRawConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(modelOverride, maxTokensFlag)
	if cfg.Debug && !debugMode {
		debugMode = true
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return cfg, nil
}

func initThemeFromConfig(cfg *config.Config) {
	ui.InitTheme(ui.ThemeConfig{
		Preset:    cfg.Theme.Preset,
		Primary:   cfg.Theme.Primary,
		Secondary: cfg.Theme.Secondary,
		Error:     cfg.Theme.Error,
		Muted:     cfg.Theme.Muted,
		Code:      cfg.Theme.Code,
		Spinner:   cfg.Theme.Spinner,
	})
}

// newClient creates the API client described by cfg.
func newClient(cfg *config.Config) (*llm.OpenAIClient, error) {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	return llm.NewOpenAIClient(llm.ClientConfig{
		BaseURL:     cfg.BaseURL,
		APIPath:     cfg.APIPath,
		APIKey:      apiKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout(),
		Logger:      slog.Default(),
	}), nil
}

// newStreamingProvider wraps client with retries for stream creation.
func newStreamingProvider(client *llm.OpenAIClient) llm.Provider {
	return llm.WrapWithRetry(client, llm.DefaultRetryConfig())
}

// newRenderers builds the reply renderers for stdout.
func newRenderers(styles *ui.Styles) ui.Renderers {
	r := ui.NewRenderers(styles, ui.TableWidth(), ui.ColorEnabled(os.Stdout))
	if debugMode {
		r.Logger = slog.Default()
	}
	return r
}

// openSessionStore opens the configured store. Persistence problems are
// reported on warn and never stop a chat.
func openSessionStore(cfg *config.Config, warn io.Writer) session.Store {
	store, err := session.NewStore(session.Config{
		Enabled:  cfg.Sessions.Enabled,
		MaxCount: cfg.Sessions.MaxCount,
		Path:     cfg.Sessions.Path,
	})
	if err != nil {
		fmt.Fprintf(warn, "warning: session storage unavailable: %v\n", err)
		return &session.NoopStore{}
	}
	return session.NewLoggingStore(store, func(format string, args ...any) {
		fmt.Fprintf(warn, "warning: "+format+"\n", args...)
	})
}

// historyFile is where the chat prompt keeps its line history.
func historyFile() string {
	dir, err := session.DataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// conversationRequest builds a request for the session's conversation.
func conversationRequest(cfg *config.Config, sess *session.Session) llm.Request {
	return llm.Request{
		Model:       sess.Model,
		Messages:    sess.History(),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}
