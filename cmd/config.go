package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/fadhlirahim/llm-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	configShowFlag     bool
	configAPIKey       string
	configSystemPrompt string
	configBaseURL      string
	configAPIPath      string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update llm-cli configuration",
	Long: `Show or update the configuration file.

Values given as flags are written to the config file. The global --model
and --max-tokens flags set the defaults when used with this command.

Examples:
  llm-cli config --show                          # show current config
  llm-cli config --model gpt-4o-mini             # change the default model
  llm-cli config --base-url http://localhost:1234 # use LM Studio
  llm-cli config edit                            # edit in $EDITOR
  llm-cli config completion zsh                  # generate shell completions`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file in $EDITOR",
	RunE:  configEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	RunE:  configPath,
}

var configCompletionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script and print setup instructions.

Examples:
  llm-cli config completion bash
  llm-cli config completion zsh --install`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      configCompletion,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  `Reset the configuration file to default values. This will overwrite any existing configuration.`,
	RunE:  configReset,
}

var installCompletions bool

func init() {
	configCmd.Flags().BoolVarP(&configShowFlag, "show", "s", false, "Show current configuration")
	configCmd.Flags().StringVar(&configAPIKey, "api-key", "", "Set the API key")
	configCmd.Flags().StringVar(&configSystemPrompt, "system-prompt", "", "Set the system prompt")
	configCmd.Flags().StringVar(&configBaseURL, "base-url", "", "Set the API base URL")
	configCmd.Flags().StringVar(&configAPIPath, "api-path", "", "Set the chat completions path")
	configCompletionCmd.Flags().BoolVar(&installCompletions, "install", false, "Install completions to standard location")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCompletionCmd)
	configCmd.AddCommand(configResetCmd)
}

// configTarget is the file config changes are written to.
func configTarget() (string, error) {
	if path := configPathInUse(); path != "" {
		return path, nil
	}
	return config.GetConfigPath()
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadRawConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if configShowFlag {
		if err := showConfig(out, cfg); err != nil {
			return err
		}
	}

	if !applyConfigUpdates(out, cfg) {
		if !configShowFlag {
			fmt.Fprintln(out, "No changes made")
		}
		return nil
	}

	path, err := configTarget()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintln(out, "Configuration saved")
	return nil
}

// applyConfigUpdates copies the flags that were given into cfg and
// reports whether anything changed.
func applyConfigUpdates(out io.Writer, cfg *config.Config) bool {
	changed := false
	update := func(set bool, apply func(), msg string) {
		if !set {
			return
		}
		apply()
		fmt.Fprintln(out, msg)
		changed = true
	}

	update(configAPIKey != "", func() { cfg.APIKey = configAPIKey }, "API key updated")
	update(modelOverride != "", func() { cfg.Model = modelOverride }, "Default model updated")
	update(maxTokensFlag > 0, func() { cfg.MaxTokens = maxTokensFlag }, "Max tokens updated")
	update(configSystemPrompt != "", func() { cfg.SystemPrompt = configSystemPrompt }, "System prompt updated")
	update(configBaseURL != "", func() { cfg.BaseURL = configBaseURL }, "Base URL updated")
	update(configAPIPath != "", func() { cfg.APIPath = configAPIPath }, "API path updated")
	return changed
}

// showConfig prints cfg as TOML with the API key masked.
func showConfig(out io.Writer, cfg *config.Config) error {
	masked := *cfg
	masked.APIKey = cfg.MaskedAPIKey()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(masked); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	out.Write(buf.Bytes())
	fmt.Fprintf(out, "\nFull API URL: %s\n", cfg.APIURL())
	return nil
}

func configEdit(cmd *cobra.Command, args []string) error {
	path, err := configTarget()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(config.Default(), path); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	return editorCmd.Run()
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := configTarget()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configReset(cmd *cobra.Command, args []string) error {
	path, err := configTarget()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config reset to defaults: %s\n", path)
	return nil
}

func configCompletion(cmd *cobra.Command, args []string) error {
	shell := args[0]

	if installCompletions {
		return installShellCompletion(shell)
	}

	out := cmd.OutOrStdout()
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletion(out)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

func installShellCompletion(shell string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	var path string
	var buf bytes.Buffer

	switch shell {
	case "bash":
		path = filepath.Join(home, ".bash_completion.d", "llm-cli")
		err = rootCmd.GenBashCompletion(&buf)
	case "zsh":
		path = filepath.Join(home, ".local", "share", "zsh", "site-functions", "_llm-cli")
		err = rootCmd.GenZshCompletion(&buf)
	case "fish":
		path = filepath.Join(home, ".config", "fish", "completions", "llm-cli.fish")
		err = rootCmd.GenFishCompletion(&buf, true)
	case "powershell":
		path = filepath.Join(home, ".config", "powershell", "completions", "llm-cli.ps1")
		err = rootCmd.GenPowerShellCompletionWithDesc(&buf)
	default:
		return fmt.Errorf("unknown shell: %s", shell)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write completion file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Installed completions to %s\n", path)
	fmt.Fprintln(os.Stderr)
	switch shell {
	case "bash":
		fmt.Fprintln(os.Stderr, "Add to ~/.bashrc:")
		fmt.Fprintf(os.Stderr, "  source %s\n", path)
	case "zsh":
		fmt.Fprintln(os.Stderr, "Ensure ~/.zshrc has (before compinit):")
		fmt.Fprintf(os.Stderr, "  fpath+=(%s)\n", dir)
		fmt.Fprintln(os.Stderr, "  autoload -U compinit && compinit")
	case "fish":
		fmt.Fprintln(os.Stderr, "Completions will be loaded automatically.")
	case "powershell":
		fmt.Fprintln(os.Stderr, "Add to your PowerShell profile:")
		fmt.Fprintf(os.Stderr, "  . %s\n", path)
	}
	return nil
}
