package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "llm-cli",
	Short: "Chat with OpenAI-compatible models from the terminal",
	Long: `llm-cli talks to OpenAI-compatible chat completion APIs and renders
replies as they stream, including tables and highlighted code blocks.

Examples:
  llm-cli                                  # start a chat session
  llm-cli chat "explain goroutines"        # chat with an opening message
  llm-cli query "list 3 sorting algorithms as a table"
  llm-cli query --file main.go "review this"  # attach a file
  llm-cli config --model gpt-4o-mini       # change the default model
  llm-cli models                           # list available models`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runChat,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
}

var (
	debugMode     bool
	configFile    string
	modelOverride string
	maxTokensFlag int
	showStats     bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug logging (env OPENAI_DEBUG)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (env OPENAI_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&modelOverride, "model", "m", "", "Override the model to use")
	rootCmd.PersistentFlags().IntVarP(&maxTokensFlag, "max-tokens", "t", 0, "Override maximum tokens")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "Show session statistics (time, tokens, retries)")
	addChatFlags(rootCmd)
	if err := rootCmd.RegisterFlagCompletionFunc("model", ModelFlagCompletion); err != nil {
		panic("failed to register model completion: " + err.Error())
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger on stderr. Debug output
// is enabled by --debug or OPENAI_DEBUG.
func setupLogging(cmd *cobra.Command, args []string) error {
	if !debugMode && envBool("OPENAI_DEBUG") {
		debugMode = true
	}
	level := slog.LevelWarn
	if debugMode {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

func envBool(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}
