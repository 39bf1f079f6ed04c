package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured API",
	Long: `List the models the configured API reports.

When the server cannot list its models a set of common OpenAI models is
shown instead.

Examples:
  llm-cli models
  llm-cli models --json`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
}

// ModelLister is implemented by clients that can list available models
type ModelLister interface {
	ListModels(ctx context.Context) ([]llm.ModelInfo, error)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var models []llm.ModelInfo
	client, err := newClient(cfg)
	if err == nil {
		if !modelsJSON {
			fmt.Fprintf(out, "Fetching available models from %s...\n\n", cfg.BaseURL)
		}
		models, err = fetchModels(cmd.Context(), client)
	}

	if modelsJSON {
		return printModelsJSON(out, models, err)
	}
	if err != nil {
		printFallbackModels(out, err)
		return nil
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "No models available")
		return nil
	}

	fmt.Fprintln(out, "Available models:")
	for _, m := range models {
		fmt.Fprintf(out, "  - %s\n", m.ID)
	}
	return nil
}

// fetchModels lists models sorted by id.
func fetchModels(ctx context.Context, lister ModelLister) ([]llm.ModelInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func printFallbackModels(out io.Writer, err error) {
	fmt.Fprintf(out, "Could not fetch models from API: %v\n", err)
	fmt.Fprintln(out, "\nCommon OpenAI models:")
	for _, m := range llm.FallbackModels {
		fmt.Fprintf(out, "  - %s\n", m)
	}
	fmt.Fprintln(out, "\nFor LM Studio, check the loaded model in the LM Studio interface.")
}

func printModelsJSON(out io.Writer, models []llm.ModelInfo, fetchErr error) error {
	type jsonModel struct {
		ID      string `json:"id"`
		Created int64  `json:"created,omitempty"`
		OwnedBy string `json:"owned_by,omitempty"`
	}
	list := make([]jsonModel, 0, len(models))
	if fetchErr != nil {
		for _, m := range llm.FallbackModels {
			list = append(list, jsonModel{ID: m})
		}
	}
	for _, m := range models {
		list = append(list, jsonModel{ID: m.ID, Created: m.Created, OwnedBy: m.OwnedBy})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}
