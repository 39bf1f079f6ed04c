package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fadhlirahim/llm-cli/internal/session"
	"github.com/fadhlirahim/llm-cli/internal/ui"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage across stored sessions",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if st.Sessions == 0 {
		fmt.Fprintln(out, "No sessions recorded yet. Usage is recorded for every chat and query.")
		return nil
	}

	fmt.Fprintf(out, "Sessions: %d\n", st.Sessions)
	fmt.Fprintf(out, "Messages: %d\n", st.Messages)
	fmt.Fprintf(out, "Tokens:   %s (input: %d, output: %d)\n\n",
		formatSessionCount(st.TotalTokens), st.InputTokens, st.OutputTokens)

	fmt.Fprint(out, ui.NewTableRenderer(ui.TableWidth()).RenderTable(modelStatsRows(st.ByModel)))
	return nil
}

// modelStatsRows lays out per-model usage with a header row.
func modelStatsRows(models []session.ModelStats) [][]string {
	rows := [][]string{{"Model", "Sessions", "Tokens"}}
	for _, m := range models {
		model := m.Model
		if model == "" {
			model = "(unknown)"
		}
		rows = append(rows, []string{model, strconv.Itoa(m.Sessions), formatSessionCount(m.TotalTokens)})
	}
	return rows
}
