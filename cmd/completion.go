package cmd

import (
	"strings"

	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/spf13/cobra"
)

// ModelFlagCompletion completes --model with the common model names.
// The server is not queried so completion works offline.
func ModelFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, m := range llm.FallbackModels {
		if strings.HasPrefix(m, toComplete) {
			out = append(out, m)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
