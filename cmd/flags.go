package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// outputFormat selects how query prints a reply.
type outputFormat string

const (
	formatText     outputFormat = "text"
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
)

var outputFormats = []string{string(formatText), string(formatJSON), string(formatMarkdown)}

// parseOutputFormat validates a --format value.
func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of %s", s, strings.Join(outputFormats, ", "))
}

// AddFormatFlag adds the --format/-f flag with completion
func AddFormatFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "format", "f", string(formatText), "Output format: "+strings.Join(outputFormats, ", "))
	if err := cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp)); err != nil {
		panic("failed to register format completion: " + err.Error())
	}
}

// AddFileFlag adds the repeatable --file flag
func AddFileFlag(cmd *cobra.Command, dest *[]string, description string) {
	cmd.Flags().StringArrayVar(dest, "file", nil, description)
}

// AddNoStreamFlag adds the --no-stream flag
func AddNoStreamFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "no-stream", false, "Wait for the whole reply instead of streaming it")
}

// AddMultilineFlag adds the --multiline flag
func AddMultilineFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "multiline", false, "Read multi-line messages (finish with Ctrl-D or a line with '.')")
}
