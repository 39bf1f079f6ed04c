package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fadhlirahim/llm-cli/internal/config"
	"github.com/fadhlirahim/llm-cli/internal/ui"
	"github.com/spf13/cobra"
)

var configThemeCmd = &cobra.Command{
	Use:   "theme [preset]",
	Short: "List or select a UI color theme",
	Long: `List the predefined color themes, or select one.

Without an argument every preset is shown with a preview of its colors.
With an argument the preset is saved to the config file. Individual
colors set under [theme] still override the preset.

Examples:
  llm-cli config theme
  llm-cli config theme nord`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: ui.PresetNames(),
	RunE:      configTheme,
}

func init() {
	configCmd.AddCommand(configThemeCmd)
}

func configTheme(cmd *cobra.Command, args []string) error {
	cfg, err := loadRawConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		current := cfg.Theme.Preset
		if current == "" {
			current = ui.PresetNames()[0]
		}
		printThemePresets(out, lipgloss.NewRenderer(os.Stdout), current)
		return nil
	}

	name := strings.ToLower(args[0])
	if !slices.Contains(ui.PresetNames(), name) {
		return fmt.Errorf("unknown theme %q: must be one of %s", args[0], strings.Join(ui.PresetNames(), ", "))
	}
	cfg.Theme.Preset = name

	path, err := configTarget()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	fmt.Fprintf(out, "Theme set to: %s\n", name)
	return nil
}

// printThemePresets lists every preset with a swatch of its colors and
// marks the active one.
func printThemePresets(out io.Writer, r *lipgloss.Renderer, current string) {
	for _, name := range ui.PresetNames() {
		theme := ui.ThemeFromConfig(ui.ThemeConfig{Preset: name})
		marker := "  "
		if name == current {
			marker = "* "
		}
		var swatch strings.Builder
		for _, c := range []lipgloss.Color{theme.Primary, theme.Secondary, theme.Code, theme.Error, theme.Muted, theme.Spinner} {
			swatch.WriteString(r.NewStyle().Foreground(c).Render("██"))
		}
		fmt.Fprintf(out, "%s%-10s %s\n", marker, name, swatch.String())
	}
}
