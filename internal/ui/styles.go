package ui

import (
	"os"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette for the UI
type Theme struct {
	Primary   lipgloss.Color // headings, prompts, commands
	Secondary lipgloss.Color // borders, section titles
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Muted     lipgloss.Color // hints, quotes, timestamps
	Text      lipgloss.Color
	Code      lipgloss.Color // inline code
	Spinner   lipgloss.Color
}

// DefaultTheme returns the default color theme (gruvbox)
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#b8bb26"),
		Secondary: lipgloss.Color("#83a598"),
		Success:   lipgloss.Color("#b8bb26"),
		Error:     lipgloss.Color("#fb4934"),
		Warning:   lipgloss.Color("#fabd2f"),
		Muted:     lipgloss.Color("#928374"),
		Text:      lipgloss.Color("#ebdbb2"),
		Code:      lipgloss.Color("#fe8019"),
		Spinner:   lipgloss.Color("#d3869b"),
	}
}

// ThemeConfig mirrors config.ThemeConfig for applying overrides.
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB).
type ThemeConfig struct {
	Preset    string
	Primary   string
	Secondary string
	Error     string
	Muted     string
	Code      string
	Spinner   string
}

// presets are named palettes selectable with theme.preset.
var presets = map[string]ThemeConfig{
	"gruvbox": {},
	"classic": {Primary: "10", Secondary: "4", Error: "9", Muted: "245", Code: "11", Spinner: "205"},
	"nord":    {Primary: "#88c0d0", Secondary: "#81a1c1", Error: "#bf616a", Muted: "#4c566a", Code: "#ebcb8b", Spinner: "#b48ead"},
	"dracula": {Primary: "#bd93f9", Secondary: "#8be9fd", Error: "#ff5555", Muted: "#6272a4", Code: "#ffb86c", Spinner: "#ff79c6"},
}

// PresetNames returns the names accepted by theme.preset.
func PresetNames() []string {
	return []string{"gruvbox", "classic", "nord", "dracula"}
}

// ThemeFromConfig creates a theme from a preset with per-color overrides
// applied on top.
func ThemeFromConfig(cfg ThemeConfig) *Theme {
	theme := DefaultTheme()
	if preset, ok := presets[cfg.Preset]; ok {
		applyThemeConfig(theme, preset)
	}
	applyThemeConfig(theme, cfg)
	return theme
}

func applyThemeConfig(theme *Theme, cfg ThemeConfig) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&theme.Primary, cfg.Primary)
	set(&theme.Secondary, cfg.Secondary)
	set(&theme.Error, cfg.Error)
	set(&theme.Muted, cfg.Muted)
	set(&theme.Code, cfg.Code)
	set(&theme.Spinner, cfg.Spinner)
}

// currentTheme is the active theme instance
var currentTheme = DefaultTheme()

// GetTheme returns the current active theme
func GetTheme() *Theme {
	return currentTheme
}

// SetTheme sets the current active theme
func SetTheme(t *Theme) {
	currentTheme = t
}

// InitTheme initializes the theme from config
func InitTheme(cfg ThemeConfig) {
	SetTheme(ThemeFromConfig(cfg))
}

// Styles holds lipgloss styles bound to one renderer.
type Styles struct {
	renderer *lipgloss.Renderer
	theme    *Theme

	Title      lipgloss.Style
	Heading    lipgloss.Style
	Bold       lipgloss.Style
	Italic     lipgloss.Style
	Code       lipgloss.Style
	Quote      lipgloss.Style
	Bullet     lipgloss.Style
	Rule       lipgloss.Style
	Success    lipgloss.Style
	Error      lipgloss.Style
	Muted      lipgloss.Style
	Command    lipgloss.Style
	Role       lipgloss.Style
	Spinner    lipgloss.Style
	Border     lipgloss.Style
	WelcomeBox lipgloss.Style
}

// NewStyles creates styles for the given output using the current theme.
// NO_COLOR and CLICOLOR=0 force plain output.
func NewStyles(output *os.File) *Styles {
	r := lipgloss.NewRenderer(output)
	if termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return NewStylesWithRenderer(r, currentTheme)
}

// NewStylesWithRenderer creates styles bound to r. Tests use it with a
// renderer pinned to a fixed color profile.
func NewStylesWithRenderer(r *lipgloss.Renderer, theme *Theme) *Styles {
	return &Styles{
		renderer: r,
		theme:    theme,

		Title:   r.NewStyle().Bold(true).Foreground(theme.Secondary),
		Heading: r.NewStyle().Bold(true).Foreground(theme.Primary),
		Bold:    r.NewStyle().Bold(true),
		Italic:  r.NewStyle().Italic(true),
		Code:    r.NewStyle().Foreground(theme.Code),
		Quote:   r.NewStyle().Italic(true).Foreground(theme.Muted),
		Bullet:  r.NewStyle().Foreground(theme.Secondary),
		Rule:    r.NewStyle().Foreground(theme.Muted),
		Success: r.NewStyle().Foreground(theme.Success),
		Error:   r.NewStyle().Bold(true).Foreground(theme.Error),
		Muted:   r.NewStyle().Foreground(theme.Muted),
		Command: r.NewStyle().Foreground(theme.Secondary),
		Role:    r.NewStyle().Bold(true).Foreground(theme.Primary),
		Spinner: r.NewStyle().Foreground(theme.Spinner),
		Border:  r.NewStyle().Foreground(theme.Secondary),
		WelcomeBox: r.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.Secondary).
			Bold(true).
			Padding(0, 9),
	}
}

// DefaultStyles returns styles for stdout, where replies are printed.
func DefaultStyles() *Styles {
	return NewStyles(os.Stdout)
}

// Theme returns the theme used by these styles
func (s *Styles) Theme() *Theme {
	return s.theme
}

// GlamourStyle returns the dark glamour style recolored with the current theme.
func GlamourStyle() ansi.StyleConfig {
	return GlamourStyleFromTheme(currentTheme)
}

// GlamourStyleFromTheme recolors glamour's dark style with theme.
func GlamourStyleFromTheme(theme *Theme) ansi.StyleConfig {
	style := styles.DarkStyleConfig
	primary := string(theme.Primary)
	secondary := string(theme.Secondary)
	code := string(theme.Code)
	muted := string(theme.Muted)

	style.Heading.Color = &primary
	style.Link.Color = &secondary
	style.Code.Color = &code
	style.BlockQuote.Color = &muted

	margin := uint(0)
	style.Document.Margin = &margin
	style.Document.BlockPrefix = ""
	style.Document.BlockSuffix = ""
	return style
}
