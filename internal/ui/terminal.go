package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const defaultTerminalWidth = 80

// tableMargin is kept free on the right of rendered tables.
const tableMargin = 8

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}

// TableWidth is the width tables are wrapped to.
func TableWidth() int {
	return max(TerminalWidth()-tableMargin, 20)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ColorEnabled reports whether colored output should be written to f.
func ColorEnabled(f *os.File) bool {
	return IsTerminal(f) && !termenv.EnvNoColor()
}
