package streaming

import "strings"

// Mode is the buffering mode of a Buffer. Only complete lines move a
// Buffer between modes.
type Mode int

const (
	ModeNormal             Mode = iota // Lines are displayed as they complete
	ModeBufferingTable                 // Table rows are held until the table ends
	ModeBufferingCodeBlock             // Fenced code is held until the closing fence
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeBufferingTable:
		return "table"
	case ModeBufferingCodeBlock:
		return "code"
	}
	return "unknown"
}

// Construct is the classification of one complete line.
type Construct int

const (
	Ordinary Construct = iota
	StartTable
	ContinueTable
	EndTable // the line is not part of the table and is reclassified under ModeNormal
	StartCodeFence
	ContinueCodeFence
	EndCodeFence
)

func (c Construct) String() string {
	switch c {
	case Ordinary:
		return "ordinary"
	case StartTable:
		return "start-table"
	case ContinueTable:
		return "continue-table"
	case EndTable:
		return "end-table"
	case StartCodeFence:
		return "start-code"
	case ContinueCodeFence:
		return "continue-code"
	case EndCodeFence:
		return "end-code"
	}
	return "unknown"
}

// DefaultLanguage is the language tag of a fence opened without one.
const DefaultLanguage = "text"

const fenceMarker = "```"

// Classify decides what line means given the current mode. Lang is only
// set for StartCodeFence.
func Classify(line string, mode Mode) (c Construct, lang string) {
	switch mode {
	case ModeBufferingCodeBlock:
		if isClosingFence(line) {
			return EndCodeFence, ""
		}
		return ContinueCodeFence, ""
	case ModeBufferingTable:
		if isTableRow(line) {
			return ContinueTable, ""
		}
		return EndTable, ""
	}

	if lang, ok := parseFence(line); ok {
		return StartCodeFence, lang
	}
	if isTableRow(line) {
		return StartTable, ""
	}
	return Ordinary, ""
}

// parseFence reports whether line opens a fenced code block and returns
// its language tag.
func parseFence(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, fenceMarker) {
		return "", false
	}
	lang := strings.TrimSpace(strings.TrimLeft(trimmed, "`"))
	if lang == "" {
		lang = DefaultLanguage
	}
	return lang, true
}

// isClosingFence reports whether line is made only of three or more backticks.
func isClosingFence(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= len(fenceMarker) && strings.Trim(trimmed, "`") == ""
}

// isTableRow reports whether line starts and ends with a pipe and has at
// least one pipe in between.
func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 || trimmed[0] != '|' || trimmed[len(trimmed)-1] != '|' {
		return false
	}
	return strings.Contains(trimmed[1:len(trimmed)-1], "|")
}

// isSeparatorRow reports whether every cell of a table row is made of
// dashes, colons and spaces and contains at least one dash.
func isSeparatorRow(line string) bool {
	if !isTableRow(line) {
		return false
	}
	for _, cell := range splitCells(line) {
		if !strings.Contains(cell, "-") {
			return false
		}
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}
	return true
}

// splitCells strips the outer pipes of a row and returns its trimmed cells.
func splitCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	cells := strings.Split(trimmed, "|")
	for i, cell := range cells {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}

// mayStartConstruct is the look-ahead test for an unterminated line in
// ModeNormal: a blank line, a leading pipe or a full fence marker keeps it
// pending.
func mayStartConstruct(partial string) bool {
	trimmed := strings.TrimSpace(partial)
	return trimmed == "" || strings.HasPrefix(trimmed, "|") || strings.HasPrefix(trimmed, fenceMarker)
}
