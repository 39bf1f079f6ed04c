package streaming

import "strings"

// minTableRows is the number of buffered rows (separator included) a table
// needs before it is rendered as a grid.
const minTableRows = 2

// tableMode holds the raw rows of an open table.
type tableMode struct {
	rows []string
}

func (m *tableMode) Mode() Mode { return ModeBufferingTable }

func (m *tableMode) add(line string) {
	m.rows = append(m.rows, line)
}

// parseTable turns buffered rows into a grid, header first. Separator rows
// count toward minTableRows but are dropped from the grid.
func parseTable(rows []string) ([][]string, bool) {
	if len(rows) < minTableRows {
		return nil, false
	}

	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !isTableRow(row) || isSeparatorRow(row) {
			continue
		}
		grid = append(grid, splitCells(row))
	}
	if len(grid) == 0 {
		return nil, false
	}
	return grid, true
}

// renderTable renders the buffered rows with r. ok is false when the rows
// could not be parsed and text holds the literal lines instead.
func renderTable(r TableRenderer, rows []string) (text string, ok bool) {
	grid, ok := parseTable(rows)
	if !ok {
		return strings.Join(rows, "\n"), false
	}
	return r.RenderTable(grid), true
}
