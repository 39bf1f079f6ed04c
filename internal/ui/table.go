package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
)

// minColumnWidth keeps narrow terminals from wrapping cells into one
// character per line.
const minColumnWidth = 8

// TableRenderer draws markdown tables as bordered grids no wider than the
// configured width. The first row is the header.
type TableRenderer struct {
	width int
}

// NewTableRenderer creates a renderer bounded to width columns.
func NewTableRenderer(width int) *TableRenderer {
	return &TableRenderer{width: width}
}

// RenderTable renders rows, header first. Short rows are padded with
// empty cells.
func (r *TableRenderer) RenderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	rows = normalizeRows(rows)

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(true)
	table.SetReflowDuringAutoWrap(true)
	table.SetColWidth(r.columnWidth(rows))
	table.SetHeader(rows[0])
	table.AppendBulk(rows[1:])
	table.Render()
	return buf.String()
}

// columnWidth returns the widest cell when the table fits the width, and
// an even share of the width otherwise.
func (r *TableRenderer) columnWidth(rows [][]string) int {
	cols := len(rows[0])
	widest := 0
	natural := 0
	for c := 0; c < cols; c++ {
		colMax := 0
		for _, row := range rows {
			colMax = max(colMax, runewidth.StringWidth(row[c]))
		}
		widest = max(widest, colMax)
		natural += colMax
	}

	// Each column adds "| " and " " around its content, plus the final "|".
	overhead := 3*cols + 1
	if r.width <= 0 || natural+overhead <= r.width {
		return max(widest, minColumnWidth)
	}
	return max((r.width-overhead)/cols, minColumnWidth)
}

func normalizeRows(rows [][]string) [][]string {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, cols)
		copy(padded, row)
		out[i] = padded
	}
	return out
}
