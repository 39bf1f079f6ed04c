package streaming

import (
	"log/slog"
	"strings"
)

// TableRenderer draws a parsed table. The first row is the header.
type TableRenderer interface {
	RenderTable(rows [][]string) string
}

// Highlighter renders a completed fenced block, fence markers included.
type Highlighter interface {
	Highlight(code, lang string) string
}

// LineFormatter styles one ordinary line of markdown.
type LineFormatter interface {
	FormatLine(line string) string
}

// PrefixFormatter is a LineFormatter that can tell how much of an
// unfinished line is already settled. StablePrefix must return a string
// that FormatLine(partial+rest) starts with for any rest. A Buffer whose
// formatter does not implement it holds partial lines until they complete.
type PrefixFormatter interface {
	LineFormatter
	StablePrefix(partial string) string
}

// TableRendererFunc adapts a function to TableRenderer.
type TableRendererFunc func(rows [][]string) string

func (f TableRendererFunc) RenderTable(rows [][]string) string { return f(rows) }

// HighlighterFunc adapts a function to Highlighter.
type HighlighterFunc func(code, lang string) string

func (f HighlighterFunc) Highlight(code, lang string) string { return f(code, lang) }

// LineFormatterFunc adapts a function to LineFormatter.
type LineFormatterFunc func(line string) string

func (f LineFormatterFunc) FormatLine(line string) string { return f(line) }

// Option configures a Buffer.
type Option func(*Buffer)

// WithTableRenderer sets the renderer used for completed tables.
func WithTableRenderer(r TableRenderer) Option {
	return func(b *Buffer) {
		if r != nil {
			b.tables = r
		}
	}
}

// WithHighlighter sets the highlighter used for completed code blocks.
func WithHighlighter(h Highlighter) Option {
	return func(b *Buffer) {
		if h != nil {
			b.highlighter = h
		}
	}
}

// WithLineFormatter sets the formatter applied to ordinary lines.
func WithLineFormatter(f LineFormatter) Option {
	return func(b *Buffer) {
		if f != nil {
			b.formatter = f
		}
	}
}

// WithLogger sets the logger that receives Debug level traces of chunks,
// mode transitions and emitted blocks.
func WithLogger(l *slog.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

var discardLogger = slog.New(slog.DiscardHandler)

// plainTable writes rows back as pipe-delimited lines.
func plainTable(rows [][]string) string {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString(" |\n")
	}
	return sb.String()
}

// plainCode re-fences code without highlighting.
func plainCode(code, lang string) string {
	if lang == DefaultLanguage {
		lang = ""
	}
	return fenceMarker + lang + "\n" + code + "\n" + fenceMarker + "\n"
}

// plainLine passes lines through unchanged, so every partial line is
// already final.
type plainLine struct{}

func (plainLine) FormatLine(line string) string { return line }
func (plainLine) StablePrefix(partial string) string { return partial }
