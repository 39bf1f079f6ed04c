// Package streaming renders markdown arriving as arbitrary text fragments
// from an LLM response. Ordinary lines are displayed as soon as they are
// final, while tables and fenced code blocks are held back until they are
// complete so they can be drawn as a grid or highlighted in one piece.
package streaming

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// SegmentKind identifies what a Segment holds.
type SegmentKind int

const (
	SegmentText  SegmentKind = iota // Display text, possibly a partial line
	SegmentTable                    // A rendered table
	SegmentCode                     // A highlighted code block
)

// Segment is one piece of output, in display order.
type Segment struct {
	Kind SegmentKind
	Text string
	Lang string // language tag, SegmentCode only
}

// Output is the result of one ProcessChunk call.
type Output struct {
	Segments []Segment

	// BufferingTable is true while a table is being held back. It is never
	// true inside a code block.
	BufferingTable bool
}

// Text returns the display text of the call, special blocks excluded.
func (o Output) Text() string {
	var sb strings.Builder
	for _, seg := range o.Segments {
		if seg.Kind == SegmentText {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

// Special returns the last table or code block completed during the call.
func (o Output) Special() (string, bool) {
	for i := len(o.Segments) - 1; i >= 0; i-- {
		if o.Segments[i].Kind != SegmentText {
			return o.Segments[i].Text, true
		}
	}
	return "", false
}

// String returns every segment concatenated in display order.
func (o Output) String() string {
	var sb strings.Builder
	for _, seg := range o.Segments {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// Empty reports whether the call produced nothing to display.
func (o Output) Empty() bool {
	return len(o.Segments) == 0
}

func (o *Output) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(o.Segments); n > 0 && o.Segments[n-1].Kind == SegmentText {
		o.Segments[n-1].Text += s
		return
	}
	o.Segments = append(o.Segments, Segment{Kind: SegmentText, Text: s})
}

func (o *Output) appendBlock(kind SegmentKind, s, lang string) {
	o.Segments = append(o.Segments, Segment{Kind: kind, Text: terminate(s), Lang: lang})
}

// terminate makes sure a block ends on its own line.
func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// bufferState is the mode-specific payload of a Buffer. Table rows and code
// lines are only reachable while their mode is active.
type bufferState interface {
	Mode() Mode
}

type normalMode struct{}

func (normalMode) Mode() Mode { return ModeNormal }

// Buffer is the streaming markdown state machine. A Buffer serves exactly
// one response: create it when the reply starts, feed it with ProcessChunk,
// and call Flush once when the reply ends or is cancelled.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	lines lineAssembler
	state bufferState

	// shown is the formatted text of the pending line already displayed by
	// the look-ahead.
	shown string

	tables      TableRenderer
	highlighter Highlighter
	formatter   LineFormatter
	log         *slog.Logger
}

// New creates a Buffer in ModeNormal. Without options tables and code are
// rendered as plain text and lines are passed through unchanged.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		state:       normalMode{},
		tables:      TableRendererFunc(plainTable),
		highlighter: HighlighterFunc(plainCode),
		formatter:   plainLine{},
		log:         discardLogger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mode returns the current buffering mode.
func (b *Buffer) Mode() Mode {
	return b.state.Mode()
}

// BufferingTable reports whether a table is currently being held back.
func (b *Buffer) BufferingTable() bool {
	return b.state.Mode() == ModeBufferingTable
}

// ProcessChunk feeds one fragment and returns what can be displayed now.
func (b *Buffer) ProcessChunk(fragment string) Output {
	b.log.Debug("stream chunk", "len", len(fragment), "chunk", fragment)

	var out Output
	for _, line := range b.lines.feed(fragment) {
		shown := b.shown
		b.shown = ""
		b.processLine(line, shown, &out)
	}
	b.lookAhead(&out)

	out.BufferingTable = b.BufferingTable()
	if !out.Empty() {
		b.log.Debug("stream output", "segments", len(out.Segments), "text", out.Text())
	}
	return out
}

// processLine moves one complete line through the state machine. shown is
// what the look-ahead already displayed of line.
func (b *Buffer) processLine(line, shown string, out *Output) {
	construct, lang := Classify(line, b.Mode())

	switch construct {
	case ContinueCodeFence:
		b.state.(*codeMode).add(line)
	case EndCodeFence:
		b.closeCode(out)
	case ContinueTable:
		b.state.(*tableMode).add(line)
	case EndTable:
		b.closeTable(out)
		// The line that ended the table gets a normal pass of its own.
		b.processLine(line, shown, out)
	case StartCodeFence:
		b.transition(&codeMode{lang: lang})
	case StartTable:
		b.transition(&tableMode{rows: []string{line}})
	default:
		b.emitLine(line, shown, out)
	}
}

// emitLine displays an ordinary line, formatted. A line that was partly
// displayed before it completed only gets the rest of its formatted text.
func (b *Buffer) emitLine(line, shown string, out *Output) {
	out.appendText(b.remainder(b.formatter.FormatLine(line), shown) + "\n")
}

// remainder returns the part of formatted that still has to be displayed
// after shown. A formatter that broke its StablePrefix promise gets the
// line redrawn.
func (b *Buffer) remainder(formatted, shown string) string {
	if rest, ok := strings.CutPrefix(formatted, shown); ok {
		return rest
	}
	b.log.Debug("stream redraw", "shown", shown, "formatted", formatted)
	return "\r" + ansi.EraseEntireLine + formatted
}

// lookAhead displays the settled part of the pending partial line. Only
// ModeNormal displays early, and never for a line that could still open a
// table or code fence.
func (b *Buffer) lookAhead(out *Output) {
	if b.Mode() != ModeNormal {
		return
	}
	partial := b.lines.partial()
	if partial == "" || mayStartConstruct(partial) {
		return
	}
	pf, ok := b.formatter.(PrefixFormatter)
	if !ok {
		return
	}
	stable := pf.StablePrefix(partial)
	if len(stable) <= len(b.shown) || !strings.HasPrefix(stable, b.shown) {
		return
	}
	out.appendText(stable[len(b.shown):])
	b.shown = stable
}

func (b *Buffer) transition(next bufferState) {
	b.log.Debug("stream mode", "from", b.Mode().String(), "to", next.Mode().String())
	b.state = next
}

func (b *Buffer) closeCode(out *Output) {
	code := b.state.(*codeMode)
	b.transition(normalMode{})
	out.appendBlock(SegmentCode, code.render(b.highlighter), code.lang)
	b.log.Debug("stream code block", "lang", code.lang, "lines", len(code.lines))
}

func (b *Buffer) closeTable(out *Output) {
	table := b.state.(*tableMode)
	b.transition(normalMode{})
	text, ok := renderTable(b.tables, table.rows)
	if !ok {
		// Too few rows for a grid: show what was typed.
		b.log.Debug("stream table fallback", "rows", len(table.rows))
		out.appendText(text + "\n")
		return
	}
	out.appendBlock(SegmentTable, text, "")
	b.log.Debug("stream table", "rows", len(table.rows))
}

// Flush drains everything still pending at the end of a response and
// returns false when nothing was pending. The Buffer is back in ModeNormal
// after.
//
// The unterminated last line is not always shown after the open block. In
// a code block it becomes the block's last line unless it is a closing
// fence. After an open table it is added as a final row when it looks like
// one, otherwise it follows the rendered table as an ordinary line. Outside
// both it is formatted like any other line.
func (b *Buffer) Flush() (string, bool) {
	partial := b.lines.partial()
	shown := b.shown
	b.lines.reset()
	b.shown = ""

	var out Output
	switch state := b.state.(type) {
	case *codeMode:
		if partial != "" && !isClosingFence(partial) {
			state.add(partial)
		}
		b.closeCode(&out)
	case *tableMode:
		if isTableRow(partial) {
			state.add(partial)
			partial = ""
		}
		b.closeTable(&out)
		b.flushPartial(partial, "", &out)
	default:
		b.flushPartial(partial, shown, &out)
	}

	text := out.String()
	b.log.Debug("stream flush", "len", len(text))
	return text, text != ""
}

func (b *Buffer) flushPartial(partial, shown string, out *Output) {
	if partial == "" {
		return
	}
	out.appendText(b.remainder(b.formatter.FormatLine(partial), shown))
}
