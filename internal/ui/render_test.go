package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// plainStyles returns styles that render without escape codes so output
// can be compared as text.
func plainStyles() *Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return NewStylesWithRenderer(r, DefaultTheme())
}

func TestFormatLine(t *testing.T) {
	f := NewLineFormatter(plainStyles(), 80)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"blank", "   ", "   "},
		{"heading", "## Results", "Results"},
		{"heading with emphasis", "# The **best** one", "The best one"},
		{"bullet", "- first", "• first"},
		{"nested bullet", "  * second", "  • second"},
		{"numbered", "3. third", "3. third"},
		{"quote", "> quoted text", "│ quoted text"},
		{"bold", "a **bold** word", "a bold word"},
		{"italic", "an *italic* word", "an italic word"},
		{"code span", "run `go **test**` now", "run go **test** now"},
		{"rule", "---", strings.Repeat("─", 40)},
		{"empty bullet", "-", "•"},
		{"bullet with code", "- use `make`", "• use make"},
		{"link", "see [docs](https://x.io)", "see docs (https://x.io)"},
		{"indented prose", "    keep going", "    keep going"},
		{"fence text", "~~~", "~~~"},
		{"strikethrough", "~~old~~ new", "old new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.FormatLine(tt.in); got != tt.want {
				t.Errorf("FormatLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatLineRuleNarrowWidth(t *testing.T) {
	f := NewLineFormatter(plainStyles(), 10)
	if got := f.FormatLine("***"); got != strings.Repeat("─", 10) {
		t.Errorf("got %q", got)
	}
}

func TestTableRenderer(t *testing.T) {
	r := NewTableRenderer(80)
	out := r.RenderTable([][]string{
		{"Name", "Age"},
		{"Alice", "30"},
		{"Bob", "4"},
	})

	for _, cell := range []string{"Name", "Age", "Alice", "30", "Bob"} {
		if !strings.Contains(out, cell) {
			t.Errorf("output missing %q:\n%s", cell, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("expected trailing newline, got %q", out)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) < 5 {
		t.Errorf("expected bordered grid, got %d lines:\n%s", len(lines), out)
	}
	for _, line := range lines {
		if w := ANSILen(line); w > 80 {
			t.Errorf("line wider than 80 columns (%d): %q", w, line)
		}
	}
}

func TestTableRendererPadsShortRows(t *testing.T) {
	out := NewTableRenderer(80).RenderTable([][]string{
		{"a", "b", "c"},
		{"1"},
	})
	if !strings.Contains(out, "1") {
		t.Fatalf("missing cell:\n%s", out)
	}
	header := strings.Split(out, "\n")[1]
	row := strings.Split(out, "\n")[3]
	if strings.Count(header, "|") != strings.Count(row, "|") {
		t.Errorf("row and header have different column counts:\n%s", out)
	}
}

func TestTableRendererEmpty(t *testing.T) {
	if out := NewTableRenderer(80).RenderTable(nil); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestTableColumnWidth(t *testing.T) {
	rows := [][]string{{strings.Repeat("x", 50), strings.Repeat("y", 50)}}

	if got := NewTableRenderer(0).columnWidth(rows); got != 50 {
		t.Errorf("unbounded width: got %d, want 50", got)
	}
	// 2 columns: overhead 7, (60-7)/2 = 26
	if got := NewTableRenderer(60).columnWidth(rows); got != 26 {
		t.Errorf("bounded width: got %d, want 26", got)
	}
	if got := NewTableRenderer(10).columnWidth(rows); got != minColumnWidth {
		t.Errorf("narrow width: got %d, want %d", got, minColumnWidth)
	}
}

func TestCodeHighlighterPlain(t *testing.T) {
	h := NewCodeHighlighter("monokai", plainStyles(), false)

	got := h.Highlight("fn main() {}", "rust")
	want := "```rust\nfn main() {}\n```\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = h.Highlight("just words", "text")
	want = "```\njust words\n```\n"
	if got != want {
		t.Errorf("text block: got %q, want %q", got, want)
	}

	got = h.Highlight("", "go")
	want = "```go\n```\n"
	if got != want {
		t.Errorf("empty block: got %q, want %q", got, want)
	}
}

func TestCodeHighlighterColor(t *testing.T) {
	h := NewCodeHighlighter("monokai", plainStyles(), true)
	code := "package main\n\nfunc main() {}"

	got := h.Highlight(code, "go")
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected escape codes in highlighted output: %q", got)
	}
	if body := StripANSI(got); body != "```go\n"+code+"\n```\n" {
		t.Errorf("stripped output changed the code: %q", body)
	}
}

func TestCodeHighlighterUnknownLanguage(t *testing.T) {
	h := NewCodeHighlighter("no-such-style", plainStyles(), true)
	got := h.Highlight("some stuff", "not-a-language")
	if got != "```not-a-language\nsome stuff\n```\n" {
		t.Errorf("got %q", got)
	}
}

func TestRenderDocument(t *testing.T) {
	r := NewRenderers(plainStyles(), 80, false)
	doc := strings.Join([]string{
		"# Title",
		"",
		"| k | v |",
		"|---|---|",
		"| a | 1 |",
		"",
		"```python",
		"print('hi')",
		"```",
		"done",
	}, "\n")

	out := r.RenderDocument(doc)

	if !strings.HasPrefix(out, "Title\n\n") {
		t.Errorf("heading not formatted: %q", out)
	}
	if strings.Contains(out, "|---|") {
		t.Errorf("separator row leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "```python\nprint('hi')\n```\n") {
		t.Errorf("code block missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "done") {
		t.Errorf("trailing partial line not flushed: %q", out)
	}
	tableAt := strings.Index(out, "a ")
	codeAt := strings.Index(out, "print")
	if tableAt < 0 || codeAt < 0 || tableAt > codeAt {
		t.Errorf("table should precede code:\n%s", out)
	}
}

func TestStablePrefix(t *testing.T) {
	f := NewLineFormatter(plainStyles(), 80)

	tests := []struct {
		partial string
		want    string
	}{
		{"Hello wor", "Hello wor"},
		{"Hello ", "Hello"},
		{"  indented", "  indented"},
		{"a **bo", "a"},
		{"use `go", "use"},
		{"## Res", ""},
		{"- item", ""},
		{"3. x", ""},
		{"> q", ""},
		{"**bold** start", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := f.StablePrefix(tt.partial)
		if got != tt.want {
			t.Errorf("StablePrefix(%q) = %q, want %q", tt.partial, got, tt.want)
		}
	}
}

// colorStyles renders with true color escape codes.
func colorStyles() *Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	return NewStylesWithRenderer(r, DefaultTheme())
}

// A reply must look the same however the provider splits it.
func TestStreamedOutputMatchesDocument(t *testing.T) {
	inputs := []string{
		"## Results\n- first item\n**bold** word\n",
		"Intro with `code` and *emphasis* inline\n" +
			"> a quoted **line**\n" +
			"1. one\n2. two\n" +
			"---\n" +
			"| k | v |\n|---|---|\n| a | 1 |\n" +
			"  ```go\nx := 1\n```\n" +
			"see [docs](https://example.com) for more\n" +
			"last line without newline",
	}

	for _, styles := range []*Styles{plainStyles(), colorStyles()} {
		r := NewRenderers(styles, 80, false)
		for _, input := range inputs {
			want := r.RenderDocument(input)
			for n := 1; n <= 7; n++ {
				if got := renderChunks(r, splitEvery(input, n)); got != want {
					t.Errorf("chunks of %d:\ngot  %q\nwant %q", n, got, want)
				}
			}
			rng := rand.New(rand.NewSource(3))
			for i := 0; i < 30; i++ {
				if got := renderChunks(r, splitRandom(input, 9, rng)); got != want {
					t.Errorf("random chunks:\ngot  %q\nwant %q", got, want)
				}
			}
		}
	}

	r := NewRenderers(plainStyles(), 80, false)
	if got := r.RenderDocument(inputs[0]); got != "Results\n• first item\nbold word\n" {
		t.Errorf("RenderDocument = %q", got)
	}
}

func renderChunks(r Renderers, chunks []string) string {
	buf := r.NewBuffer()
	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(buf.ProcessChunk(chunk).String())
	}
	if rest, ok := buf.Flush(); ok {
		sb.WriteString(rest)
	}
	return sb.String()
}

func splitEvery(input string, n int) []string {
	var chunks []string
	for len(input) > n {
		chunks = append(chunks, input[:n])
		input = input[n:]
	}
	if input != "" {
		chunks = append(chunks, input)
	}
	return chunks
}

func splitRandom(input string, maxChunk int, rng *rand.Rand) []string {
	var chunks []string
	for len(input) > 0 {
		n := min(rng.Intn(maxChunk)+1, len(input))
		chunks = append(chunks, input[:n])
		input = input[n:]
	}
	return chunks
}

func TestFormatJSONResponse(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out, err := FormatJSONResponse("hi there", "gpt-4o", at)
	if err != nil {
		t.Fatalf("FormatJSONResponse: %v", err)
	}

	var decoded JSONResponse
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if decoded.Response != "hi there" || decoded.Model != "gpt-4o" {
		t.Errorf("unexpected fields: %+v", decoded)
	}
	if decoded.Timestamp != "2024-03-01T12:00:00Z" {
		t.Errorf("timestamp = %q", decoded.Timestamp)
	}
}

func TestShowHelp(t *testing.T) {
	var buf bytes.Buffer
	ShowHelp(&buf, plainStyles())
	out := buf.String()

	for _, c := range chatCommands {
		if !strings.Contains(out, c[0]) || !strings.Contains(out, c[1]) {
			t.Errorf("help missing %q", c[0])
		}
	}
	if !strings.Contains(out, "  exit/quit     - End the chat session") {
		t.Errorf("commands not aligned:\n%s", out)
	}
}

func TestShowError(t *testing.T) {
	var buf bytes.Buffer
	ShowError(&buf, plainStyles(), errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestShowHistory(t *testing.T) {
	var buf bytes.Buffer
	entries := []HistoryEntry{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer\n"},
	}
	ShowHistory(&buf, plainStyles(), entries, strings.ToUpper)
	out := buf.String()

	if !strings.Contains(out, "User:\n\nQUESTION\n") {
		t.Errorf("user entry not rendered:\n%s", out)
	}
	if !strings.Contains(out, "Assistant:\n\nANSWER\n") {
		t.Errorf("assistant entry not rendered:\n%s", out)
	}
}

func TestThemeFromConfig(t *testing.T) {
	theme := ThemeFromConfig(ThemeConfig{Preset: "nord", Error: "#000000"})
	if theme.Primary != lipgloss.Color("#88c0d0") {
		t.Errorf("preset not applied: primary = %q", theme.Primary)
	}
	if theme.Error != lipgloss.Color("#000000") {
		t.Errorf("override not applied: error = %q", theme.Error)
	}
	if theme.Text != DefaultTheme().Text {
		t.Errorf("unset colors should keep defaults")
	}

	unknown := ThemeFromConfig(ThemeConfig{Preset: "bogus"})
	if unknown.Primary != DefaultTheme().Primary {
		t.Errorf("unknown preset should fall back to defaults")
	}
}

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, plainStyles(), "Rendering table...")

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("spinner should be running")
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("spinner should be stopped")
	}

	out := buf.String()
	if !strings.Contains(out, "Rendering table...") {
		t.Errorf("message never drawn: %q", out)
	}
	if !strings.HasSuffix(out, "\r\x1b[2K") {
		t.Errorf("spinner line not erased: %q", out)
	}
}
