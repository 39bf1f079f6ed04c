package ui

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"
)

// plainLanguages are tags that mean "no highlighting".
var plainLanguages = map[string]bool{
	"":          true,
	"text":      true,
	"plain":     true,
	"plaintext": true,
	"txt":       true,
}

// CodeHighlighter renders fenced code blocks with chroma. Unknown
// languages fall back to the unstyled code between the fence markers.
type CodeHighlighter struct {
	style  *chroma.Style
	styles *Styles
	color  bool
}

// NewCodeHighlighter creates a highlighter using the named chroma style.
// color false disables ANSI output entirely.
func NewCodeHighlighter(styleName string, s *Styles, color bool) *CodeHighlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &CodeHighlighter{style: style, styles: s, color: color}
}

// Highlight renders code with its fence markers. The language tag is kept
// on the opening fence.
func (h *CodeHighlighter) Highlight(code, lang string) string {
	tag := lang
	if plainLanguages[strings.ToLower(lang)] {
		tag = ""
	}

	var sb strings.Builder
	sb.WriteString(h.styles.Muted.Render("```" + tag))
	sb.WriteString("\n")
	if code != "" {
		sb.WriteString(h.highlightBody(code, tag))
		sb.WriteString("\n")
	}
	sb.WriteString(h.styles.Muted.Render("```"))
	sb.WriteString("\n")
	return sb.String()
}

func (h *CodeHighlighter) highlightBody(code, lang string) string {
	if !h.color || lang == "" {
		return code
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	formatter := &noBgFormatter{style: h.style}
	if err := formatter.Format(&buf, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// noBgFormatter is a Chroma formatter that applies only foreground colors.
// Styles are reset at every newline so a block can be printed line by line.
type noBgFormatter struct {
	style *chroma.Style
}

func (f *noBgFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := f.style.Get(token.Type)

		var codes []string
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		if entry.Underline == chroma.Yes {
			codes = append(codes, "4")
		}

		for i, piece := range strings.Split(token.Value, "\n") {
			if i > 0 {
				fmt.Fprint(w, "\n")
			}
			if piece == "" {
				continue
			}
			if len(codes) > 0 {
				fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), piece)
			} else {
				fmt.Fprint(w, piece)
			}
		}
	}
	return nil
}

// ANSI escape code pattern for stripping
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes all ANSI escape codes from a string
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// ANSILen returns the display width of a string, ignoring ANSI codes
func ANSILen(s string) int {
	return ansi.StringWidth(s)
}
