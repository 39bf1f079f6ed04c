package ui

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// lineMarkdown is the shared parser for single lines, with strikethrough.
var lineMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// inlineMarkers are the bytes at which goldmark may start an inline node or
// rewrite the source, so a partial line is only settled up to the first one.
const inlineMarkers = "*_`[]!<>\\&~"

// LineFormatter styles single markdown lines for the terminal. Each line is
// parsed with goldmark on its own; headings, list items, quotes, rules and
// inline emphasis are styled and anything else is returned as-is.
type LineFormatter struct {
	styles *Styles
	width  int
}

// NewLineFormatter creates a formatter drawing rules up to width columns.
func NewLineFormatter(styles *Styles, width int) *LineFormatter {
	return &LineFormatter{styles: styles, width: width}
}

// FormatLine renders one complete line. Leading indentation is kept.
func (f *LineFormatter) FormatLine(line string) string {
	body := strings.TrimLeft(line, " \t")
	if strings.TrimSpace(body) == "" {
		return line
	}
	indent := line[:len(line)-len(body)]

	src := []byte(body)
	doc := lineMarkdown.Parser().Parse(text.NewReader(src))
	block := doc.FirstChild()
	if block == nil || block.NextSibling() != nil {
		return line
	}
	out, ok := f.block(block, src)
	if !ok {
		return line
	}
	return indent + out
}

// StablePrefix returns the part of an unfinished line that FormatLine will
// reproduce however the line ends. Only prose is settled early: a line
// starting with anything but a letter may still turn into a heading, list
// item, quote or rule.
func (f *LineFormatter) StablePrefix(partial string) string {
	body := strings.TrimLeft(partial, " \t")
	if r, _ := utf8.DecodeRuneInString(body); !unicode.IsLetter(r) {
		return ""
	}
	if i := strings.IndexAny(body, inlineMarkers); i >= 0 {
		body = body[:i]
	}
	body = strings.TrimRight(body, " \t")
	return partial[:len(partial)-len(strings.TrimLeft(partial, " \t"))] + body
}

func (f *LineFormatter) block(n ast.Node, src []byte) (string, bool) {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return f.inline(n, src), true
	case *ast.Heading:
		return f.styles.Heading.Render(f.inline(n, src)), true
	case *ast.ThematicBreak:
		return f.styles.Rule.Render(strings.Repeat("─", max(min(f.width, 40), 3))), true
	case *ast.Blockquote:
		inner, _ := f.children(n, src)
		return f.styles.Quote.Render("│ " + inner), true
	case *ast.List:
		item := n.FirstChild()
		if item == nil {
			return "", false
		}
		marker := "•"
		if n.IsOrdered() {
			marker = strconv.Itoa(n.Start) + "."
		}
		inner, ok := f.children(item, src)
		if !ok {
			return "", false
		}
		return strings.TrimRight(f.styles.Bullet.Render(marker)+" "+inner, " "), true
	}
	return "", false
}

// children renders the blocks inside a container back to back.
func (f *LineFormatter) children(n ast.Node, src []byte) (string, bool) {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out, ok := f.block(c, src)
		if !ok {
			return "", false
		}
		sb.WriteString(out)
	}
	return sb.String(), true
}

func (f *LineFormatter) inline(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(src))
		case *ast.String:
			sb.Write(c.Value)
		case *ast.CodeSpan:
			sb.WriteString(f.styles.Code.Render(f.inline(c, src)))
		case *ast.Emphasis:
			style := f.styles.Italic
			if c.Level >= 2 {
				style = f.styles.Bold
			}
			sb.WriteString(style.Render(f.inline(c, src)))
		case *east.Strikethrough:
			sb.WriteString(f.styles.Muted.Strikethrough(true).Render(f.inline(c, src)))
		case *ast.Link:
			sb.WriteString(f.inline(c, src))
			sb.WriteString(f.styles.Muted.Render(" (" + string(c.Destination) + ")"))
		case *ast.AutoLink:
			sb.Write(c.URL(src))
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				sb.Write(seg.Value(src))
			}
		default:
			sb.WriteString(f.inline(c, src))
		}
	}
	return sb.String()
}
