package ui

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/fadhlirahim/llm-cli/internal/ui/streaming"
)

// rendererCache provides width-keyed caching of glamour renderers.
// Creating a renderer is expensive; caching by width avoids recreation.
var rendererCache sync.Map // map[int]*glamour.TermRenderer

// getRenderer returns a cached renderer for the given width, creating one if needed.
func getRenderer(width int) (*glamour.TermRenderer, error) {
	if cached, ok := rendererCache.Load(width); ok {
		return cached.(*glamour.TermRenderer), nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	rendererCache.Store(width, renderer)
	return renderer, nil
}

// RenderMarkdown renders a complete markdown document with glamour.
// On error, returns the original content unchanged.
func RenderMarkdown(content string, width int) string {
	if content == "" {
		return ""
	}

	rendered, err := RenderMarkdownWithError(content, width)
	if err != nil {
		return content
	}
	return rendered
}

// RenderMarkdownWithError renders markdown content and returns any errors.
func RenderMarkdownWithError(content string, width int) (string, error) {
	renderer, err := getRenderer(width)
	if err != nil {
		return "", err
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(rendered), nil
}

// Renderers bundles the collaborators a streaming.Buffer renders with.
type Renderers struct {
	Tables    *TableRenderer
	Code      *CodeHighlighter
	Formatter *LineFormatter
	Logger    *slog.Logger
}

// NewRenderers builds the terminal collaborators for width columns.
func NewRenderers(s *Styles, width int, color bool) Renderers {
	return Renderers{
		Tables:    NewTableRenderer(width),
		Code:      NewCodeHighlighter("monokai", s, color),
		Formatter: NewLineFormatter(s, width),
	}
}

// NewBuffer creates a streaming buffer for one reply.
func (r Renderers) NewBuffer() *streaming.Buffer {
	opts := []streaming.Option{
		streaming.WithTableRenderer(r.Tables),
		streaming.WithHighlighter(r.Code),
		streaming.WithLineFormatter(r.Formatter),
	}
	if r.Logger != nil {
		opts = append(opts, streaming.WithLogger(r.Logger))
	}
	return streaming.New(opts...)
}

// RenderDocument renders a complete text the way it would have looked
// streamed: one buffer, one chunk, one flush.
func (r Renderers) RenderDocument(content string) string {
	buf := r.NewBuffer()
	out := buf.ProcessChunk(content).String()
	if rest, ok := buf.Flush(); ok {
		out += rest
	}
	return out
}
