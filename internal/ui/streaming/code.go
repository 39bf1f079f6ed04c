package streaming

import "strings"

// codeMode holds the language tag and raw lines of an open fenced block.
// The tag is fixed when the fence opens.
type codeMode struct {
	lang  string
	lines []string
}

func (m *codeMode) Mode() Mode { return ModeBufferingCodeBlock }

func (m *codeMode) add(line string) {
	m.lines = append(m.lines, line)
}

// render hands the block to h. Lines are passed through untouched.
func (m *codeMode) render(h Highlighter) string {
	return h.Highlight(strings.Join(m.lines, "\n"), m.lang)
}
