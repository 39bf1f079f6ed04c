package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/gobwas/glob"
	"golang.org/x/term"
)

// Attachment is file content sent along with a message.
type Attachment struct {
	Path     string // Display path, including a line range if one was given
	Language string // Fence tag derived from the file name
	Content  string
}

// rangeSpec is a path with an optional inclusive 1-based line range.
type rangeSpec struct {
	path     string
	from, to int // 0 means open-ended
	ranged   bool
}

var rangePattern = regexp.MustCompile(`^(.+?)(?::(\d*)-(\d*))?$`)

// parseRange parses "main.go", "main.go:10-20", "main.go:10-" and "main.go:-20".
func parseRange(spec string) (rangeSpec, error) {
	m := rangePattern.FindStringSubmatch(spec)
	if m == nil {
		return rangeSpec{}, fmt.Errorf("invalid file spec: %s", spec)
	}
	rs := rangeSpec{path: m[1]}
	if len(m[0]) == len(m[1]) {
		return rs, nil
	}
	rs.ranged = true
	var err error
	if m[2] != "" {
		if rs.from, err = strconv.Atoi(m[2]); err != nil {
			return rangeSpec{}, fmt.Errorf("invalid start line: %s", m[2])
		}
	}
	if m[3] != "" {
		if rs.to, err = strconv.Atoi(m[3]); err != nil {
			return rangeSpec{}, fmt.Errorf("invalid end line: %s", m[3])
		}
	}
	if rs.from > 0 && rs.to > 0 && rs.from > rs.to {
		return rangeSpec{}, fmt.Errorf("start line %d after end line %d", rs.from, rs.to)
	}
	return rs, nil
}

// sliceLines returns lines from..to (1-based, inclusive) of content.
func sliceLines(content string, from, to int) string {
	lines := strings.Split(content, "\n")
	start := max(from-1, 0)
	if start >= len(lines) {
		return ""
	}
	end := len(lines)
	if to > 0 && to < end {
		end = to
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

func (rs rangeSpec) display(path string) string {
	if !rs.ranged {
		return path
	}
	from, to := "", ""
	if rs.from > 0 {
		from = strconv.Itoa(rs.from)
	}
	if rs.to > 0 {
		to = strconv.Itoa(rs.to)
	}
	return fmt.Sprintf("%s:%s-%s", path, from, to)
}

// ReadAttachments reads every spec. A spec is a path, a glob, or either
// with a ":from-to" line range. "**" in a glob matches any number of
// directories. Globs that match nothing are skipped; directories are
// ignored.
func ReadAttachments(specs []string) ([]Attachment, error) {
	var out []Attachment
	for _, spec := range specs {
		rs, err := parseRange(spec)
		if err != nil {
			return nil, err
		}
		path := expandHome(rs.path)

		matches, err := expandGlob(path)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", rs.path, err)
		}
		if len(matches) == 0 {
			if strings.ContainsAny(rs.path, "*?[") {
				continue
			}
			matches = []string{path}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %q: %w", match, err)
			}
			if info.IsDir() {
				continue
			}
			data, err := os.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read %q: %w", match, err)
			}
			content := string(data)
			if rs.ranged {
				content = sliceLines(content, rs.from, rs.to)
			}
			out = append(out, Attachment{
				Path:     rs.display(match),
				Language: languageFor(match),
				Content:  content,
			})
		}
	}
	return out, nil
}

// expandGlob returns the files matching pattern in lexical order.
func expandGlob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	slashed := filepath.ToSlash(pattern)
	deep, err := glob.Compile(slashed, '/')
	if err != nil {
		return nil, err
	}
	// "a/**/b" also matches "a/b".
	shallow, err := glob.Compile(strings.ReplaceAll(slashed, "/**/", "/"), '/')
	if err != nil {
		return nil, err
	}
	root := globRoot(pattern)
	var matches []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if p := filepath.ToSlash(path); deep.Match(p) || shallow.Match(p) {
			matches = append(matches, path)
		}
		return nil
	})
	return matches, err
}

// globRoot is the longest leading directory of pattern without glob
// characters.
func globRoot(pattern string) string {
	dir := pattern
	for strings.ContainsAny(dir, "*?[{") {
		dir = filepath.Dir(dir)
	}
	if dir == "" {
		return "."
	}
	return dir
}

// languageFor returns the fence tag for a file name, or "" when no lexer
// claims it.
func languageFor(path string) string {
	l := lexers.Match(filepath.Base(path))
	if l == nil {
		return ""
	}
	cfg := l.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}

// ReadPiped returns everything on f when it is not a terminal.
func ReadPiped(f *os.File) (string, error) {
	if term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// BuildMessage appends attachments and piped input to message, each in
// its own fenced block.
func BuildMessage(message string, atts []Attachment, piped string) string {
	if len(atts) == 0 && piped == "" {
		return message
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(message, "\n"))
	for _, a := range atts {
		fmt.Fprintf(&sb, "\n\nFile: %s\n", a.Path)
		writeFence(&sb, a.Language, a.Content)
	}
	if piped != "" {
		sb.WriteString("\n\nInput:\n")
		writeFence(&sb, "", piped)
	}
	return strings.TrimLeft(sb.String(), "\n")
}

func writeFence(sb *strings.Builder, lang, content string) {
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	sb.WriteString(fence + lang + "\n")
	sb.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
