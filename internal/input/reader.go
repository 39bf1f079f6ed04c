package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sahilm/fuzzy"
)

// ErrInterrupted is returned by ReadMessage when the user presses Ctrl-C
// at the prompt.
var ErrInterrupted = liner.ErrPromptAborted

// prompter is the part of *liner.State the reader uses.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// Reader reads chat messages from the terminal with line editing and a
// persistent history.
type Reader struct {
	p           prompter
	state       *liner.State // nil in tests
	historyPath string
	multiline   bool
	hint        io.Writer
}

// ReaderOptions configures NewReader.
type ReaderOptions struct {
	HistoryPath string   // empty disables history persistence
	Multiline   bool     // read until Ctrl-D or a lone "." line
	Commands    []string // completed with Tab at the start of a line
	Hint        io.Writer
}

// NewReader creates a liner-backed Reader. Close must be called to
// restore the terminal and save history.
func NewReader(opts ReaderOptions) *Reader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetMultiLineMode(true)
	if len(opts.Commands) > 0 {
		cmds := opts.Commands
		state.SetCompleter(func(line string) []string {
			return completeCommand(line, cmds)
		})
	}
	if opts.HistoryPath != "" {
		if f, err := os.Open(opts.HistoryPath); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
	}

	r := newReader(state, opts)
	r.state = state
	return r
}

func newReader(p prompter, opts ReaderOptions) *Reader {
	hint := opts.Hint
	if hint == nil {
		hint = os.Stdout
	}
	return &Reader{
		p:           p,
		historyPath: opts.HistoryPath,
		multiline:   opts.Multiline,
		hint:        hint,
	}
}

// ReadMessage prompts for one message. It returns io.EOF when the user
// presses Ctrl-D on an empty prompt and ErrInterrupted on Ctrl-C.
func (r *Reader) ReadMessage(prompt string) (string, error) {
	if r.multiline {
		return r.readMultiline(prompt)
	}
	line, err := r.p.Prompt(prompt)
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	r.remember(line)
	return line, nil
}

func (r *Reader) readMultiline(prompt string) (string, error) {
	fmt.Fprintln(r.hint, "Enter your message (Ctrl-D or a line with a single '.' when done):")
	var lines []string
	for {
		p := prompt
		if len(lines) > 0 {
			p = strings.Repeat(" ", max(len(prompt)-4, 0)) + "... "
		}
		line, err := r.p.Prompt(p)
		if errors.Is(err, io.EOF) {
			if len(lines) == 0 {
				return "", io.EOF
			}
			break
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	r.remember(msg)
	return msg, nil
}

func (r *Reader) remember(msg string) {
	if msg == "" {
		return
	}
	r.p.AppendHistory(msg)
}

// Close saves the history file and restores the terminal.
func (r *Reader) Close() error {
	if r.state != nil && r.historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyPath), 0755); err == nil {
			if f, err := os.Create(r.historyPath); err == nil {
				r.state.WriteHistory(f)
				f.Close()
			}
		}
	}
	return r.p.Close()
}

// completeCommand returns the commands starting with line, or failing
// that the commands fuzzily matching it, best match first.
func completeCommand(line string, cmds []string) []string {
	typed := strings.ToLower(strings.TrimSpace(line))
	if typed == "" {
		return nil
	}
	var out []string
	for _, c := range cmds {
		if strings.HasPrefix(c, typed) {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, m := range fuzzy.Find(typed, cmds) {
		out = append(out, m.Str)
	}
	return out
}
