// Package clipboard moves text between the chat and the system clipboard
// through the platform's command line tools.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no clipboard tool is installed.
var ErrUnavailable = errors.New("no clipboard utility found (install wl-clipboard or xclip)")

// tool is one clipboard command line.
type tool struct {
	name string
	args []string
}

// copyTools lists the commands that write the clipboard, most preferred
// first.
func copyTools(goos string) []tool {
	switch goos {
	case "darwin":
		return []tool{{name: "pbcopy"}}
	case "windows":
		return []tool{{name: "clip.exe"}}
	}
	return []tool{
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	}
}

// pasteTools lists the commands that read the clipboard.
func pasteTools(goos string) []tool {
	switch goos {
	case "darwin":
		return []tool{{name: "pbpaste"}}
	case "windows":
		return []tool{{name: "powershell.exe", args: []string{"-NoProfile", "-Command", "Get-Clipboard"}}}
	}
	return []tool{
		{name: "wl-paste", args: []string{"--no-newline"}},
		{name: "xclip", args: []string{"-selection", "clipboard", "-o"}},
		{name: "xsel", args: []string{"--clipboard", "--output"}},
	}
}

// Clipboard reads and writes text through the first available tool.
type Clipboard struct {
	goos     string
	lookPath func(name string) (string, error)
	run      func(name string, args []string, stdin io.Reader) ([]byte, error)
}

// New returns a clipboard for the current platform.
func New() *Clipboard {
	return &Clipboard{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run:      runTool,
	}
}

func runTool(name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (c *Clipboard) find(tools []tool) (tool, error) {
	for _, t := range tools {
		if _, err := c.lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return tool{}, ErrUnavailable
}

// CopyText replaces the clipboard contents with text.
func (c *Clipboard) CopyText(text string) error {
	t, err := c.find(copyTools(c.goos))
	if err != nil {
		return err
	}
	if _, err := c.run(t.name, t.args, strings.NewReader(text)); err != nil {
		return fmt.Errorf("%s failed: %w", t.name, err)
	}
	return nil
}

// ReadText returns the clipboard contents.
func (c *Clipboard) ReadText() (string, error) {
	t, err := c.find(pasteTools(c.goos))
	if err != nil {
		return "", err
	}
	out, err := c.run(t.name, t.args, nil)
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", t.name, err)
	}
	text := string(out)
	if c.goos == "windows" {
		text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	}
	return text, nil
}
