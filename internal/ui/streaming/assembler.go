package streaming

import "strings"

// lineAssembler accumulates fragments and hands out complete lines.
// Everything after the last newline stays pending until a later fragment
// terminates it or the owner resets it.
type lineAssembler struct {
	pending strings.Builder
}

// feed appends fragment and returns the lines it completed, in order,
// with the "\n" (and a trailing "\r") stripped.
func (a *lineAssembler) feed(fragment string) []string {
	var lines []string
	for {
		i := strings.IndexByte(fragment, '\n')
		if i < 0 {
			a.pending.WriteString(fragment)
			return lines
		}
		a.pending.WriteString(fragment[:i])
		lines = append(lines, strings.TrimSuffix(a.pending.String(), "\r"))
		a.pending.Reset()
		fragment = fragment[i+1:]
	}
}

// partial returns the unterminated tail of everything fed so far.
func (a *lineAssembler) partial() string {
	return a.pending.String()
}

func (a *lineAssembler) reset() {
	a.pending.Reset()
}
