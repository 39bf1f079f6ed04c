package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/fadhlirahim/llm-cli/internal/ui/streaming"
)

// StreamAdapter prints an llm.Stream to a terminal through a
// streaming.Buffer: prose as it arrives, tables and code blocks once they
// are complete, and a spinner while a table is being held back.
type StreamAdapter struct {
	out       io.Writer
	notices   io.Writer
	styles    *Styles
	renderers Renderers
	spinner   *Spinner
	stats     *SessionStats

	atLineStart bool
}

// NewStreamAdapter creates an adapter writing replies to out. Retry
// notices go to notices; stats may be nil.
func NewStreamAdapter(out, notices io.Writer, s *Styles, r Renderers, stats *SessionStats) *StreamAdapter {
	if stats == nil {
		stats = NewSessionStats()
	}
	return &StreamAdapter{
		out:       out,
		notices:   notices,
		styles:    s,
		renderers: r,
		spinner:   NewSpinner(out, s, "Buffering table..."),
		stats:     stats,
	}
}

// Stats returns the session stats being tracked.
func (a *StreamAdapter) Stats() *SessionStats {
	return a.stats
}

// Reply is what a streamed reply produced, complete or not.
type Reply struct {
	Text  string
	Usage *llm.Usage
}

// Print consumes stream until it ends and closes it. Whatever was
// buffered is flushed even when the stream fails, and the text received
// so far is returned alongside the error.
func (a *StreamAdapter) Print(ctx context.Context, stream llm.Stream) (Reply, error) {
	defer stream.Close()

	buf := a.renderers.NewBuffer()
	a.atLineStart = true
	var reply Reply
	var full strings.Builder

	err := a.consume(stream, buf, &reply, &full)
	a.finish(buf)
	reply.Text = full.String()

	if err != nil && ctx.Err() != nil {
		return reply, ctx.Err()
	}
	return reply, err
}

func (a *StreamAdapter) consume(stream llm.Stream, buf *streaming.Buffer, reply *Reply, full *strings.Builder) error {
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch event.Type {
		case llm.EventTextDelta:
			if event.Text == "" {
				continue
			}
			full.WriteString(event.Text)
			a.show(buf.ProcessChunk(event.Text))

		case llm.EventUsage:
			if event.Use != nil {
				reply.Usage = event.Use
				a.stats.AddUsage(event.Use.InputTokens, event.Use.OutputTokens)
			}

		case llm.EventRetry:
			a.stats.AddRetry()
			if a.notices != nil {
				fmt.Fprintln(a.notices, a.styles.Muted.Render(fmt.Sprintf(
					"Retrying (%d/%d) in %.1fs...", event.RetryAttempt, event.RetryMaxAttempts, event.RetryWaitSecs)))
			}

		case llm.EventError:
			if event.Err != nil {
				return event.Err
			}
		}
	}
}

// show prints one chunk's output and keeps the spinner in step with
// table buffering.
func (a *StreamAdapter) show(out streaming.Output) {
	if a.spinner.Running() && (!out.Empty() || !out.BufferingTable) {
		a.spinner.Stop()
	}
	for _, seg := range out.Segments {
		if seg.Kind != streaming.SegmentText {
			a.newline()
		}
		a.write(seg.Text)
	}
	if out.BufferingTable && !a.spinner.Running() {
		a.newline()
		a.spinner.Start()
	}
}

// finish stops the spinner and prints whatever the buffer still holds.
func (a *StreamAdapter) finish(buf *streaming.Buffer) {
	a.spinner.Stop()
	if rest, ok := buf.Flush(); ok {
		a.write(rest)
	}
	a.newline()
}

func (a *StreamAdapter) newline() {
	if !a.atLineStart {
		a.write("\n")
	}
}

func (a *StreamAdapter) write(s string) {
	if s == "" {
		return
	}
	io.WriteString(a.out, s)
	a.atLineStart = strings.HasSuffix(s, "\n")
}
