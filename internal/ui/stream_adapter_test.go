package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fadhlirahim/llm-cli/internal/llm"
)

type testStream struct {
	events []llm.Event
	err    error // returned once events run out, io.EOF when nil
	index  int
	closed bool
}

func (s *testStream) Recv() (llm.Event, error) {
	if s.index >= len(s.events) {
		if s.err != nil {
			return llm.Event{}, s.err
		}
		return llm.Event{}, io.EOF
	}
	event := s.events[s.index]
	s.index++
	return event, nil
}

func (s *testStream) Close() error {
	s.closed = true
	return nil
}

func textEvents(chunks ...string) []llm.Event {
	events := make([]llm.Event, 0, len(chunks))
	for _, c := range chunks {
		events = append(events, llm.Event{Type: llm.EventTextDelta, Text: c})
	}
	return events
}

func newTestAdapter(out, notices io.Writer) *StreamAdapter {
	s := plainStyles()
	return NewStreamAdapter(out, notices, s, NewRenderers(s, 80, false), nil)
}

func TestStreamAdapterPrintsProseAndTable(t *testing.T) {
	events := textEvents("Intro li", "ne\n| Name | Qty |\n|---", "---|-----|\n| apple | 3 |\n", "Outro\n")
	events = append(events, llm.Event{Type: llm.EventUsage, Use: &llm.Usage{InputTokens: 12, OutputTokens: 7}})
	stream := &testStream{events: events}

	var out bytes.Buffer
	adapter := newTestAdapter(&out, io.Discard)
	reply, err := adapter.Print(context.Background(), stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !stream.closed {
		t.Error("expected stream to be closed")
	}
	if reply.Text != "Intro line\n| Name | Qty |\n|------|-----|\n| apple | 3 |\nOutro\n" {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
	if reply.Usage == nil || reply.Usage.Total() != 19 {
		t.Errorf("expected usage to be recorded, got %+v", reply.Usage)
	}
	if adapter.Stats().InputTokens != 12 {
		t.Errorf("expected stats to track usage, got %d", adapter.Stats().InputTokens)
	}

	got := StripANSI(out.String())
	if !strings.HasPrefix(got, "Intro line\n") {
		t.Errorf("expected prose first, got %q", got)
	}
	for _, want := range []string{"Name", "Qty", "apple", "3"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in table output %q", want, got)
		}
	}
	if strings.Contains(got, "|---") {
		t.Errorf("separator row leaked into output: %q", got)
	}
	if !strings.HasSuffix(got, "Outro\n") {
		t.Errorf("expected trailing prose at the end, got %q", got)
	}
	if strings.Index(got, "apple") > strings.Index(got, "Outro") {
		t.Errorf("table printed after trailing prose: %q", got)
	}
}

func TestStreamAdapterFlushesOnError(t *testing.T) {
	boom := errors.New("connection reset")
	stream := &testStream{
		events: textEvents("Before\n```go\nfunc main() {}\n"),
		err:    boom,
	}

	var out bytes.Buffer
	reply, err := newTestAdapter(&out, io.Discard).Print(context.Background(), stream)
	if !errors.Is(err, boom) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if reply.Text != "Before\n```go\nfunc main() {}\n" {
		t.Errorf("expected partial reply text, got %q", reply.Text)
	}
	got := out.String()
	if !strings.Contains(got, "func main() {}") {
		t.Errorf("expected open code block to be flushed, got %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("expected output to end on a new line, got %q", got)
	}
}

func TestStreamAdapterReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream := &testStream{events: textEvents("partial"), err: errors.New("read: use of closed connection")}

	var out bytes.Buffer
	reply, err := newTestAdapter(&out, io.Discard).Print(ctx, stream)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reply.Text != "partial" {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
	if out.String() != "partial\n" {
		t.Errorf("expected partial line then newline, got %q", out.String())
	}
}

func TestStreamAdapterRetryNotice(t *testing.T) {
	stream := &testStream{events: []llm.Event{
		{Type: llm.EventRetry, RetryAttempt: 1, RetryMaxAttempts: 3, RetryWaitSecs: 2},
		{Type: llm.EventTextDelta, Text: "ok\n"},
	}}

	var out, notices bytes.Buffer
	adapter := newTestAdapter(&out, &notices)
	if _, err := adapter.Print(context.Background(), stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(notices.String(), "Retrying (1/3) in 2.0s...") {
		t.Errorf("unexpected retry notice %q", notices.String())
	}
	if adapter.Stats().RetryCount != 1 {
		t.Errorf("expected one retry counted, got %d", adapter.Stats().RetryCount)
	}
	if out.String() != "ok\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestStreamAdapterErrorEvent(t *testing.T) {
	boom := errors.New("server exploded")
	stream := &testStream{events: []llm.Event{
		{Type: llm.EventTextDelta, Text: "half"},
		{Type: llm.EventError, Err: boom},
		{Type: llm.EventTextDelta, Text: " never"},
	}}

	var out bytes.Buffer
	reply, err := newTestAdapter(&out, io.Discard).Print(context.Background(), stream)
	if !errors.Is(err, boom) {
		t.Fatalf("expected error event to end the reply, got %v", err)
	}
	if reply.Text != "half" {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
}
