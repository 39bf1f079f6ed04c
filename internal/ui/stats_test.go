package ui

import (
	"strings"
	"testing"
	"time"
)

func TestSessionStatsTurns(t *testing.T) {
	stats := NewSessionStats()
	stats.TurnStart()
	time.Sleep(5 * time.Millisecond)
	stats.TurnEnd()
	stats.AddUsage(100, 20)
	stats.AddUsage(50, 5)

	if stats.TurnCount != 1 {
		t.Errorf("expected 1 turn, got %d", stats.TurnCount)
	}
	if stats.InputTokens != 150 || stats.OutputTokens != 25 {
		t.Errorf("unexpected tokens: %d in, %d out", stats.InputTokens, stats.OutputTokens)
	}
	if stats.LLMTime <= 0 {
		t.Error("expected llm time to be recorded")
	}
}

func TestSessionStatsRender(t *testing.T) {
	stats := NewSessionStats()
	stats.AddUsage(1200, 4500)
	stats.TurnEnd()
	stats.TurnEnd()

	out := stats.Render()
	for _, want := range []string{"Stats: ", "2 turns", "1.2k in / 4.5k out"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "retries") {
		t.Errorf("retries should be omitted when zero: %q", out)
	}

	stats.AddRetry()
	if !strings.Contains(stats.Render(), "| 1 retries") {
		t.Errorf("expected retry count in %q", stats.Render())
	}
}

func TestFormatTokenCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{950, "950"},
		{1000, "1.0k"},
		{12345, "12.3k"},
		{3_400_000, "3.4M"},
	}
	for _, tt := range tests {
		if got := formatTokenCount(tt.n); got != tt.want {
			t.Errorf("formatTokenCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
