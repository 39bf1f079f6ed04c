package ui

import (
	"fmt"
	"time"
)

// SessionStats tracks timing and token usage across the turns of one
// chat or query run.
type SessionStats struct {
	StartTime    time.Time
	InputTokens  int
	OutputTokens int
	TurnCount    int
	RetryCount   int

	// Time spent waiting on the model
	LLMTime   time.Duration
	turnStart time.Time
}

// NewSessionStats creates a new SessionStats with StartTime set to now.
func NewSessionStats() *SessionStats {
	return &SessionStats{StartTime: time.Now()}
}

// AddUsage adds token usage to the stats.
func (s *SessionStats) AddUsage(input, output int) {
	s.InputTokens += input
	s.OutputTokens += output
}

// TurnStart marks the beginning of a request.
func (s *SessionStats) TurnStart() {
	s.turnStart = time.Now()
}

// TurnEnd records the time since TurnStart and counts the turn.
func (s *SessionStats) TurnEnd() {
	if !s.turnStart.IsZero() {
		s.LLMTime += time.Since(s.turnStart)
		s.turnStart = time.Time{}
	}
	s.TurnCount++
}

// AddRetry counts one retried request.
func (s *SessionStats) AddRetry() {
	s.RetryCount++
}

// Render returns the stats as a compact single-line string.
func (s SessionStats) Render() string {
	total := time.Since(s.StartTime)

	tokensStr := fmt.Sprintf("%s in / %s out",
		formatTokenCount(s.InputTokens),
		formatTokenCount(s.OutputTokens))

	timeStr := fmt.Sprintf("%.1fs (llm %.1fs)", total.Seconds(), s.LLMTime.Seconds())

	out := fmt.Sprintf("Stats: %s | %d turns | %s", timeStr, s.TurnCount, tokensStr)
	if s.RetryCount > 0 {
		out += fmt.Sprintf(" | %d retries", s.RetryCount)
	}
	return out
}

// formatTokenCount abbreviates large counts: 950, 1.2k, 3.4M.
func formatTokenCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
