package session

import (
	"context"
	"sync"

	"github.com/fadhlirahim/llm-cli/internal/llm"
)

// WarnFunc receives printf-style warnings.
type WarnFunc func(format string, args ...any)

// LoggingStore reports failed writes of the wrapped Store through warn,
// once per kind of write. Errors are still returned to the caller, which
// for chat means ignoring them and carrying on.
type LoggingStore struct {
	Store

	warn   WarnFunc
	mu     sync.Mutex
	failed map[string]struct{}
}

func NewLoggingStore(store Store, warn WarnFunc) *LoggingStore {
	return &LoggingStore{Store: store, warn: warn, failed: map[string]struct{}{}}
}

func (s *LoggingStore) Create(ctx context.Context, sess *Session) error {
	return s.report("create", s.Store.Create(ctx, sess))
}

func (s *LoggingStore) Update(ctx context.Context, sess *Session) error {
	return s.report("update", s.Store.Update(ctx, sess))
}

func (s *LoggingStore) AddMessage(ctx context.Context, sessionID string, msg llm.Message) error {
	return s.report("message write", s.Store.AddMessage(ctx, sessionID, msg))
}

func (s *LoggingStore) report(op string, err error) error {
	if err == nil || s.warn == nil {
		return err
	}
	s.mu.Lock()
	_, seen := s.failed[op]
	s.failed[op] = struct{}{}
	s.mu.Unlock()
	if !seen {
		s.warn("session %s failed: %v", op, err)
	}
	return err
}
