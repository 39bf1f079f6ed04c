package session

import (
	"context"

	"github.com/fadhlirahim/llm-cli/internal/llm"
)

// NoopStore stands in when sessions are disabled. Writes vanish and reads
// find nothing; Create still assigns an id so callers can print one.
type NoopStore struct{}

func (NoopStore) Create(_ context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	return nil
}

func (NoopStore) Update(context.Context, *Session) error                { return nil }
func (NoopStore) Delete(context.Context, string) error                  { return nil }
func (NoopStore) AddMessage(context.Context, string, llm.Message) error { return nil }
func (NoopStore) Get(context.Context, string) (*Session, error)         { return nil, nil }
func (NoopStore) List(context.Context, ListOptions) ([]Summary, error)  { return nil, nil }
func (NoopStore) Stats(context.Context) (Stats, error)                  { return Stats{}, nil }
func (NoopStore) Close() error                                          { return nil }

func (NoopStore) GetMessages(context.Context, string, int, int) ([]Message, error) {
	return nil, nil
}
