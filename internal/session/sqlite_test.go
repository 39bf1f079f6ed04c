package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fadhlirahim/llm-cli/internal/llm"
)

func newTestStore(t *testing.T, cfg Config) *SQLiteStore {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "sessions.db")
	}
	store, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreDefaultPathUsesXDGDataHome(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	store, err := NewSQLiteStore(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(dataHome, "llm-cli", "sessions.db")); err != nil {
		t.Fatalf("expected database under XDG_DATA_HOME: %v", err)
	}
}

func TestSQLiteStoreCreateGetWithMessages(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})
	ctx := context.Background()

	sess := New("gpt-4o")
	sess.Summary = "tables please"
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	msgs := []llm.Message{
		llm.SystemText("be brief"),
		llm.UserText("tables please"),
		llm.AssistantText("| a | b |\n|---|---|\n| 1 | 2 |"),
	}
	for _, m := range msgs {
		if err := store.AddMessage(ctx, sess.ID, m); err != nil {
			t.Fatalf("failed to add message: %v", err)
		}
	}

	loaded, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected session to exist")
	}
	if loaded.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", loaded.Model)
	}
	if loaded.Summary != "tables please" {
		t.Errorf("expected summary to round trip, got %q", loaded.Summary)
	}
	if len(loaded.Messages) != len(msgs) {
		t.Fatalf("expected %d messages, got %d", len(msgs), len(loaded.Messages))
	}
	for i, m := range msgs {
		if loaded.Messages[i] != m {
			t.Errorf("message %d: expected %+v, got %+v", i, m, loaded.Messages[i])
		}
	}

	stored, err := store.GetMessages(ctx, sess.ID, 0, 0)
	if err != nil {
		t.Fatalf("failed to get messages: %v", err)
	}
	for i, m := range stored {
		if m.Sequence != i {
			t.Errorf("message %d: expected sequence %d, got %d", i, i, m.Sequence)
		}
	}

	page, err := store.GetMessages(ctx, sess.ID, 1, 1)
	if err != nil {
		t.Fatalf("failed to page messages: %v", err)
	}
	if len(page) != 1 || page[0].Role != llm.RoleUser {
		t.Errorf("expected the user message on page 2, got %+v", page)
	}
}

func TestSQLiteStoreGetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})

	sess, err := store.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session, got %+v", sess)
	}
}

func TestSQLiteStoreGetByPrefix(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})
	ctx := context.Background()

	for _, id := range []string{"abc123", "abd456"} {
		if err := store.Create(ctx, &Session{ID: id, Model: "gpt-4o"}); err != nil {
			t.Fatalf("failed to create session %s: %v", id, err)
		}
	}

	sess, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil || sess.ID != "abc123" {
		t.Fatalf("expected abc123, got %+v", sess)
	}

	_, err = store.Get(ctx, "ab")
	if !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("expected ErrAmbiguousID, got %v", err)
	}
}

func TestSQLiteStoreUpdateTokens(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})
	ctx := context.Background()

	sess := New("gpt-4o-mini")
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	sess.AddUsage(llm.Usage{InputTokens: 120, OutputTokens: 30})
	if err := store.Update(ctx, sess); err != nil {
		t.Fatalf("failed to update session: %v", err)
	}

	loaded, err := store.Get(ctx, sess.ID)
	if err != nil || loaded == nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded.InputTokens != 120 || loaded.OutputTokens != 30 || loaded.TotalTokens != 150 {
		t.Errorf("unexpected tokens: in=%d out=%d total=%d", loaded.InputTokens, loaded.OutputTokens, loaded.TotalTokens)
	}

	if err := store.Update(ctx, &Session{ID: "missing", Model: "x"}); err == nil {
		t.Error("expected error updating missing session")
	}
}

func TestSQLiteStoreDeleteCascades(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})
	ctx := context.Background()

	sess := New("gpt-4o")
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := store.AddMessage(ctx, sess.ID, llm.UserText("hi")); err != nil {
		t.Fatalf("failed to add message: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	msgs, err := store.GetMessages(ctx, sess.ID, 0, 0)
	if err != nil {
		t.Fatalf("failed to get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected messages to be deleted, got %d", len(msgs))
	}
	if err := store.Delete(ctx, sess.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestSQLiteStoreListOrderAndFilter(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seed := []*Session{
		{ID: "s1", Model: "gpt-4o", UpdatedAt: base},
		{ID: "s2", Model: "gpt-4o-mini", UpdatedAt: base.Add(time.Hour)},
		{ID: "s3", Model: "gpt-4o", UpdatedAt: base.Add(2 * time.Hour)},
	}
	for _, s := range seed {
		s.CreatedAt = s.UpdatedAt
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("failed to create %s: %v", s.ID, err)
		}
	}

	all, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	var ids []string
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	if got := strings.Join(ids, ","); got != "s3,s2,s1" {
		t.Errorf("expected most recent first, got %s", got)
	}

	filtered, err := store.List(ctx, ListOptions{Model: "gpt-4o", Limit: 1})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "s3" {
		t.Errorf("expected only s3, got %+v", filtered)
	}
}

func TestSQLiteStoreMaxCountCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store := newTestStore(t, Config{Enabled: true, Path: path})
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		at := base.Add(time.Duration(i) * time.Hour)
		if err := store.Create(ctx, &Session{ID: id, Model: "gpt-4o", CreatedAt: at, UpdatedAt: at}); err != nil {
			t.Fatalf("failed to create %s: %v", id, err)
		}
	}
	store.Close()

	reopened := newTestStore(t, Config{Enabled: true, Path: path, MaxCount: 2})
	list, err := reopened.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions after cleanup, got %d", len(list))
	}
	for _, s := range list {
		if s.ID == "old" {
			t.Error("expected oldest session to be removed")
		}
	}
}

func TestSQLiteStoreStats(t *testing.T) {
	store := newTestStore(t, Config{Enabled: true})
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to get stats on empty store: %v", err)
	}
	if empty.Sessions != 0 || empty.TotalTokens != 0 {
		t.Errorf("expected zero stats, got %+v", empty)
	}

	for _, spec := range []struct {
		model   string
		in, out int
	}{
		{"gpt-4o", 100, 50},
		{"gpt-4o", 10, 5},
		{"gpt-4o-mini", 1, 1},
	} {
		sess := New(spec.model)
		sess.AddUsage(llm.Usage{InputTokens: spec.in, OutputTokens: spec.out})
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		if err := store.AddMessage(ctx, sess.ID, llm.UserText("q")); err != nil {
			t.Fatalf("failed to add message: %v", err)
		}
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if st.Sessions != 3 || st.Messages != 3 {
		t.Errorf("expected 3 sessions and 3 messages, got %+v", st)
	}
	if st.InputTokens != 111 || st.OutputTokens != 56 || st.TotalTokens != 167 {
		t.Errorf("unexpected token totals: %+v", st)
	}
	if len(st.ByModel) != 2 || st.ByModel[0].Model != "gpt-4o" || st.ByModel[0].Sessions != 2 {
		t.Errorf("unexpected per-model stats: %+v", st.ByModel)
	}
}

func TestNewStoreDisabledReturnsNoop(t *testing.T) {
	store, err := NewStore(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*NoopStore); !ok {
		t.Fatalf("expected *NoopStore, got %T", store)
	}

	sess := &Session{}
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("noop create failed: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected noop create to assign an id")
	}
}
