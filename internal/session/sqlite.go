package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadhlirahim/llm-cli/internal/llm"
	_ "modernc.org/sqlite"
)

// ErrAmbiguousID is returned when an id prefix matches several sessions.
var ErrAmbiguousID = errors.New("ambiguous session id")

const defaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    summary       TEXT,
    model         TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    input_tokens  INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    sequence   INTEGER NOT NULL,
    role       TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
    content    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (session_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, sequence);
`

// sessionColumns is the column list scanSession expects.
const sessionColumns = `id, COALESCE(summary, ''), model, created_at, updated_at,
	input_tokens, output_tokens, total_tokens`

// SQLiteStore keeps sessions in a SQLite database (pure Go driver).
type SQLiteStore struct {
	db       *sql.DB
	maxCount int
}

// NewSQLiteStore opens or creates the database at cfg.Path, or DBPath()
// when that is empty, and prunes it to cfg.MaxCount sessions.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		var err error
		if path, err = DBPath(); err != nil {
			return nil, fmt.Errorf("get db path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	pragmas := []string{"foreign_keys(1)", "journal_mode(WAL)", "busy_timeout(5000)"}
	dsn := path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db, maxCount: cfg.MaxCount}
	if err := s.prune(); err != nil {
		slog.Warn("session cleanup failed", "error", err)
	}
	return s, nil
}

// prune deletes all but the maxCount most recently updated sessions.
func (s *SQLiteStore) prune() error {
	if s.maxCount <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY updated_at DESC LIMIT ?
		)`, s.maxCount)
	if err != nil {
		return fmt.Errorf("enforce max count: %w", err)
	}
	return nil
}

// Create inserts sess, filling in its id and timestamps when unset. Its
// Messages are not written; AddMessage does that.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, summary, model, created_at, updated_at, input_tokens, output_tokens, total_tokens)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Summary, sess.Model, sess.CreatedAt, sess.UpdatedAt,
		sess.InputTokens, sess.OutputTokens, sess.TotalTokens)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Summary, &sess.Model, &sess.CreatedAt, &sess.UpdatedAt,
		&sess.InputTokens, &sess.OutputTokens, &sess.TotalTokens)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Get loads a session with its messages by full id or unique id prefix.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil || fullID == "" {
		return nil, err
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, fullID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	stored, err := s.GetMessages(ctx, sess.ID, 0, 0)
	if err != nil {
		return nil, err
	}
	sess.Messages = make([]llm.Message, len(stored))
	for i := range stored {
		sess.Messages[i] = stored[i].ToLLMMessage()
	}
	return sess, nil
}

// resolveID returns the full id for id, "" when nothing matches, or
// ErrAmbiguousID. An exact match wins over longer ids sharing the prefix.
func (s *SQLiteStore) resolveID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions
		WHERE substr(id, 1, length(?1)) = ?1
		ORDER BY id = ?1 DESC
		LIMIT 2`, id)
	if err != nil {
		return "", fmt.Errorf("query session id: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", fmt.Errorf("scan session id: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(matches) == 0:
		return "", nil
	case len(matches) == 1 || matches[0] == id:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// Update writes the summary, model and token counts of sess and bumps its
// update time.
func (s *SQLiteStore) Update(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET summary = NULLIF(?, ''), model = ?, updated_at = ?,
		    input_tokens = ?, output_tokens = ?, total_tokens = ?
		WHERE id = ?`,
		sess.Summary, sess.Model, sess.UpdatedAt,
		sess.InputTokens, sess.OutputTokens, sess.TotalTokens, sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireRow(res, sess.ID)
}

// Delete removes a session; its messages go with it through the foreign key.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// List returns session summaries, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	var q strings.Builder
	q.WriteString(`
		SELECT s.id, COALESCE(s.summary, ''), s.model, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
		       s.total_tokens
		FROM sessions s`)
	var args []any
	if opts.Model != "" {
		q.WriteString(` WHERE s.model = ?`)
		args = append(args, opts.Model)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q.WriteString(` ORDER BY s.updated_at DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Summary, &sum.Model, &sum.CreatedAt, &sum.UpdatedAt,
			&sum.MessageCount, &sum.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// AddMessage appends msg after the session's last message and touches the
// session's update time, in one transaction.
func (s *SQLiteStore) AddMessage(ctx context.Context, sessionID string, msg llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, sequence, role, content, created_at)
		SELECT ?1, COALESCE(MAX(sequence), -1) + 1, ?2, ?3, ?4
		FROM messages WHERE session_id = ?1`,
		sessionID, string(msg.Role), msg.Content, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

// GetMessages returns a session's messages in order. A limit of 0 means
// no limit.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at, sequence
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence
		LIMIT ? OFFSET ?`, sessionID, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt, &m.Sequence); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Stats totals sessions, messages and tokens, overall and per model.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       (SELECT COUNT(*) FROM messages),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(total_tokens), 0)
		FROM sessions`).Scan(&st.Sessions, &st.Messages, &st.InputTokens, &st.OutputTokens, &st.TotalTokens)
	if err != nil {
		return Stats{}, fmt.Errorf("query session totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT model, COUNT(*), COALESCE(SUM(total_tokens), 0) AS tokens
		FROM sessions
		GROUP BY model
		ORDER BY tokens DESC, model`)
	if err != nil {
		return Stats{}, fmt.Errorf("query model totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ms ModelStats
		if err := rows.Scan(&ms.Model, &ms.Sessions, &ms.TotalTokens); err != nil {
			return Stats{}, fmt.Errorf("scan model totals: %w", err)
		}
		st.ByModel = append(st.ByModel, ms)
	}
	return st, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
