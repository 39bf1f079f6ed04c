package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fadhlirahim/llm-cli/internal/llm"
)

// Reader is the read side of a session store. Get accepts a full id or a
// unique prefix and returns nil, nil when nothing matches.
type Reader interface {
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)
	Stats(ctx context.Context) (Stats, error)
}

// Writer records sessions as a chat progresses.
type Writer interface {
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	AddMessage(ctx context.Context, sessionID string, msg llm.Message) error
}

// Store persists chat sessions.
type Store interface {
	Reader
	Writer
	io.Closer
}

// Config is the [sessions] section of the config file.
type Config struct {
	Enabled  bool
	MaxCount int    // 0 keeps everything
	Path     string // defaults to DBPath()
}

func DefaultConfig() Config {
	return Config{Enabled: true}
}

// NewStore opens the SQLite store, or a NoopStore when cfg is disabled.
func NewStore(cfg Config) (Store, error) {
	if cfg.Enabled {
		return NewSQLiteStore(cfg)
	}
	return &NoopStore{}, nil
}

// DataDir is $XDG_DATA_HOME/llm-cli, falling back to ~/.local/share/llm-cli.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "llm-cli"), nil
}

func dataPath(name string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// DBPath is the default location of the sessions database.
func DBPath() (string, error) { return dataPath("sessions.db") }

// JSONDir is where `save` writes session files.
func JSONDir() (string, error) { return dataPath("sessions") }
