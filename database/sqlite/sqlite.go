// Package sqlite implements the user-state store on SQLite via sqlx,
// with in-memory caches in front of the hot tables.
package sqlite

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/finchmedia/finch-server/database/model"
)

// tokenFlushInterval is how long a token upsert may stay cache-only
// before it is durable. Tokens authenticate from the cache right away,
// so the delay is invisible to clients.
const tokenFlushInterval = 10 * time.Second

type userDataKey struct {
	userID string
	itemID string
}

// Repo is the SQLite-backed store. A read pool serves queries; writes
// go through a single-connection handle since sqlite allows one writer.
type Repo struct {
	read  *sqlx.DB
	write *sqlx.DB

	mu sync.RWMutex
	// tokens written since the last flush plus everything read before;
	// flushed wholesale to the database every tokenFlushInterval.
	tokens map[string]*model.AccessToken
	// userData is purely an accelerator; every write also hits the
	// database immediately.
	userData map[userDataKey]model.UserData
}

// Config holds the sqlite options from the config file.
type Config struct {
	Filename string `yaml:"filename" mapstructure:"filename"`
}

// New opens (and if needed creates) the database.
func New(c *Config) (*Repo, error) {
	if c == nil || c.Filename == "" {
		return nil, model.ErrNoConfiguration
	}

	read, err := sqlx.Connect("sqlite3", c.Filename)
	if err != nil {
		return nil, err
	}
	read.SetMaxOpenConns(5)

	write, err := sqlx.Connect("sqlite3", c.Filename)
	if err != nil {
		read.Close()
		return nil, err
	}
	write.SetMaxOpenConns(1)

	if err := initSchema(write); err != nil {
		read.Close()
		write.Close()
		return nil, err
	}

	return &Repo{
		read:     read,
		write:    write,
		tokens:   make(map[string]*model.AccessToken),
		userData: make(map[userDataKey]model.UserData),
	}, nil
}

// StartBackground runs the token flusher until ctx is canceled.
func (r *Repo) StartBackground(ctx context.Context) {
	go r.tokenFlusher(ctx, tokenFlushInterval)
}

func (r *Repo) Close() error {
	r.flushTokens(context.Background())
	r.read.Close()
	return r.write.Close()
}

// timestamps are stored as RFC 3339 strings so rows stay readable and
// portable across drivers.
func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func unstamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
