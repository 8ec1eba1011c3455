package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

// Dialect holds the SQL differences between the supported databases
type Dialect struct {
	Driver string
	// Placeholder returns the bind marker for the n-th argument, starting at 1
	Placeholder func(n int) string
}

var (
	PostgresDialect = Dialect{
		Driver:      "postgres",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
	SQLiteDialect = Dialect{
		Driver:      "sqlite3",
		Placeholder: func(int) string { return "?" },
	}
)

const createCursorTable = `CREATE TABLE IF NOT EXISTS journal_cursors (
	consumer_key TEXT PRIMARY KEY,
	next_url TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLCursorStore keeps cursors in the journal_cursors table
type SQLCursorStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *logrus.Logger

	loadQuery   string
	saveQuery   string
	deleteQuery string
}

// NewSQLCursorStore wraps an open database and creates the table if needed
func NewSQLCursorStore(ctx context.Context, db *sql.DB, dialect Dialect, logger *logrus.Logger) (*SQLCursorStore, error) {
	p := dialect.Placeholder
	s := &SQLCursorStore{
		db:      db,
		dialect: dialect,
		logger:  observability.OrDefault(logger),

		loadQuery: fmt.Sprintf("SELECT next_url FROM journal_cursors WHERE consumer_key = %s", p(1)),
		saveQuery: fmt.Sprintf(`INSERT INTO journal_cursors (consumer_key, next_url, updated_at) VALUES (%s, %s, %s)
ON CONFLICT (consumer_key) DO UPDATE SET next_url = excluded.next_url, updated_at = excluded.updated_at`, p(1), p(2), p(3)),
		deleteQuery: fmt.Sprintf("DELETE FROM journal_cursors WHERE consumer_key = %s", p(1)),
	}

	if _, err := db.ExecContext(ctx, createCursorTable); err != nil {
		return nil, fmt.Errorf("failed to create journal_cursors table: %w", err)
	}
	return s, nil
}

// OpenSQLCursorStore opens cfg.DSN with the driver for cfg.Type, configures the
// connection pool and verifies the connection
func OpenSQLCursorStore(ctx context.Context, cfg Config, logger *logrus.Logger) (*SQLCursorStore, error) {
	dialect := PostgresDialect
	if cfg.Type == TypeSQLite {
		dialect = SQLiteDialect
	}

	db, err := sql.Open(dialect.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Type, err)
	}

	// Configure connection pool
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Type, err)
	}

	store, err := NewSQLCursorStore(ctx, db, dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.logger.WithField("driver", dialect.Driver).Info("Journal cursor store connected")
	return store, nil
}

func (s *SQLCursorStore) Load(ctx context.Context, key string) (string, error) {
	var next string
	err := s.db.QueryRowContext(ctx, s.loadQuery, key).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCursorNotFound
	} else if err != nil {
		return "", fmt.Errorf("failed to load cursor: %w", err)
	}
	return next, nil
}

func (s *SQLCursorStore) Save(ctx context.Context, key, nextURL string) error {
	if _, err := s.db.ExecContext(ctx, s.saveQuery, key, nextURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

func (s *SQLCursorStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, key); err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *SQLCursorStore) Close() error {
	return s.db.Close()
}
