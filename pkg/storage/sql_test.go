package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newMockStore(t *testing.T) (*SQLCursorStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS journal_cursors").WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewSQLCursorStore(context.Background(), db, PostgresDialect, quietLogger())
	require.NoError(t, err)
	return store, mock
}

func TestSQLCursorStore_Load(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT next_url FROM journal_cursors WHERE consumer_key = $1")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"next_url"}).AddRow("https://events.example.com/j?since=x"))

	next, err := store.Load(ctx, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "https://events.example.com/j?since=x", next)

	mock.ExpectQuery("SELECT next_url FROM journal_cursors").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"next_url"}))

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrCursorNotFound)

	mock.ExpectQuery("SELECT next_url FROM journal_cursors").
		WithArgs("broken").
		WillReturnError(errors.New("connection reset"))

	_, err = store.Load(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCursorNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCursorStore_SaveDelete(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO journal_cursors (.+) ON CONFLICT \\(consumer_key\\) DO UPDATE").
		WithArgs("reg-1", "https://events.example.com/j", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Save(ctx, "reg-1", "https://events.example.com/j"))

	mock.ExpectExec("INSERT INTO journal_cursors").
		WillReturnError(errors.New("read-only transaction"))
	assert.Error(t, store.Save(ctx, "reg-1", "x"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM journal_cursors WHERE consumer_key = $1")).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Delete(ctx, "reg-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLCursorStore_CreateFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS journal_cursors").WillReturnError(errors.New("permission denied"))

	_, err = NewSQLCursorStore(context.Background(), db, PostgresDialect, nil)
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "$2", PostgresDialect.Placeholder(2))
	assert.Equal(t, "?", SQLiteDialect.Placeholder(2))
}

func TestSQLiteCursorStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Type = TypeSQLite
	cfg.DSN = filepath.Join(t.TempDir(), "cursors.db")

	store, err := NewCursorStore(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}
