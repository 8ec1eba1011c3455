// Package storage provides journal cursor stores, so a restarted poller can
// resume from the last next link it followed instead of the journal start.
//
// Every store implements journal.CursorStore plus Delete and Close:
//
//   - MemoryCursorStore: process lifetime only
//   - FileSystemCursorStore: one JSON file per consumer key
//   - RedisCursorStore: keys under a prefix, no expiry
//   - SQLCursorStore: table journal_cursors on PostgreSQL or SQLite
//   - S3CursorStore: one JSON object per consumer key in a bucket
//
// # Usage
//
//	store, err := storage.NewCursorStore(ctx, storage.Config{
//		Type: storage.TypePostgres,
//		DSN:  "postgres://localhost/ioevents?sslmode=disable",
//	}, logger)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	poller := journal.NewPoller(client, journalURL, journal.Options{
//		Store:    store,
//		StoreKey: registrationID,
//	})
//
// Load returns ErrCursorNotFound when nothing was saved for a key.
//
// # Schema
//
//	CREATE TABLE IF NOT EXISTS journal_cursors (
//		consumer_key TEXT PRIMARY KEY,
//		next_url TEXT NOT NULL,
//		updated_at TIMESTAMP NOT NULL
//	)
//
// The table is created on open.
package storage
