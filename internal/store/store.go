package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalFormat is stamped into PRAGMA user_version when a journal is
// created. Journals stamped with a later format are refused.
const journalFormat = 1

// ErrUnsupportedFormat is returned by Open for a journal written in a newer
// format than this build reads.
var ErrUnsupportedFormat = errors.New("unsupported journal format")

// Connection settings, applied by the driver to every connection it opens.
// A recording session appends while a replay in another process reads, so
// the journal runs in WAL mode and waits out short write locks.
const dsnParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// Store is a page journal backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path. A new journal gets the pages
// table and is stamped with the current format. Opening an existing journal
// changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// One writer; appends are serialized through a single connection.
	db.SetMaxOpenConns(1)

	if err := bootstrap(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Format returns the format stamped on the journal.
func (s *Store) Format(ctx context.Context) (int, error) {
	return readFormat(ctx, s.db)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readFormat(ctx context.Context, q queryer) (int, error) {
	var format int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&format); err != nil {
		return 0, fmt.Errorf("read journal format: %w", err)
	}
	return format, nil
}

// bootstrap creates the schema and stamps the format in one transaction, so
// a journal is either fully initialized or untouched.
func bootstrap(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bootstrap: %w", err)
	}
	defer tx.Rollback()

	format, err := readFormat(ctx, tx)
	if err != nil {
		return err
	}
	if format > journalFormat {
		return fmt.Errorf("%w: journal is format %d, this build reads up to %d", ErrUnsupportedFormat, format, journalFormat)
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if format < journalFormat {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", journalFormat)); err != nil {
			return fmt.Errorf("stamp journal format: %w", err)
		}
	}
	return tx.Commit()
}
