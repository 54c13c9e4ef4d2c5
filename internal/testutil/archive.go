// Package testutil builds throwaway minutes archives for package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/franz/minutes-janitor/internal/store"
)

// LegacySchema is the archive layout before any upgrade: none of the
// derived columns exist yet.
const LegacySchema = `
CREATE TABLE sessions (
  id INTEGER PRIMARY KEY,
  name TEXT,
  location TEXT,
  freetext_minutes TEXT,
  year INTEGER
);

CREATE TABLE songs (
  id INTEGER PRIMARY KEY,
  page_num TEXT,
  title TEXT,
  song_text TEXT,
  composer1_first TEXT, composer1_last TEXT, composer1_date TEXT,
  composer2_first TEXT, composer2_last TEXT, composer2_date TEXT,
  composer_book_title TEXT,
  poet1_first TEXT, poet1_last TEXT, poet1_date TEXT,
  poet2_first TEXT, poet2_last TEXT, poet2_date TEXT,
  poet_book_title TEXT
);

CREATE TABLE leaders (
  id INTEGER PRIMARY KEY,
  name TEXT
);

CREATE TABLE leading_events (
  id INTEGER PRIMARY KEY,
  song_id INTEGER,
  leader_id INTEGER,
  session_id INTEGER,
  audio_url TEXT
);

CREATE TABLE period_statistics (
  song_id INTEGER,
  period INTEGER,
  lead_count INTEGER,
  rank INTEGER
);
`

// Archive is an on-disk archive living in the test's temp dir
type Archive struct {
	Path  string
	Store *store.Store
}

// NewArchive creates an archive with LegacySchema and opens it. It is
// closed when the test ends.
func NewArchive(t testing.TB) *Archive {
	t.Helper()
	return NewArchiveWithSchema(t, LegacySchema)
}

// NewArchiveWithSchema creates an archive from arbitrary DDL
func NewArchiveWithSchema(t testing.TB, schema string) *Archive {
	t.Helper()

	path := filepath.Join(t.TempDir(), "minutes.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(schema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return &Archive{Path: path, Store: s}
}

// Exec runs a statement outside any run transaction
func (a *Archive) Exec(t testing.TB, query string, args ...any) {
	t.Helper()
	_, err := a.Store.DB().Exec(query, args...)
	require.NoError(t, err, query)
}

// Begin starts a transaction that is rolled back at cleanup unless the
// test commits it first.
func (a *Archive) Begin(t testing.TB) *sql.Tx {
	t.Helper()
	tx, err := a.Store.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

// Ints returns the first column of every row as int64 (NULL reads as -1)
func Ints(t testing.TB, q store.Querier, query string, args ...any) []int64 {
	t.Helper()
	rows, err := q.QueryContext(context.Background(), query, args...)
	require.NoError(t, err, query)
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v sql.NullInt64
		require.NoError(t, rows.Scan(&v))
		if !v.Valid {
			out = append(out, -1)
			continue
		}
		out = append(out, v.Int64)
	}
	require.NoError(t, rows.Err())
	return out
}

// Strings returns the first column of every row as a string (NULL reads as "")
func Strings(t testing.TB, q store.Querier, query string, args ...any) []string {
	t.Helper()
	rows, err := q.QueryContext(context.Background(), query, args...)
	require.NoError(t, err, query)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		require.NoError(t, rows.Scan(&v))
		out = append(out, v.String)
	}
	require.NoError(t, rows.Err())
	return out
}
