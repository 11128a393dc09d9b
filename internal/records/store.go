// Package records persists best completion times, keyed by difficulty
// name, in a local SQLite database. Rows are gob-encoded [Record] blobs
// behind a small typed layer, so the schema never has to chase the Go
// type.
package records

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrBadTable = fmt.Errorf("bad table name for store")
	ErrNotFound = fmt.Errorf("record not found")
)

// Store is a keyed table of [Record] rows. Writes are serialized; reads go
// straight to the database.
type Store struct {
	mu    sync.Mutex
	table string
	db    *sql.DB
}

func isLetters(s string) bool {
	for _, c := range s {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// NewStore creates the backing table if needed. table may only contain
// upper- or lowercase Latin letters; it is interpolated into the DDL.
func NewStore(db *sql.DB, table string) (*Store, error) {
	if !isLetters(table) {
		return nil, ErrBadTable
	}

	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ` + table + ` (
	key		TEXT PRIMARY KEY,
	value	BLOB
);`)
	if err != nil {
		return nil, err
	}
	return &Store{table: table, db: db}, nil
}

// Get retrieves the record stored under key, or [ErrNotFound].
func (s *Store) Get(key string) (*Record, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT value FROM `+s.table+` WHERE key = ?;`, key,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("unable to decode record %q: %w", key, err)
	}
	return &rec, nil
}

// Put inserts the record under key, replacing an existing row.
func (s *Store) Put(key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}
	_, err := s.db.Exec(`
INSERT INTO `+s.table+` (key, value)
VALUES(?, ?)
ON CONFLICT(key)
DO UPDATE SET value=excluded.value;`,
		key, buf.Bytes())
	return err
}

// Keys lists every key in the store.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM ` + s.table + `;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
