package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite database file.
// State lives in a key/value table; logs are ordered rows, which
// makes the append total order explicit.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and migrates the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite: %w", err)
	}
	// Serialized writes; the kernel is the only writer.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS logs (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		line TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS logs_name ON logs(name, seq);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("state: migrate sqlite: %w", err)
	}
	// Durability over throughput: decision appends must survive a
	// crash before an invocation proceeds.
	if _, err := s.db.Exec(`PRAGMA synchronous = FULL`); err != nil {
		return fmt.Errorf("state: sqlite pragma: %w", err)
	}
	return nil
}

// ReadState unmarshals the JSON value at key into v.
func (s *SQLiteStore) ReadState(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return ErrNoState
	}
	if err != nil {
		return fmt.Errorf("state: read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("state: decode %s: %w", key, err)
	}
	return nil
}

// WriteState upserts the JSON value at key.
func (s *SQLiteStore) WriteState(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	return nil
}

// AppendLog inserts one log line; the row is committed before return.
func (s *SQLiteStore) AppendLog(name string, line []byte) error {
	if err := checkKey(name); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT INTO logs (name, line) VALUES (?, ?)`, name, string(line)); err != nil {
		return fmt.Errorf("state: append log %s: %w", name, err)
	}
	return nil
}

// ReadLogRaw returns the named log as newline-joined bytes in append
// order, or nil when empty.
func (s *SQLiteStore) ReadLogRaw(name string) ([]byte, error) {
	if err := checkKey(name); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT line FROM logs WHERE name = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("state: read log %s: %w", name, err)
	}
	defer rows.Close()

	var out []byte
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("state: scan log %s: %w", name, err)
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterate log %s: %w", name, err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
