// Package decision is the append-only authorization audit log. Every
// gate outcome lands here as one immutable, hash-chained record; a
// failed append is fatal for the invocation it describes; there is
// no such thing as an unlogged Permit.
package decision

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/canon"
	"github.com/wardenhq/warden/internal/state"
)

// LogName is the state-store log key for decisions.
const LogName = "decisions"

// GenesisHash is the prev_hash of the first entry in a new log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// DefaultQueryLimit is how many entries Query returns when the caller
// does not say.
const DefaultQueryLimit = 50

// WriteError reports a failed decision append. The invocation it was
// recording must not proceed.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("decision log append failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Log appends decision entries through a state.Store with SHA-256
// hash chaining. Each entry's prev_hash is the hash of the previous
// entry's JSON line, forming a tamper-evident chain.
type Log struct {
	store    state.Store
	mu       sync.Mutex
	prevHash string
	seq      int64
}

// Open prepares a decision log over the given store, recovering the
// chain tail and sequence counter from any existing entries.
func Open(store state.Store) (*Log, error) {
	l := &Log{store: store, prevHash: GenesisHash}

	raw, err := store.ReadLogRaw(LogName)
	if err != nil {
		return nil, fmt.Errorf("decision: recover log: %w", err)
	}
	if len(raw) == 0 {
		return l, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lastLine []byte
	for scanner.Scan() {
		lastLine = append(lastLine[:0], scanner.Bytes()...)
		l.seq++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decision: scan log: %w", err)
	}
	if len(lastLine) > 0 {
		l.prevHash = canon.HashBytes(lastLine)
	}
	return l, nil
}

// Record appends an entry. It assigns the sequence number, timestamp
// (when unset), and prev_hash, then writes through the store. The
// append is durable before Record returns; any failure surfaces as a
// *WriteError and the entry is not considered recorded.
func (l *Log) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Seq = l.seq + 1
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	e.PrevHash = l.prevHash

	line, err := json.Marshal(e)
	if err != nil {
		return &WriteError{Err: err}
	}
	if err := l.store.AppendLog(LogName, line); err != nil {
		return &WriteError{Err: err}
	}

	l.seq = e.Seq
	l.prevHash = canon.HashBytes(line)
	return nil
}

// Seq returns the sequence number of the last recorded entry.
func (l *Log) Seq() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Query returns up to limit entries, most recent first. limit <= 0
// means DefaultQueryLimit.
func (l *Log) Query(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	entries, err := l.All()
	if err != nil {
		return nil, err
	}
	// Reverse chronological.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// All returns every entry in append order.
func (l *Log) All() ([]Entry, error) {
	raw, err := l.store.ReadLogRaw(LogName)
	if err != nil {
		return nil, fmt.Errorf("decision: read log: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decision: parse entry %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decision: scan log: %w", err)
	}
	return entries, nil
}
