package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps state as JSON files and logs as append-only JSONL
// files under a root directory. Log appends fsync before returning.
type FileStore struct {
	root string
	mu   sync.Mutex
	logs map[string]*os.File
}

// NewFileStore creates the directory layout and returns a store.
func NewFileStore(root string) (*FileStore, error) {
	if err := EnsureDirs(root); err != nil {
		return nil, err
	}
	return &FileStore{root: root, logs: make(map[string]*os.File)}, nil
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// ReadState unmarshals the JSON value at key into v.
func (s *FileStore) ReadState(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := os.ReadFile(s.statePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoState
		}
		return fmt.Errorf("state: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("state: decode %s: %w", key, err)
	}
	return nil
}

// WriteState marshals v as JSON at key. Writes go to a temp file in
// the same directory and rename into place, so readers never see a
// torn value.
func (s *FileStore) WriteState(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}

	path := s.statePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("state: mkdir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("state: temp for %s: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("state: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("state: rename %s: %w", key, err)
	}
	return nil
}

// AppendLog writes one line to the named JSONL log and syncs before
// returning.
func (s *FileStore) AppendLog(name string, line []byte) error {
	if err := checkKey(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.logs[name]
	if !ok {
		var err error
		f, err = os.OpenFile(s.logPath(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("state: open log %s: %w", name, err)
		}
		s.logs[name] = f
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("state: append log %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("state: sync log %s: %w", name, err)
	}
	return nil
}

// ReadLogRaw returns the named log's raw bytes, or nil when the log
// does not exist yet.
func (s *FileStore) ReadLogRaw(name string) ([]byte, error) {
	if err := checkKey(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.logPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: read log %s: %w", name, err)
	}
	return data, nil
}

// Close releases open log handles.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, f := range s.logs {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.logs, name)
	}
	return firstErr
}

func (s *FileStore) statePath(key string) string {
	return filepath.Join(StateDir(s.root), key+".json")
}

func (s *FileStore) logPath(name string) string {
	return filepath.Join(LogDir(s.root), name+".jsonl")
}
