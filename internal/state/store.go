// Package state is the kernel's storage boundary. The kernel is
// written against the Store contract only; whether bytes land in
// JSON files or a SQLite database is this package's business.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoState is returned when a state key has never been written.
var ErrNoState = errors.New("state: no value for key")

// Store is the kernel's contract with persistence. AppendLog must be
// durable before it returns: a Permit is only a Permit once its
// decision record survived a crash.
type Store interface {
	ReadState(key string, v any) error
	WriteState(key string, v any) error
	AppendLog(name string, line []byte) error
	ReadLogRaw(name string) ([]byte, error)
	Close() error
}

// validKey matches alphanumeric, dash, underscore, dot, and slash.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

// checkKey rejects keys that could escape the state namespace.
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("state: key must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("state: key must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("state: key %q contains invalid characters", key)
	}
	return nil
}

// DefaultRoot returns the default on-disk root for kernel state.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "warden")
	}
	return filepath.Join(home, ".warden")
}

// StateDir returns the state subdirectory under root.
func StateDir(root string) string {
	return filepath.Join(root, "state")
}

// LogDir returns the log subdirectory under root.
func LogDir(root string) string {
	return filepath.Join(root, "log")
}

// ProfilesDir returns the user profiles directory under root.
func ProfilesDir(root string) string {
	return filepath.Join(root, "profiles")
}

// EnsureDirs creates the kernel directory layout. Idempotent.
func EnsureDirs(root string) error {
	for _, dir := range []string{root, StateDir(root), LogDir(root), ProfilesDir(root)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("state: create %s: %w", dir, err)
		}
	}
	return nil
}
