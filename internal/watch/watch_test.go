package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWriteTriggersHandler(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 1)

	w := New(dir, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "kernel.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("handler never fired")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on cancel")
	}
}

func TestRelevantFilters(t *testing.T) {
	cases := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/x/kernel.json", fsnotify.Write, true},
		{"/x/decisions.jsonl", fsnotify.Create, true},
		{"/x/warden.db", fsnotify.Write, true},
		{"/x/kernel.json.12345.tmp", fsnotify.Write, false},
		{"/x/.kernel.json.swp", fsnotify.Write, false},
		{"/x/readme.txt", fsnotify.Write, false},
		{"/x/kernel.json", fsnotify.Chmod, false},
	}
	for _, c := range cases {
		got := relevant(fsnotify.Event{Name: c.name, Op: c.op})
		if got != c.want {
			t.Errorf("relevant(%s, %v) = %v, want %v", c.name, c.op, got, c.want)
		}
	}
}
