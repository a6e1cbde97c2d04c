package decision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/state"
)

func FuzzVerify(f *testing.F) {
	// Seed with a valid 3-entry chain.
	seedRoot := f.TempDir()
	store, err := state.NewFileStore(seedRoot)
	if err != nil {
		f.Fatal(err)
	}
	log, err := Open(store)
	if err != nil {
		f.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		err := log.Record(Entry{
			AgentID: "agent-fuzz",
			Action:  ActionRef{ModuleID: "files.local", CapabilityID: "read", Type: model.CapFSRead, Tier: "T1"},
			Outcome: model.Permit,
			Reason:  "no restriction matched",
		})
		if err != nil {
			f.Fatal(err)
		}
	}
	validData, err := store.ReadLogRaw(LogName)
	if err != nil {
		f.Fatal(err)
	}
	_ = store.Close()
	f.Add(validData)

	f.Add([]byte{})
	f.Add([]byte(`{"not":"a valid entry"}` + "\n"))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		root := t.TempDir()
		fuzzStore, err := state.NewFileStore(root)
		if err != nil {
			t.Fatal(err)
		}
		defer fuzzStore.Close()

		logFile := filepath.Join(state.LogDir(root), LogName+".jsonl")
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(logFile, data, 0o644); err != nil {
			t.Fatal(err)
		}

		// Must not panic, whatever the bytes.
		Verify(fuzzStore)
	})
}
