package decision

import (
	"testing"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/state"
)

func benchEntry() Entry {
	return Entry{
		TraceID: "t-bench",
		AgentID: "agent-1",
		Action: ActionRef{
			ModuleID:     "files.local",
			CapabilityID: "read",
			Type:         model.CapFSRead,
			Tier:         "T1",
		},
		Outcome:      model.Permit,
		Reason:       "no restriction matched",
		SnapshotHash: "sha256:bench",
	}
}

func BenchmarkRecord_Single(b *testing.B) {
	store, err := state.NewFileStore(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	log, err := Open(store)
	if err != nil {
		b.Fatal(err)
	}
	entry := benchEntry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := log.Record(entry); err != nil {
			b.Fatal(err)
		}
	}
}

func benchVerify(b *testing.B, n int) {
	b.Helper()
	store, err := state.NewFileStore(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	log, err := Open(store)
	if err != nil {
		b.Fatal(err)
	}
	entry := benchEntry()
	for i := 0; i < n; i++ {
		if err := log.Record(entry); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res := Verify(store)
		if !res.Valid {
			b.Fatal("invalid chain:", res.Error)
		}
	}
}

func BenchmarkVerify_1000(b *testing.B) {
	benchVerify(b, 1000)
}

func BenchmarkVerify_10000(b *testing.B) {
	benchVerify(b, 10000)
}
