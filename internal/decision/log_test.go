package decision

import (
	"errors"
	"fmt"
	"testing"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/state"
)

func fileStore(t *testing.T) state.Store {
	t.Helper()
	s, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(outcome model.Outcome) Entry {
	return Entry{
		AgentID: "agent-1",
		Action: ActionRef{
			ModuleID:     "mod.a",
			CapabilityID: "read",
			Type:         model.CapFSRead,
			Tier:         "T1",
		},
		Outcome: outcome,
		Reason:  "test",
	}
}

func TestRecordAssignsSequence(t *testing.T) {
	l, err := Open(fileStore(t))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Record(entry(model.Deny)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries", len(all))
	}
	for i, e := range all {
		if e.Seq != int64(i+1) {
			t.Errorf("entry %d has seq %d", i, e.Seq)
		}
	}
	if all[0].PrevHash != GenesisHash {
		t.Errorf("first prev_hash = %s", all[0].PrevHash)
	}
}

func TestChainSurvivesReopen(t *testing.T) {
	store := fileStore(t)

	l1, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	if err := l1.Record(entry(model.Permit)); err != nil {
		t.Fatal(err)
	}

	l2, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	if err := l2.Record(entry(model.Deny)); err != nil {
		t.Fatal(err)
	}
	if l2.Seq() != 2 {
		t.Errorf("seq after reopen = %d, want 2", l2.Seq())
	}

	res := Verify(store)
	if !res.Valid {
		t.Errorf("chain broken after reopen: %s (line %d)", res.Error, res.ErrorLine)
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	store := fileStore(t)
	l, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Record(entry(model.Permit)); err != nil {
			t.Fatal(err)
		}
	}

	// Tampering means appending an entry whose prev_hash does not
	// chain; entries themselves are never rewritten through the API.
	forged := []byte(`{"seq":4,"ts":"2026-01-01T00:00:00.000Z","agent_id":"x","action":{"module_id":"m","capability_id":"c","type":"fs.read","tier":"T0"},"outcome":"permit","reason":"forged","prev_hash":"sha256:1111111111111111111111111111111111111111111111111111111111111111"}`)
	if err := store.AppendLog(LogName, forged); err != nil {
		t.Fatal(err)
	}

	res := Verify(store)
	if res.Valid {
		t.Fatal("forged entry not detected")
	}
	if res.ErrorLine != 4 {
		t.Errorf("error line = %d, want 4", res.ErrorLine)
	}
}

func TestQueryReverseChronological(t *testing.T) {
	l, err := Open(fileStore(t))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		e := entry(model.Deny)
		e.Reason = fmt.Sprintf("n=%d", i)
		if err := l.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.Query(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Reason != "n=4" || got[1].Reason != "n=3" {
		t.Errorf("order wrong: %s, %s", got[0].Reason, got[1].Reason)
	}
}

func TestQueryDefaultLimit(t *testing.T) {
	l, err := Open(fileStore(t))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < DefaultQueryLimit+10; i++ {
		if err := l.Record(entry(model.Permit)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := l.Query(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != DefaultQueryLimit {
		t.Errorf("default query returned %d, want %d", len(got), DefaultQueryLimit)
	}
}

type failingStore struct {
	state.Store
}

func (f *failingStore) AppendLog(name string, line []byte) error {
	return errors.New("disk full")
}

func TestRecordFailurePropagates(t *testing.T) {
	l, err := Open(&failingStore{Store: fileStore(t)})
	if err != nil {
		t.Fatal(err)
	}
	err = l.Record(entry(model.Permit))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if l.Seq() != 0 {
		t.Error("failed append advanced the sequence")
	}
}

func TestSQLiteBackend(t *testing.T) {
	s, err := state.NewSQLiteStore(t.TempDir() + "/d.db")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	l, err := Open(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Record(entry(model.Deny)); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(entry(model.Permit)); err != nil {
		t.Fatal(err)
	}
	res := Verify(s)
	if !res.Valid || res.Entries != 2 {
		t.Errorf("sqlite chain: valid=%v entries=%d err=%s", res.Valid, res.Entries, res.Error)
	}
}
