package restriction

import (
	"errors"
	"testing"

	"github.com/wardenhq/warden/internal/model"
)

func compiled(t *testing.T, id, condition string) *Rule {
	t.Helper()
	r, err := Compile(Input{
		RuleID:    id,
		Types:     []model.CapabilityType{model.CapFSWrite},
		Verdict:   "deny",
		Condition: condition,
	})
	if err != nil {
		t.Fatalf("Compile(%s): %v", id, err)
	}
	return r
}

func TestRegistryAddRemove(t *testing.T) {
	g := NewRegistry()
	r := compiled(t, "r1", `agent == "intern-bot"`)

	if err := g.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}
	if err := g.Remove("r1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", g.Len())
	}
}

func TestRegistryDuplicateIdenticalIsNoop(t *testing.T) {
	g := NewRegistry()
	r := compiled(t, "r1", `tier >= 2`)
	if err := g.Add(r); err != nil {
		t.Fatal(err)
	}
	dup := compiled(t, "r1", `tier >= 2`)
	if err := g.Add(dup); err != nil {
		t.Errorf("identical re-add should be a no-op, got %v", err)
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}
}

func TestRegistryDuplicateDifferingConflicts(t *testing.T) {
	g := NewRegistry()
	if err := g.Add(compiled(t, "r1", `tier >= 2`)); err != nil {
		t.Fatal(err)
	}
	err := g.Add(compiled(t, "r1", `tier >= 3`))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
}

func TestRegistryRemoveMissing(t *testing.T) {
	g := NewRegistry()
	err := g.Remove("ghost")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
}

func TestRegistryRejectsTamperedHash(t *testing.T) {
	g := NewRegistry()
	r := compiled(t, "r1", `tier >= 2`)
	r.Hash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"
	if err := g.Add(r); err == nil {
		t.Fatal("expected declared-hash mismatch to fail")
	}
}

func TestRegistryListOrderedByID(t *testing.T) {
	g := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := g.Add(compiled(t, id, "")); err != nil {
			t.Fatal(err)
		}
	}
	list := g.List()
	if len(list) != 3 {
		t.Fatalf("List returned %d rules", len(list))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, a := range list {
		if a.Rule.ID != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, a.Rule.ID, want[i])
		}
	}
}
