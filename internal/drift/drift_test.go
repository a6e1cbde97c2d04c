package drift

import (
	"testing"

	"github.com/wardenhq/warden/internal/decision"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Hash:     "sha256:snap",
		AckEpoch: 3,
		EnabledCapabilities: []snapshot.CapabilityEntry{
			{ModuleID: "files.local", CapabilityID: "read", Type: model.CapFSRead, Tier: "T1"},
		},
		ActiveRules: []snapshot.RuleEntry{
			{RuleID: "no-secrets-dir", Verdict: model.VerdictDeny, Expr: "true", Hash: "sha256:r"},
		},
	}
}

func permitEntry(seq int64) decision.Entry {
	return decision.Entry{
		Seq:     seq,
		AgentID: "agent-1",
		Action: decision.ActionRef{
			ModuleID: "files.local", CapabilityID: "read",
			Type: model.CapFSRead, Tier: "T1",
		},
		Outcome:      model.Permit,
		SnapshotHash: "sha256:snap",
	}
}

func TestConsistentLogIsNone(t *testing.T) {
	entries := []decision.Entry{permitEntry(1), permitEntry(2)}
	r := Check(testSnapshot(), entries)
	if r.Status != StatusNone {
		t.Fatalf("status = %s, reasons = %v", r.Status, r.Reasons)
	}
	if r.Checked != 2 {
		t.Errorf("checked = %d", r.Checked)
	}
}

func TestEmptyLogIsUnknown(t *testing.T) {
	r := Check(testSnapshot(), nil)
	if r.Status != StatusUnknown {
		t.Fatalf("status = %s", r.Status)
	}
	if len(r.Reasons) == 0 || r.Reasons[0] != ReasonEmptyLog {
		t.Errorf("reasons = %v", r.Reasons)
	}
}

func TestNoSnapshotIsUnknown(t *testing.T) {
	r := Check(nil, []decision.Entry{permitEntry(1)})
	if r.Status != StatusUnknown || r.Reasons[0] != ReasonNoSnapshot {
		t.Errorf("got %+v", r)
	}
}

func TestPermitForDisabledCapabilityIsConflict(t *testing.T) {
	e := permitEntry(1)
	e.Action.CapabilityID = "write"
	r := Check(testSnapshot(), []decision.Entry{e})
	if r.Status != StatusConflict {
		t.Fatalf("status = %s", r.Status)
	}
	if r.Reasons[0] != ReasonPermitDisabledCap {
		t.Errorf("reasons = %v", r.Reasons)
	}
}

func TestDenyForDisabledCapabilityIsConsistent(t *testing.T) {
	e := permitEntry(1)
	e.Action.CapabilityID = "write"
	e.Outcome = model.Deny
	r := Check(testSnapshot(), []decision.Entry{e})
	if r.Status != StatusNone {
		t.Errorf("deny flagged as drift: %+v", r)
	}
}

func TestDecisiveRuleMissingFromSnapshot(t *testing.T) {
	e := permitEntry(1)
	e.Outcome = model.Deny
	e.DecisiveRule = "ghost-rule"
	r := Check(testSnapshot(), []decision.Entry{e})
	if r.Status != StatusConflict || r.Reasons[0] != ReasonDecisiveRuleAbsent {
		t.Errorf("got %+v", r)
	}
}

func TestKnownDecisiveRuleIsConsistent(t *testing.T) {
	e := permitEntry(1)
	e.Outcome = model.Deny
	e.DecisiveRule = "no-secrets-dir"
	r := Check(testSnapshot(), []decision.Entry{e})
	if r.Status != StatusNone {
		t.Errorf("got %+v", r)
	}
}

func TestOlderSnapshotEntriesSkipped(t *testing.T) {
	e := permitEntry(1)
	e.SnapshotHash = "sha256:older"
	e.Action.CapabilityID = "write" // would conflict under the current snapshot
	r := Check(testSnapshot(), []decision.Entry{e, permitEntry(2)})
	if r.Status != StatusNone {
		t.Errorf("pre-change entry judged against new snapshot: %+v", r)
	}
	if r.Checked != 1 {
		t.Errorf("checked = %d, want 1", r.Checked)
	}
}

func TestOnlyUntaggedEntriesIsUnknown(t *testing.T) {
	e := permitEntry(1)
	e.SnapshotHash = ""
	r := Check(testSnapshot(), []decision.Entry{e})
	if r.Status != StatusUnknown || r.Reasons[0] != ReasonUntaggedEntries {
		t.Errorf("got %+v", r)
	}
}
