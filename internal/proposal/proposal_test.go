package proposal

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/wardenhq/warden/internal/model"
)

func TestNewPlainProposal(t *testing.T) {
	p := New(KindEnableCapability, Change{ModuleID: "mod.a", CapabilityID: "read"}, "ops", false, nil)

	if p.Status != StatusPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.RequiresTypedAck {
		t.Error("no ack flag and no hazards should not require typed ack")
	}
	if p.ID == "" || p.Summary == "" {
		t.Errorf("missing id or summary: %+v", p)
	}
}

func TestAckRequiredFromDescriptorFlag(t *testing.T) {
	p := New(KindEnableCapability, Change{ModuleID: "mod.a", CapabilityID: "write"}, "ops", true, nil)
	if !p.RequiresTypedAck {
		t.Fatal("descriptor ack flag ignored")
	}
	if p.AckPhrase != "apply enable_capability mod.a/write" {
		t.Errorf("phrase = %q", p.AckPhrase)
	}
}

func TestHazardForcesTypedAck(t *testing.T) {
	// The capability's own flag is false; the hazard escalates anyway.
	p := New(KindEnableCapability, Change{ModuleID: "mod.a", CapabilityID: "wipe"},
		"ops", false, []model.HazardTag{model.HazardDestructive})
	if !p.RequiresTypedAck {
		t.Error("hazard did not force typed ack")
	}
}

func TestSecretValueNeverSerialized(t *testing.T) {
	p := New(KindSetSecret, Change{Project: "default", SecretName: "api_key", SecretValue: "hunter2"},
		"ops", false, []model.HazardTag{model.HazardCredentialAccess})

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("secret value leaked into serialized proposal")
	}
	if p.Change.SecretDigest == "" {
		t.Error("secret digest not computed")
	}
	if !strings.Contains(p.Summary, p.Change.SecretDigest) {
		t.Errorf("summary should reference the digest, got %q", p.Summary)
	}
}

func TestQueueAckGate(t *testing.T) {
	q := NewQueue()
	p := New(KindDisableModule, Change{ModuleID: "mod.a"}, "ops", true, nil)
	q.Put(p)

	err := q.CheckAck(p.ID, "yes please")
	var am *AckMismatchError
	if !errors.As(err, &am) {
		t.Fatalf("expected *AckMismatchError, got %v", err)
	}

	got, _ := q.Get(p.ID)
	if got.Status != StatusPending {
		t.Errorf("mismatched ack changed status to %s", got.Status)
	}

	if err := q.CheckAck(p.ID, p.AckPhrase); err != nil {
		t.Errorf("correct phrase rejected: %v", err)
	}
}

func TestQueueOneWayTransitions(t *testing.T) {
	q := NewQueue()
	p := New(KindEnableModule, Change{ModuleID: "mod.a"}, "ops", false, nil)
	q.Put(p)

	if err := q.MarkRejected(p.ID); err != nil {
		t.Fatalf("MarkRejected: %v", err)
	}

	err := q.MarkApplied(p.ID)
	var te *TerminalError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TerminalError, got %v", err)
	}
	if te.Status != StatusRejected {
		t.Errorf("terminal status = %s, want rejected", te.Status)
	}
}

func TestQueueMarkFailedKeepsReason(t *testing.T) {
	q := NewQueue()
	p := New(KindRemoveRule, Change{RuleID: "gone"}, "ops", false, nil)
	q.Put(p)

	if err := q.MarkFailed(p.ID, "rule no longer active"); err != nil {
		t.Fatal(err)
	}
	got, _ := q.Get(p.ID)
	if got.Status != StatusFailed || got.FailureReason != "rule no longer active" {
		t.Errorf("got %s / %q", got.Status, got.FailureReason)
	}
}

func TestQueueGetUnknown(t *testing.T) {
	q := NewQueue()
	_, err := q.Get("nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
}

func TestPendingOrderedOldestFirst(t *testing.T) {
	q := NewQueue()
	a := New(KindEnableModule, Change{ModuleID: "mod.a"}, "ops", false, nil)
	b := New(KindEnableModule, Change{ModuleID: "mod.b"}, "ops", false, nil)
	b.CreatedAt = a.CreatedAt.Add(1)
	q.Put(b)
	q.Put(a)

	pending := q.Pending()
	if len(pending) != 2 || pending[0].ID != a.ID {
		t.Errorf("pending order wrong: %v", pending)
	}
}

func TestQueueReturnsCopies(t *testing.T) {
	q := NewQueue()
	p := New(KindEnableModule, Change{ModuleID: "mod.a"}, "ops", false, nil)
	q.Put(p)

	before, _ := q.Get(p.ID)
	if err := q.MarkApplied(p.ID); err != nil {
		t.Fatal(err)
	}

	// The copy handed out earlier is unaffected by the transition.
	if before.Status != StatusPending {
		t.Errorf("earlier copy mutated to %s", before.Status)
	}

	// Writes to a returned copy never reach the stored record.
	before.Status = StatusFailed
	before.FailureReason = "scribbled"
	got, _ := q.Get(p.ID)
	if got.Status != StatusApplied || got.FailureReason != "" {
		t.Errorf("stored record changed through a copy: %s / %q", got.Status, got.FailureReason)
	}

	// Put keeps its own copy too.
	p.Status = StatusRejected
	list := q.List()
	if len(list) != 1 || list[0].Status != StatusApplied {
		t.Errorf("caller mutation reached the queue: %+v", list)
	}
}
