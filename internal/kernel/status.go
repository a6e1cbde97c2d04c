package kernel

import (
	"github.com/wardenhq/warden/internal/decision"
	"github.com/wardenhq/warden/internal/drift"
	"github.com/wardenhq/warden/internal/portability"
	"github.com/wardenhq/warden/internal/project"
)

// Status is the narrow read-only view the CLI, TUI, and MCP surfaces
// consume. They never touch the registries directly.
type Status struct {
	SnapshotHash     string             `json:"snapshot_hash"`
	AckEpoch         int                `json:"ack_epoch"`
	Modules          int                `json:"modules"`
	ModulesEnabled   int                `json:"modules_enabled"`
	Capabilities     int                `json:"capabilities"`
	CapsEnabled      int                `json:"capabilities_enabled"`
	ActiveRules      int                `json:"active_rules"`
	PendingProposals int                `json:"pending_proposals"`
	Decisions        int64              `json:"decisions"`
	Posture          project.Posture    `json:"posture"`
	Secrets          int                `json:"secrets"`
	Drift            drift.Report       `json:"drift"`
	Portability      portability.Report `json:"portability"`
}

// Status collects the current governance summary.
func (k *Kernel) Status() (Status, error) {
	snap := k.Snapshot()
	modules, caps, capsEnabled := k.caps.Counts()
	modulesEnabled := 0
	for _, m := range k.caps.Modules() {
		if m.Enabled {
			modulesEnabled++
		}
	}

	st := Status{
		Modules:          modules,
		ModulesEnabled:   modulesEnabled,
		Capabilities:     caps,
		CapsEnabled:      capsEnabled,
		ActiveRules:      k.rules.Len(),
		PendingProposals: len(k.queue.Pending()),
		Decisions:        k.log.Seq(),
		Posture:          k.proj.Posture(),
		Secrets:          len(k.proj.Secrets()),
	}
	if snap != nil {
		st.SnapshotHash = snap.Hash
		st.AckEpoch = snap.AckEpoch
	}

	dr, err := k.Drift()
	if err != nil {
		return st, err
	}
	st.Drift = dr
	st.Portability = k.Portability()
	return st, nil
}

// Drift replays the decision log against the current snapshot.
func (k *Kernel) Drift() (drift.Report, error) {
	entries, err := k.log.All()
	if err != nil {
		return drift.Report{}, err
	}
	return drift.Check(k.Snapshot(), entries), nil
}

// Portability inspects snapshot and project state for machine-bound
// artifacts.
func (k *Kernel) Portability() portability.Report {
	return portability.Check(k.Snapshot(), k.proj.Export())
}

// QueryLog returns the most recent limit decisions, newest first.
func (k *Kernel) QueryLog(limit int) ([]decision.Entry, error) {
	return k.log.Query(limit)
}

// VerifyLog validates the decision log hash chain.
func (k *Kernel) VerifyLog() decision.VerifyResult {
	return decision.Verify(k.store)
}
