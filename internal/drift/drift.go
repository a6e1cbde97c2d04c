// Package drift replays the decision log against the latest rule
// snapshot and classifies whether observed authorizations are
// consistent with the governance state they claim to have run under.
package drift

import (
	"fmt"

	"github.com/wardenhq/warden/internal/decision"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/snapshot"
)

// Status classifies observed-vs-expected divergence.
type Status string

const (
	// StatusNone means every replayed decision is consistent with
	// the snapshot it was taken under.
	StatusNone Status = "none"
	// StatusUnknown means there is not enough log data to judge.
	StatusUnknown Status = "unknown"
	// StatusConflict means at least one decision contradicts the
	// snapshot, e.g. a Permit for a capability the snapshot shows
	// disabled. That signals a missed snapshot rebuild or a bypass.
	StatusConflict Status = "conflict"
)

// Reason codes attached to a report.
const (
	ReasonEmptyLog           = "empty_log"
	ReasonNoSnapshot         = "no_snapshot"
	ReasonUntaggedEntries    = "entries_without_snapshot_hash"
	ReasonPermitDisabledCap  = "permit_for_disabled_capability"
	ReasonDecisiveRuleAbsent = "decisive_rule_not_in_snapshot"
)

// Report is the outcome of one drift check. Derived and ephemeral;
// never persisted.
type Report struct {
	Status       Status   `json:"status"`
	SnapshotHash string   `json:"snapshot_hash,omitempty"`
	Checked      int      `json:"checked"`
	Reasons      []string `json:"reasons,omitempty"`
	Details      []string `json:"details,omitempty"`
}

// Check replays entries against snap. Only entries stamped with
// snap's hash are judged against it; entries taken under earlier
// snapshots reflect earlier state and cannot conflict with this one.
func Check(snap *snapshot.Snapshot, entries []decision.Entry) Report {
	if snap == nil {
		return Report{Status: StatusUnknown, Reasons: []string{ReasonNoSnapshot}}
	}
	r := Report{SnapshotHash: snap.Hash}
	if len(entries) == 0 {
		r.Status = StatusUnknown
		r.Reasons = append(r.Reasons, ReasonEmptyLog)
		return r
	}

	untagged := 0
	for _, e := range entries {
		if e.SnapshotHash == "" {
			untagged++
			continue
		}
		if e.SnapshotHash != snap.Hash {
			continue
		}
		r.Checked++

		if e.Outcome == model.Permit &&
			!snap.HasCapability(e.Action.ModuleID, e.Action.CapabilityID) {
			r.Status = StatusConflict
			r.Reasons = appendUnique(r.Reasons, ReasonPermitDisabledCap)
			r.Details = append(r.Details, fmt.Sprintf(
				"entry %d: permit for %s/%s which the snapshot does not enable",
				e.Seq, e.Action.ModuleID, e.Action.CapabilityID))
		}

		if e.DecisiveRule != "" && !snap.HasRule(e.DecisiveRule) {
			r.Status = StatusConflict
			r.Reasons = appendUnique(r.Reasons, ReasonDecisiveRuleAbsent)
			r.Details = append(r.Details, fmt.Sprintf(
				"entry %d: decisive rule %s not in snapshot",
				e.Seq, e.DecisiveRule))
		}
	}

	if r.Status == StatusConflict {
		return r
	}
	if r.Checked == 0 {
		r.Status = StatusUnknown
		if untagged > 0 {
			r.Reasons = append(r.Reasons, ReasonUntaggedEntries)
		} else {
			r.Reasons = append(r.Reasons, ReasonEmptyLog)
		}
		return r
	}
	r.Status = StatusNone
	return r
}

func appendUnique(codes []string, code string) []string {
	for _, c := range codes {
		if c == code {
			return codes
		}
	}
	return append(codes, code)
}
