package decision

import "github.com/wardenhq/warden/internal/model"

// ActionRef is the flattened action recorded in each decision entry.
type ActionRef struct {
	ModuleID     string               `json:"module_id"`
	CapabilityID string               `json:"capability_id"`
	Type         model.CapabilityType `json:"type"`
	Tier         string               `json:"tier"`
}

// Entry is one line in the hash-chained JSONL decision log. All
// fields are structs and scalars (no map[string]any) so json.Marshal
// field order is deterministic and the hash chain is reproducible.
type Entry struct {
	Seq          int64         `json:"seq"`
	Timestamp    string        `json:"ts"`
	TraceID      string        `json:"trace_id,omitempty"`
	AgentID      string        `json:"agent_id"`
	Action       ActionRef     `json:"action"`
	Outcome      model.Outcome `json:"outcome"`
	Reason       string        `json:"reason"`
	DecisiveRule string        `json:"decisive_rule,omitempty"`
	SnapshotHash string        `json:"snapshot_hash,omitempty"`
	PrevHash     string        `json:"prev_hash"`
}
