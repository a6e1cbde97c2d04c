// Package proposal implements the confirm-on-change workflow. Every
// governance change is a proposal: created with a human-readable
// change summary, optionally gated behind a typed acknowledgment
// phrase, and resolved exactly once.
package proposal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/canon"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/restriction"
)

// Kind names the governance change a proposal carries.
type Kind string

const (
	KindEnableModule      Kind = "enable_module"
	KindDisableModule     Kind = "disable_module"
	KindEnableCapability  Kind = "enable_capability"
	KindDisableCapability Kind = "disable_capability"
	KindAddRule           Kind = "add_rule"
	KindRemoveRule        Kind = "remove_rule"
	KindSetFSRoots        Kind = "set_fs_roots"
	KindSetNetAllowlist   Kind = "set_net_allowlist"
	KindSetExecRoot       Kind = "set_exec_root"
	KindSetSecret         Kind = "set_secret"
	KindDeleteSecret      Kind = "delete_secret"
	KindSetSecretMode     Kind = "set_secret_mode"
)

// Status is the proposal lifecycle state. Transitions are one-way:
// pending resolves to exactly one of applied, rejected, or failed.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Change is the proposal payload. Only the fields relevant to the
// kind are set.
type Change struct {
	ModuleID     string            `json:"module_id,omitempty"`
	CapabilityID string            `json:"capability_id,omitempty"`
	Rule         *restriction.Rule `json:"rule,omitempty"`
	RuleID       string            `json:"rule_id,omitempty"`
	Project      string            `json:"project,omitempty"`
	FSRoots      []string          `json:"fs_roots,omitempty"`
	NetAllowlist []string          `json:"net_allowlist,omitempty"`
	ExecRoot     string            `json:"exec_root,omitempty"`
	SecretName   string            `json:"secret_name,omitempty"`
	SecretMode   string            `json:"secret_mode,omitempty"`

	// SecretValue is held in memory only and redacted before any
	// persistence or display; SecretDigest is what diffs and audit
	// records see.
	SecretValue  string `json:"-"`
	SecretDigest string `json:"secret_digest,omitempty"`
}

// Proposal is one pending or resolved governance-change request.
type Proposal struct {
	ID               string            `json:"id"`
	Kind             Kind              `json:"kind"`
	Change           Change            `json:"change"`
	Summary          string            `json:"summary"`
	CreatedBy        string            `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	Status           Status            `json:"status"`
	RequiresTypedAck bool              `json:"requires_typed_ack"`
	AckPhrase        string            `json:"ack_phrase,omitempty"`
	Hazards          []model.HazardTag `json:"hazards,omitempty"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
}

// AckMismatchError reports a typed-ack phrase that does not match.
// The proposal stays pending.
type AckMismatchError struct {
	ProposalID string
}

func (e *AckMismatchError) Error() string {
	return fmt.Sprintf("proposal %s: acknowledgment phrase does not match", e.ProposalID)
}

// StaleProposalError reports that a proposal's target is no longer
// consistent with current registry state. The proposal is marked
// failed.
type StaleProposalError struct {
	ProposalID string
	Reason     string
}

func (e *StaleProposalError) Error() string {
	return fmt.Sprintf("proposal %s is stale: %s", e.ProposalID, e.Reason)
}

// NotFoundError reports a reference to an unknown proposal.
type NotFoundError struct {
	ProposalID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("proposal %s not found", e.ProposalID)
}

// TerminalError reports an attempt to resolve an already-resolved
// proposal.
type TerminalError struct {
	ProposalID string
	Status     Status
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("proposal %s already %s", e.ProposalID, e.Status)
}

// New creates a pending proposal: assigns an id, computes the change
// summary and the typed-ack requirement. ackRequired carries the
// affected descriptors' ack flags; any hazard forces typed ack
// regardless.
func New(kind Kind, change Change, createdBy string, ackRequired bool, hazards []model.HazardTag) *Proposal {
	if change.SecretValue != "" {
		change.SecretDigest = canon.HashBytes([]byte(change.SecretValue))
	}

	p := &Proposal{
		ID:               uuid.NewString(),
		Kind:             kind,
		Change:           change,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now().UTC(),
		Status:           StatusPending,
		RequiresTypedAck: ackRequired || len(hazards) > 0,
		Hazards:          hazards,
	}
	p.Summary = summarize(p)
	if p.RequiresTypedAck {
		p.AckPhrase = Phrase(p)
	}
	return p
}

// Phrase derives the exact acknowledgment phrase an operator must
// type to apply the proposal.
func Phrase(p *Proposal) string {
	return strings.ToLower(fmt.Sprintf("apply %s %s", p.Kind, target(p)))
}

// target names what the proposal touches, for phrases and summaries.
func target(p *Proposal) string {
	c := p.Change
	switch p.Kind {
	case KindEnableModule, KindDisableModule:
		return c.ModuleID
	case KindEnableCapability, KindDisableCapability:
		return c.ModuleID + "/" + c.CapabilityID
	case KindAddRule:
		if c.Rule != nil {
			return c.Rule.ID
		}
		return c.RuleID
	case KindRemoveRule:
		return c.RuleID
	case KindSetFSRoots, KindSetNetAllowlist, KindSetExecRoot:
		return c.Project
	case KindSetSecret, KindDeleteSecret, KindSetSecretMode:
		return c.Project + "/" + c.SecretName
	default:
		return "unknown"
	}
}

// summarize renders the human-readable diff description shown before
// an operator confirms.
func summarize(p *Proposal) string {
	c := p.Change
	switch p.Kind {
	case KindEnableModule:
		return fmt.Sprintf("enable module %s", c.ModuleID)
	case KindDisableModule:
		return fmt.Sprintf("disable module %s", c.ModuleID)
	case KindEnableCapability:
		return fmt.Sprintf("enable capability %s/%s", c.ModuleID, c.CapabilityID)
	case KindDisableCapability:
		return fmt.Sprintf("disable capability %s/%s", c.ModuleID, c.CapabilityID)
	case KindAddRule:
		if c.Rule != nil {
			return fmt.Sprintf("add restriction rule %s (%s, %s)", c.Rule.ID, c.Rule.Verdict, c.Rule.Hash)
		}
		return fmt.Sprintf("add restriction rule %s", c.RuleID)
	case KindRemoveRule:
		return fmt.Sprintf("remove restriction rule %s", c.RuleID)
	case KindSetFSRoots:
		return fmt.Sprintf("project %s: set filesystem roots to [%s]", c.Project, strings.Join(c.FSRoots, ", "))
	case KindSetNetAllowlist:
		return fmt.Sprintf("project %s: set network allowlist to [%s]", c.Project, strings.Join(c.NetAllowlist, ", "))
	case KindSetExecRoot:
		return fmt.Sprintf("project %s: set exec root to %s", c.Project, c.ExecRoot)
	case KindSetSecret:
		return fmt.Sprintf("project %s: set secret %s (%s)", c.Project, c.SecretName, c.SecretDigest)
	case KindDeleteSecret:
		return fmt.Sprintf("project %s: delete secret %s", c.Project, c.SecretName)
	case KindSetSecretMode:
		return fmt.Sprintf("project %s: set secret %s mode to %s", c.Project, c.SecretName, c.SecretMode)
	default:
		return string(p.Kind)
	}
}

// Terminal reports whether the proposal has resolved.
func (p *Proposal) Terminal() bool {
	return p.Status != StatusPending
}
