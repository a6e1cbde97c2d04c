// Package restriction holds dynamic restriction rules: operator
// supplied conditions that narrow when a capability may execute. A
// rule is compiled from source into a canonical intermediate form
// plus a deterministic content hash, then added to the active set
// only through an applied proposal.
package restriction

import (
	"fmt"

	"github.com/wardenhq/warden/internal/model"
)

// Rule is one compiled dynamic restriction rule.
type Rule struct {
	ID      string                 `json:"rule_id" yaml:"rule_id"`
	Types   []model.CapabilityType `json:"types,omitempty" yaml:"types,omitempty"`
	MinTier string                 `json:"min_tier,omitempty" yaml:"min_tier,omitempty"`
	Verdict model.Verdict          `json:"verdict" yaml:"verdict"`
	Expr    string                 `json:"expr" yaml:"expr"`
	Hash    string                 `json:"hash" yaml:"hash"`
	Source  string                 `json:"source,omitempty" yaml:"source,omitempty"`
	Reason  string                 `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// MinRiskTier returns the parsed tier floor; rules with no min_tier
// apply from T0 upward.
func (r Rule) MinRiskTier() model.Tier {
	if r.MinTier == "" {
		return model.Tier0
	}
	t, _ := model.ParseTier(r.MinTier)
	return t
}

// AppliesTo reports whether the rule's scope covers the given
// capability type and tier. Empty Types means all types.
func (r Rule) AppliesTo(t model.CapabilityType, tier model.Tier) bool {
	if tier < r.MinRiskTier() {
		return false
	}
	if len(r.Types) == 0 {
		return true
	}
	for _, rt := range r.Types {
		if rt == t {
			return true
		}
	}
	return false
}

// DenyReason is the human-readable reason recorded when the rule is
// decisive.
func (r Rule) DenyReason() string {
	if r.Reason != "" {
		return r.Reason
	}
	return fmt.Sprintf("restriction rule %s: %s", r.ID, r.Verdict)
}
