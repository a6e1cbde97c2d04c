package profile

import (
	"fmt"
	"strings"

	"github.com/wardenhq/warden/internal/proposal"
	"github.com/wardenhq/warden/internal/restriction"
)

// Item is one proposal a profile expands to.
type Item struct {
	Kind   proposal.Kind
	Change proposal.Change
}

// Expand compiles a profile into the ordered proposal list that
// realizes it: capability enables, rule additions, posture changes.
// Each item still goes through the normal proposal workflow, typed
// acks included.
func Expand(p *Profile, projectName string) ([]Item, error) {
	var items []Item

	for _, capRef := range p.Capabilities {
		moduleID, capID, ok := strings.Cut(capRef, "/")
		if !ok || moduleID == "" || capID == "" {
			return nil, fmt.Errorf("profile %s: capability %q is not module_id/capability_id", p.Name, capRef)
		}
		items = append(items, Item{
			Kind:   proposal.KindEnableCapability,
			Change: proposal.Change{ModuleID: moduleID, CapabilityID: capID},
		})
	}

	for _, spec := range p.Rules {
		rule, err := restriction.Compile(restriction.Input{
			RuleID:    spec.RuleID,
			Types:     spec.Types,
			MinTier:   spec.MinTier,
			Verdict:   spec.Verdict,
			Condition: spec.Condition,
			Reason:    spec.Reason,
		})
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		items = append(items, Item{
			Kind:   proposal.KindAddRule,
			Change: proposal.Change{Rule: rule},
		})
	}

	if p.Posture != nil {
		if len(p.Posture.FSRoots) > 0 {
			items = append(items, Item{
				Kind:   proposal.KindSetFSRoots,
				Change: proposal.Change{Project: projectName, FSRoots: p.Posture.FSRoots},
			})
		}
		if len(p.Posture.NetAllowlist) > 0 {
			items = append(items, Item{
				Kind:   proposal.KindSetNetAllowlist,
				Change: proposal.Change{Project: projectName, NetAllowlist: p.Posture.NetAllowlist},
			})
		}
		if p.Posture.ExecRoot != "" {
			items = append(items, Item{
				Kind:   proposal.KindSetExecRoot,
				Change: proposal.Change{Project: projectName, ExecRoot: p.Posture.ExecRoot},
			})
		}
	}

	return items, nil
}
