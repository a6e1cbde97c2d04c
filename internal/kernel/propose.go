package kernel

import (
	"errors"
	"fmt"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
	"github.com/wardenhq/warden/internal/proposal"
	"github.com/wardenhq/warden/internal/registry"
)

// Propose creates a pending governance-change proposal. The typed-ack
// requirement and hazard set come from the affected descriptors; any
// declared hazard forces typed acknowledgment.
func (k *Kernel) Propose(kind proposal.Kind, change proposal.Change, createdBy string) (*proposal.Proposal, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ackRequired, hazards, err := k.assessLocked(kind, change)
	if err != nil {
		return nil, err
	}

	p := proposal.New(kind, change, createdBy, ackRequired, hazards)
	k.queue.Put(p)
	if err := k.persistLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

// assessLocked checks the proposal target exists and derives the ack
// requirement from what the change would grant. Changes that only
// reduce authority never require acknowledgment.
func (k *Kernel) assessLocked(kind proposal.Kind, change proposal.Change) (bool, []model.HazardTag, error) {
	switch kind {
	case proposal.KindEnableModule:
		m, ok := k.caps.Module(change.ModuleID)
		if !ok {
			return false, nil, &registry.NotFoundError{ModuleID: change.ModuleID}
		}
		ack := false
		for _, d := range m.Manifest.CapabilityDescriptors {
			if d.AckRequired {
				ack = true
			}
		}
		return ack, m.Manifest.HazardDeclarations, nil

	case proposal.KindDisableModule:
		if _, ok := k.caps.Module(change.ModuleID); !ok {
			return false, nil, &registry.NotFoundError{ModuleID: change.ModuleID}
		}
		return false, nil, nil

	case proposal.KindEnableCapability:
		c, ok := k.caps.Capability(change.ModuleID, change.CapabilityID)
		if !ok {
			return false, nil, &registry.NotFoundError{
				ModuleID: change.ModuleID, CapabilityID: change.CapabilityID}
		}
		return c.Descriptor.AckRequired, c.Descriptor.Hazards, nil

	case proposal.KindDisableCapability:
		if _, ok := k.caps.Capability(change.ModuleID, change.CapabilityID); !ok {
			return false, nil, &registry.NotFoundError{
				ModuleID: change.ModuleID, CapabilityID: change.CapabilityID}
		}
		return false, nil, nil

	case proposal.KindAddRule:
		if change.Rule == nil {
			return false, nil, fmt.Errorf("kernel: add_rule proposal carries no compiled rule")
		}
		// Changing the active rule set always takes the typed ack.
		return true, nil, nil

	case proposal.KindRemoveRule:
		if _, ok := k.rules.Get(change.RuleID); !ok {
			return false, nil, fmt.Errorf("kernel: rule %s not in active set", change.RuleID)
		}
		// Removing a restriction widens what agents may do.
		return true, nil, nil

	case proposal.KindSetFSRoots, proposal.KindSetNetAllowlist, proposal.KindSetExecRoot:
		return false, nil, nil

	case proposal.KindSetSecret:
		if change.SecretName == "" {
			return false, nil, fmt.Errorf("kernel: secret name is empty")
		}
		if _, ok := project.ParseSecretMode(change.SecretMode); !ok {
			return false, nil, fmt.Errorf("kernel: unknown secret mode %q", change.SecretMode)
		}
		return false, []model.HazardTag{model.HazardCredentialAccess}, nil

	case proposal.KindDeleteSecret, proposal.KindSetSecretMode:
		if _, ok := k.proj.Secret(change.SecretName); !ok {
			return false, nil, fmt.Errorf("kernel: secret %q not found", change.SecretName)
		}
		return false, nil, nil

	default:
		return false, nil, fmt.Errorf("kernel: unknown proposal kind %q", kind)
	}
}

// Apply resolves a pending proposal: verify the typed acknowledgment,
// re-validate the change against current registry state, mutate as a
// single atomic unit, rebuild the snapshot at the next ack epoch, and
// mark the proposal applied. A stale proposal is marked failed.
func (k *Kernel) Apply(id, ackPhrase string) (*proposal.Proposal, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.queue.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Terminal() {
		return nil, &proposal.TerminalError{ProposalID: id, Status: p.Status}
	}
	if err := k.queue.CheckAck(id, ackPhrase); err != nil {
		return nil, err
	}

	if err := k.mutateLocked(p); err != nil {
		var stale *proposal.StaleProposalError
		if errors.As(err, &stale) {
			_ = k.queue.MarkFailed(id, stale.Reason)
			_ = k.persistLocked()
			return nil, stale
		}
		return nil, err
	}

	if err := k.rebuildLocked(); err != nil {
		_ = k.queue.MarkFailed(id, "snapshot rebuild failed: "+err.Error())
		_ = k.persistLocked()
		return nil, err
	}
	if err := k.queue.MarkApplied(id); err != nil {
		return nil, err
	}
	if err := k.persistLocked(); err != nil {
		return nil, err
	}
	return k.queue.Get(id)
}

// Reject resolves a pending proposal as rejected. Always legal from
// pending; no acknowledgment needed.
func (k *Kernel) Reject(id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.queue.MarkRejected(id); err != nil {
		return err
	}
	return k.persistLocked()
}

// mutateLocked performs the registry mutation for an approved
// proposal. Target disappearance since propose time surfaces as a
// StaleProposalError.
func (k *Kernel) mutateLocked(p *proposal.Proposal) error {
	c := p.Change
	stale := func(format string, args ...any) error {
		return &proposal.StaleProposalError{
			ProposalID: p.ID,
			Reason:     fmt.Sprintf(format, args...),
		}
	}

	switch p.Kind {
	case proposal.KindEnableModule, proposal.KindDisableModule:
		enabled := p.Kind == proposal.KindEnableModule
		if err := k.caps.SetModuleEnabled(c.ModuleID, enabled); err != nil {
			return stale("module %s no longer loaded", c.ModuleID)
		}

	case proposal.KindEnableCapability, proposal.KindDisableCapability:
		enabled := p.Kind == proposal.KindEnableCapability
		if err := k.caps.SetCapabilityEnabled(c.ModuleID, c.CapabilityID, enabled); err != nil {
			return stale("capability %s/%s no longer registered", c.ModuleID, c.CapabilityID)
		}

	case proposal.KindAddRule:
		if c.Rule == nil {
			return stale("proposal carries no compiled rule")
		}
		r := *c.Rule
		if err := k.rules.Add(&r); err != nil {
			return stale("rule %s cannot be activated: %v", r.ID, err)
		}

	case proposal.KindRemoveRule:
		if err := k.rules.Remove(c.RuleID); err != nil {
			return stale("rule %s no longer in active set", c.RuleID)
		}

	case proposal.KindSetFSRoots:
		k.proj.SetFSRoots(c.FSRoots)
	case proposal.KindSetNetAllowlist:
		k.proj.SetNetAllowlist(c.NetAllowlist)
	case proposal.KindSetExecRoot:
		k.proj.SetExecRoot(c.ExecRoot)

	case proposal.KindSetSecret:
		mode, ok := project.ParseSecretMode(c.SecretMode)
		if !ok {
			return stale("unknown secret mode %q", c.SecretMode)
		}
		// Values are never persisted, so a proposal that survived a
		// restart has lost its payload and must be re-proposed.
		if c.SecretValue == "" {
			return stale("secret value for %q not retained; re-propose", c.SecretName)
		}
		if err := k.proj.SetSecret(c.SecretName, c.SecretValue, mode); err != nil {
			return stale("%v", err)
		}
	case proposal.KindDeleteSecret:
		if err := k.proj.DeleteSecret(c.SecretName); err != nil {
			return stale("secret %q no longer exists", c.SecretName)
		}
	case proposal.KindSetSecretMode:
		mode, ok := project.ParseSecretMode(c.SecretMode)
		if !ok {
			return stale("unknown secret mode %q", c.SecretMode)
		}
		if err := k.proj.SetSecretMode(c.SecretName, mode); err != nil {
			return stale("secret %q no longer exists", c.SecretName)
		}

	default:
		return stale("unknown proposal kind %q", p.Kind)
	}
	return nil
}
