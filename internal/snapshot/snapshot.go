// Package snapshot serializes governance state into an immutable,
// content-hashed record. Two builds over identical registry contents
// always produce the identical hash; any change to the enabled sets
// or the active rules changes it.
package snapshot

import (
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/canon"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/registry"
	"github.com/wardenhq/warden/internal/restriction"
)

// ModuleEntry is one enabled module in a snapshot.
type ModuleEntry struct {
	ModuleID string `json:"module_id"`
	Version  string `json:"version"`
	Hash     string `json:"hash"`
}

// CapabilityEntry is one enabled capability in a snapshot.
type CapabilityEntry struct {
	ModuleID     string               `json:"module_id"`
	CapabilityID string               `json:"capability_id"`
	Type         model.CapabilityType `json:"type"`
	Tier         string               `json:"tier"`
}

// RuleEntry is one active restriction rule in a snapshot.
type RuleEntry struct {
	RuleID  string                 `json:"rule_id"`
	Types   []model.CapabilityType `json:"types,omitempty"`
	MinTier string                 `json:"min_tier,omitempty"`
	Verdict model.Verdict          `json:"verdict"`
	Expr    string                 `json:"expr"`
	Hash    string                 `json:"hash"`
}

// Snapshot is the hash-identified aggregate of governance state at a
// point in time. Prior snapshots are history and are never mutated.
type Snapshot struct {
	Hash                string            `json:"hash"`
	AckEpoch            int               `json:"ack_epoch"`
	BuiltAt             string            `json:"built_at"`
	EnabledModules      []ModuleEntry     `json:"enabled_modules"`
	EnabledCapabilities []CapabilityEntry `json:"enabled_capabilities"`
	ActiveRules         []RuleEntry       `json:"active_rules"`
}

// hashedSnapshot is the content-addressed projection: the three lists
// and nothing else. Epoch and build time are metadata, not content.
type hashedSnapshot struct {
	EnabledModules      []ModuleEntry     `json:"enabled_modules"`
	EnabledCapabilities []CapabilityEntry `json:"enabled_capabilities"`
	ActiveRules         []RuleEntry       `json:"active_rules"`
}

// Build produces a snapshot of the given registries at ack epoch
// priorEpoch+1. Inputs are read, never mutated. Entry lists are
// ordered lexicographically by id, so the serialization is canonical.
func Build(reg *registry.Registry, rules *restriction.Registry, priorEpoch int) (*Snapshot, error) {
	s := &Snapshot{
		AckEpoch:            priorEpoch + 1,
		BuiltAt:             time.Now().UTC().Format(time.RFC3339),
		EnabledModules:      []ModuleEntry{},
		EnabledCapabilities: []CapabilityEntry{},
		ActiveRules:         []RuleEntry{},
	}

	// Registry listings are already sorted by id.
	for _, m := range reg.Modules() {
		if !m.Enabled {
			continue
		}
		s.EnabledModules = append(s.EnabledModules, ModuleEntry{
			ModuleID: m.Manifest.ModuleID,
			Version:  m.Manifest.Version,
			Hash:     m.Hash,
		})
	}

	for _, c := range reg.Capabilities() {
		if !c.Enabled {
			continue
		}
		d := c.Descriptor
		s.EnabledCapabilities = append(s.EnabledCapabilities, CapabilityEntry{
			ModuleID:     d.ModuleID,
			CapabilityID: d.CapabilityID,
			Type:         d.Type,
			Tier:         d.Tier,
		})
	}

	for _, a := range rules.List() {
		r := a.Rule
		s.ActiveRules = append(s.ActiveRules, RuleEntry{
			RuleID:  r.ID,
			Types:   r.Types,
			MinTier: r.MinTier,
			Verdict: r.Verdict,
			Expr:    r.Expr,
			Hash:    r.Hash,
		})
	}

	h, err := canon.Hash(hashedSnapshot{
		EnabledModules:      s.EnabledModules,
		EnabledCapabilities: s.EnabledCapabilities,
		ActiveRules:         s.ActiveRules,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: hash: %w", err)
	}
	s.Hash = h
	return s, nil
}

// HasCapability reports whether the snapshot records the capability
// as enabled.
func (s *Snapshot) HasCapability(moduleID, capID string) bool {
	for _, c := range s.EnabledCapabilities {
		if c.ModuleID == moduleID && c.CapabilityID == capID {
			return true
		}
	}
	return false
}

// HasRule reports whether the snapshot records the rule as active.
func (s *Snapshot) HasRule(ruleID string) bool {
	for _, r := range s.ActiveRules {
		if r.RuleID == ruleID {
			return true
		}
	}
	return false
}
