package snapshot

import (
	"testing"

	"github.com/wardenhq/warden/internal/manifest"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/registry"
	"github.com/wardenhq/warden/internal/restriction"
)

func populated(t *testing.T) (*registry.Registry, *restriction.Registry) {
	t.Helper()
	reg := registry.New()
	_, err := reg.Load(&manifest.Manifest{
		ModuleID:   "mod.a",
		ModuleName: "A",
		Version:    "1.0.0",
		CapabilityDescriptors: []manifest.Descriptor{
			{ModuleID: "mod.a", CapabilityID: "read", Type: model.CapFSRead, Tier: "T1"},
			{ModuleID: "mod.a", CapabilityID: "write", Type: model.CapFSWrite, Tier: "T2"},
		},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetCapabilityEnabled("mod.a", "read", true); err != nil {
		t.Fatal(err)
	}

	rules := restriction.NewRegistry()
	r, err := restriction.Compile(restriction.Input{
		RuleID:  "block-writes",
		Types:   []model.CapabilityType{model.CapFSWrite},
		MinTier: "T2",
		Verdict: "deny",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := rules.Add(r); err != nil {
		t.Fatal(err)
	}
	return reg, rules
}

func TestBuildDeterministic(t *testing.T) {
	reg, rules := populated(t)

	s1, err := Build(reg, rules, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s2, err := Build(reg, rules, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s1.Hash != s2.Hash {
		t.Errorf("identical inputs hashed differently: %s vs %s", s1.Hash, s2.Hash)
	}
	if s1.AckEpoch != 1 || s2.AckEpoch != 1 {
		t.Errorf("epoch = %d/%d, want 1", s1.AckEpoch, s2.AckEpoch)
	}
}

func TestBuildHashTracksContent(t *testing.T) {
	reg, rules := populated(t)
	before, err := Build(reg, rules, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.SetCapabilityEnabled("mod.a", "write", true); err != nil {
		t.Fatal(err)
	}
	after, err := Build(reg, rules, before.AckEpoch)
	if err != nil {
		t.Fatal(err)
	}

	if before.Hash == after.Hash {
		t.Error("enabling a capability did not change the snapshot hash")
	}
	if after.AckEpoch != before.AckEpoch+1 {
		t.Errorf("epoch = %d, want %d", after.AckEpoch, before.AckEpoch+1)
	}
}

func TestBuildHashTracksRules(t *testing.T) {
	reg, rules := populated(t)
	before, _ := Build(reg, rules, 0)

	if err := rules.Remove("block-writes"); err != nil {
		t.Fatal(err)
	}
	after, _ := Build(reg, rules, 1)

	if before.Hash == after.Hash {
		t.Error("removing a rule did not change the snapshot hash")
	}
}

func TestBuildExcludesDisabled(t *testing.T) {
	reg, rules := populated(t)
	s, err := Build(reg, rules, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !s.HasCapability("mod.a", "read") {
		t.Error("enabled capability missing from snapshot")
	}
	if s.HasCapability("mod.a", "write") {
		t.Error("disabled capability present in snapshot")
	}
	if !s.HasRule("block-writes") {
		t.Error("active rule missing from snapshot")
	}
	if len(s.EnabledModules) != 1 {
		t.Errorf("enabled modules = %d, want 1", len(s.EnabledModules))
	}
}

func TestBuildNeverMutatesInputs(t *testing.T) {
	reg, rules := populated(t)
	_, _, enabledBefore := reg.Counts()
	if _, err := Build(reg, rules, 0); err != nil {
		t.Fatal(err)
	}
	_, _, enabledAfter := reg.Counts()
	if enabledBefore != enabledAfter {
		t.Error("Build mutated registry enablement")
	}
	if rules.Len() != 1 {
		t.Error("Build mutated rule registry")
	}
}
