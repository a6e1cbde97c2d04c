// Package manifest defines the module manifest a capability provider
// ships, validates it against the expected schema, and computes its
// content hash. Validation is pure: no registry access, no side
// effects.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wardenhq/warden/internal/model"
)

// Descriptor declares one capability a module offers.
type Descriptor struct {
	ModuleID       string               `json:"module_id" yaml:"module_id"`
	CapabilityID   string               `json:"capability_id" yaml:"capability_id"`
	Type           model.CapabilityType `json:"type" yaml:"type"`
	Tier           string               `json:"tier" yaml:"tier"`
	ParamsSchema   string               `json:"params_schema,omitempty" yaml:"params_schema,omitempty"`
	AckRequired    bool                 `json:"ack_required" yaml:"ack_required"`
	DefaultEnabled bool                 `json:"default_enabled" yaml:"default_enabled"`
	Hazards        []model.HazardTag    `json:"hazards,omitempty" yaml:"hazards,omitempty"`
}

// RiskTier returns the parsed tier. Callers must validate first.
func (d Descriptor) RiskTier() model.Tier {
	t, _ := model.ParseTier(d.Tier)
	return t
}

// Manifest is a module's immutable declaration of what it can do.
type Manifest struct {
	ModuleID              string            `json:"module_id" yaml:"module_id"`
	ModuleName            string            `json:"module_name" yaml:"module_name"`
	Version               string            `json:"version" yaml:"version"`
	Description           string            `json:"description,omitempty" yaml:"description,omitempty"`
	Author                string            `json:"author,omitempty" yaml:"author,omitempty"`
	License               string            `json:"license,omitempty" yaml:"license,omitempty"`
	Hash                  string            `json:"hash,omitempty" yaml:"hash,omitempty"`
	CapabilityDescriptors []Descriptor      `json:"capability_descriptors" yaml:"capability_descriptors"`
	IntrinsicRestrictions []string          `json:"intrinsic_restrictions,omitempty" yaml:"intrinsic_restrictions,omitempty"`
	HazardDeclarations    []model.HazardTag `json:"hazard_declarations,omitempty" yaml:"hazard_declarations,omitempty"`
	SuggestedProfiles     []string          `json:"suggested_profiles,omitempty" yaml:"suggested_profiles,omitempty"`
}

// ReadFile loads a manifest from a JSON or YAML file.
// YAML is a superset of JSON, so one decoder covers both.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", filepath.Base(path), err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}
