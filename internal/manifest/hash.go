package manifest

import (
	"fmt"

	"github.com/wardenhq/warden/internal/canon"
	"github.com/wardenhq/warden/internal/model"
)

// hashedManifest is the content-addressed projection of a manifest.
// The declared Hash field is excluded: the digest covers content, not
// the claim about the content.
type hashedManifest struct {
	ModuleID              string            `json:"module_id"`
	ModuleName            string            `json:"module_name"`
	Version               string            `json:"version"`
	Description           string            `json:"description,omitempty"`
	Author                string            `json:"author,omitempty"`
	License               string            `json:"license,omitempty"`
	CapabilityDescriptors []Descriptor      `json:"capability_descriptors"`
	IntrinsicRestrictions []string          `json:"intrinsic_restrictions,omitempty"`
	HazardDeclarations    []model.HazardTag `json:"hazard_declarations,omitempty"`
	SuggestedProfiles     []string          `json:"suggested_profiles,omitempty"`
}

// ContentHash recomputes the manifest's content hash over the
// canonical serialization of its content-addressed fields.
func ContentHash(m *Manifest) (string, error) {
	h, err := canon.Hash(hashedManifest{
		ModuleID:              m.ModuleID,
		ModuleName:            m.ModuleName,
		Version:               m.Version,
		Description:           m.Description,
		Author:                m.Author,
		License:               m.License,
		CapabilityDescriptors: m.CapabilityDescriptors,
		IntrinsicRestrictions: m.IntrinsicRestrictions,
		HazardDeclarations:    m.HazardDeclarations,
		SuggestedProfiles:     m.SuggestedProfiles,
	})
	if err != nil {
		return "", fmt.Errorf("manifest: content hash: %w", err)
	}
	return h, nil
}

// IntegrityError reports a mismatch between a manifest's declared or
// expected hash and the hash of its actual content. Tamper or
// corruption; the module must not be registered.
type IntegrityError struct {
	ModuleID string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("manifest %s: content hash mismatch (expected %s, got %s)",
		e.ModuleID, e.Expected, e.Actual)
}

// VerifyIntegrity recomputes the content hash and checks it against
// the expected hash. When expected is empty, the manifest's declared
// Hash field is used; when that is also empty, the recomputed hash is
// accepted and returned (first publication).
func VerifyIntegrity(m *Manifest, expected string) (string, error) {
	actual, err := ContentHash(m)
	if err != nil {
		return "", err
	}
	if expected == "" {
		expected = m.Hash
	}
	if expected == "" {
		return actual, nil
	}
	if expected != actual {
		return "", &IntegrityError{ModuleID: m.ModuleID, Expected: expected, Actual: actual}
	}
	return actual, nil
}
