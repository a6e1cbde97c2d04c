package registry

import (
	"sort"
	"time"

	"github.com/wardenhq/warden/internal/manifest"
)

// LoadResult reports what a successful load registered.
type LoadResult struct {
	ModuleID      string   `json:"module_id"`
	Hash          string   `json:"hash"`
	CapabilityIDs []string `json:"capability_ids"`
	AlreadyLoaded bool     `json:"already_loaded,omitempty"`
}

// Load verifies a manifest's integrity and validity, then registers
// the module and its capability descriptors. Every capability
// registers disabled: absence of an applied enable proposal means
// denied, no matter what the manifest asks for.
//
// Loading the same module id twice is a no-op success when the
// content hash is identical, and a ConflictError otherwise. On any
// error nothing is registered.
func (r *Registry) Load(m *manifest.Manifest, expectedHash string) (*LoadResult, error) {
	hash, err := manifest.VerifyIntegrity(m, expectedHash)
	if err != nil {
		return nil, err
	}

	if err := manifest.Validate(m); err != nil {
		return nil, err
	}

	// Precompile parameter schemas outside the lock; a schema failure
	// must not leave a half-registered module.
	caps := make([]*Capability, 0, len(m.CapabilityDescriptors))
	for _, d := range m.CapabilityDescriptors {
		if d.ModuleID == "" {
			d.ModuleID = m.ModuleID
		}
		schema, err := manifest.CompileParamsSchema(d)
		if err != nil {
			return nil, err
		}
		caps = append(caps, &Capability{Descriptor: d, Enabled: false, Schema: schema})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.modules[m.ModuleID]; ok {
		if existing.Hash == hash {
			return &LoadResult{
				ModuleID:      m.ModuleID,
				Hash:          hash,
				CapabilityIDs: capabilityIDs(existing.Manifest),
				AlreadyLoaded: true,
			}, nil
		}
		return nil, &ConflictError{ModuleID: m.ModuleID}
	}

	mod := &Module{
		Manifest: m,
		Hash:     hash,
		Enabled:  true, // registered means loaded; capabilities stay denied
		LoadedAt: time.Now().UTC(),
	}
	r.modules[m.ModuleID] = mod
	for _, c := range caps {
		r.caps[c.Key()] = c
	}

	return &LoadResult{
		ModuleID:      m.ModuleID,
		Hash:          hash,
		CapabilityIDs: capabilityIDs(m),
	}, nil
}

func capabilityIDs(m *manifest.Manifest) []string {
	ids := make([]string, 0, len(m.CapabilityDescriptors))
	for _, d := range m.CapabilityDescriptors {
		ids = append(ids, d.CapabilityID)
	}
	sort.Strings(ids)
	return ids
}
