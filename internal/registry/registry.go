// Package registry is the single source of truth for what is loaded
// and what is enabled. Modules register through the loader; capability
// enablement changes only through proposal application. Absence of an
// explicit enable record means disabled.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wardenhq/warden/internal/manifest"
)

// ConflictError reports a module id collision with differing content.
type ConflictError struct {
	ModuleID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("module %s already loaded with different content", e.ModuleID)
}

// NotFoundError reports a reference to an unknown module or capability.
type NotFoundError struct {
	ModuleID     string
	CapabilityID string
}

func (e *NotFoundError) Error() string {
	if e.CapabilityID != "" {
		return fmt.Sprintf("capability %s/%s not found", e.ModuleID, e.CapabilityID)
	}
	return fmt.Sprintf("module %s not found", e.ModuleID)
}

// Module is a loaded capability provider.
type Module struct {
	Manifest *manifest.Manifest
	Hash     string
	Enabled  bool
	LoadedAt time.Time
}

// Capability is one registered capability descriptor plus its
// enablement state and precompiled parameter schema.
type Capability struct {
	Descriptor manifest.Descriptor
	Enabled    bool
	Schema     *jsonschema.Schema
}

// Key returns the registry key "module_id/capability_id".
func (c *Capability) Key() string {
	return c.Descriptor.ModuleID + "/" + c.Descriptor.CapabilityID
}

// Registry holds loaded modules and their capabilities. All mutation
// is routed through the kernel's single writer; reads may be
// concurrent.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
	caps    map[string]*Capability
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		modules: make(map[string]*Module),
		caps:    make(map[string]*Capability),
	}
}

// Modules returns all loaded modules sorted by module id.
func (r *Registry) Modules() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.ModuleID < out[j].Manifest.ModuleID
	})
	return out
}

// Module returns a loaded module by id.
func (r *Registry) Module(id string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	return m, ok
}

// Capabilities returns all registered capabilities sorted by key.
func (r *Registry) Capabilities() []*Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Capability, 0, len(r.caps))
	for _, c := range r.caps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Capability returns a registered capability.
func (r *Registry) Capability(moduleID, capID string) (*Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[moduleID+"/"+capID]
	return c, ok
}

// IsEnabled reports whether capability capID of module moduleID may
// currently execute: the module must be loaded and enabled and the
// capability must carry an explicit enable record.
func (r *Registry) IsEnabled(moduleID, capID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[moduleID]
	if !ok || !m.Enabled {
		return false
	}
	c, ok := r.caps[moduleID+"/"+capID]
	return ok && c.Enabled
}

// SetModuleEnabled flips a module's enabled state. Called only from
// proposal application.
func (r *Registry) SetModuleEnabled(moduleID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[moduleID]
	if !ok {
		return &NotFoundError{ModuleID: moduleID}
	}
	m.Enabled = enabled
	return nil
}

// SetCapabilityEnabled flips a capability's enabled state. Called
// only from proposal application.
func (r *Registry) SetCapabilityEnabled(moduleID, capID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caps[moduleID+"/"+capID]
	if !ok {
		return &NotFoundError{ModuleID: moduleID, CapabilityID: capID}
	}
	c.Enabled = enabled
	return nil
}

// Unload removes a module and its capabilities.
func (r *Registry) Unload(moduleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[moduleID]
	if !ok {
		return &NotFoundError{ModuleID: moduleID}
	}
	for _, d := range m.Manifest.CapabilityDescriptors {
		delete(r.caps, moduleID+"/"+d.CapabilityID)
	}
	delete(r.modules, moduleID)
	return nil
}

// Counts returns (modules, capabilities, enabled capabilities).
func (r *Registry) Counts() (int, int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enabled := 0
	for _, c := range r.caps {
		if c.Enabled {
			enabled++
		}
	}
	return len(r.modules), len(r.caps), enabled
}
