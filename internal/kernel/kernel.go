// Package kernel owns the governance registries and serializes every
// mutation. All writes go through one exclusive lock; the gate and
// the read-only surfaces see a consistent registry version per read.
package kernel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wardenhq/warden/internal/decision"
	"github.com/wardenhq/warden/internal/gate"
	"github.com/wardenhq/warden/internal/manifest"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
	"github.com/wardenhq/warden/internal/proposal"
	"github.com/wardenhq/warden/internal/registry"
	"github.com/wardenhq/warden/internal/restriction"
	"github.com/wardenhq/warden/internal/snapshot"
	"github.com/wardenhq/warden/internal/state"
)

// stateKey is where the kernel persists its governance record.
const stateKey = "kernel"

// Kernel wires the registries, the proposal queue, the project
// posture, and the decision log behind a single-writer lock.
type Kernel struct {
	mu    sync.Mutex // serializes all governance mutation
	store state.Store

	caps  *registry.Registry
	rules *restriction.Registry
	queue *proposal.Queue
	proj  *project.Project
	log   *decision.Log
	gate  *gate.Gate

	snapMu sync.RWMutex
	snap   *snapshot.Snapshot
}

// persisted is the serialized governance record. Secret values are
// already redacted by project.Export; rule programs are recompiled
// from canonical source on restore.
type persisted struct {
	Manifests    []*manifest.Manifest `json:"manifests,omitempty"`
	ModuleHashes map[string]string    `json:"module_hashes,omitempty"`
	ModuleState  map[string]bool      `json:"module_state,omitempty"`
	CapState     map[string]bool      `json:"cap_state,omitempty"`
	Rules        []restriction.Rule   `json:"rules,omitempty"`
	Proposals    []*proposal.Proposal `json:"proposals,omitempty"`
	Project      project.State        `json:"project"`
	AckEpoch     int                  `json:"ack_epoch"`
}

// Open restores the kernel from the store, recompiles active rules,
// rebuilds the snapshot at the next ack epoch, and recovers the
// decision log chain.
func Open(store state.Store) (*Kernel, error) {
	k := &Kernel{
		store: store,
		caps:  registry.New(),
		rules: restriction.NewRegistry(),
		queue: proposal.NewQueue(),
		proj:  project.New(),
	}

	log, err := decision.Open(store)
	if err != nil {
		return nil, err
	}
	k.log = log
	k.gate = gate.New(k.caps, k.rules, k.log, k.snapshotHash)

	var rec persisted
	err = store.ReadState(stateKey, &rec)
	switch {
	case errors.Is(err, state.ErrNoState):
		// Fresh install.
	case err != nil:
		return nil, fmt.Errorf("kernel: restore state: %w", err)
	default:
		if err := k.restore(&rec); err != nil {
			return nil, err
		}
	}

	snap, err := snapshot.Build(k.caps, k.rules, rec.AckEpoch)
	if err != nil {
		return nil, err
	}
	k.snap = snap
	if err := k.persistLocked(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kernel) restore(rec *persisted) error {
	for _, m := range rec.Manifests {
		if _, err := k.caps.Load(m, rec.ModuleHashes[m.ModuleID]); err != nil {
			return fmt.Errorf("kernel: reload module %s: %w", m.ModuleID, err)
		}
	}
	for id, enabled := range rec.ModuleState {
		if err := k.caps.SetModuleEnabled(id, enabled); err != nil {
			return fmt.Errorf("kernel: restore module state: %w", err)
		}
	}
	for key, enabled := range rec.CapState {
		modID, capID, ok := splitKey(key)
		if !ok {
			continue
		}
		if err := k.caps.SetCapabilityEnabled(modID, capID, enabled); err != nil {
			return fmt.Errorf("kernel: restore capability state: %w", err)
		}
	}
	for i := range rec.Rules {
		r := rec.Rules[i]
		if err := k.rules.Add(&r); err != nil {
			return fmt.Errorf("kernel: restore rule %s: %w", r.ID, err)
		}
	}
	for _, p := range rec.Proposals {
		k.queue.Put(p)
	}
	k.proj.Restore(rec.Project)
	return nil
}

// persistLocked writes the governance record. Callers hold k.mu (or
// are still single-threaded in Open).
func (k *Kernel) persistLocked() error {
	rec := persisted{
		ModuleHashes: make(map[string]string),
		ModuleState:  make(map[string]bool),
		CapState:     make(map[string]bool),
		Project:      k.proj.Export(),
		Proposals:    k.queue.List(),
		AckEpoch:     k.Snapshot().AckEpoch,
	}
	for _, m := range k.caps.Modules() {
		rec.Manifests = append(rec.Manifests, m.Manifest)
		rec.ModuleHashes[m.Manifest.ModuleID] = m.Hash
		rec.ModuleState[m.Manifest.ModuleID] = m.Enabled
	}
	for _, c := range k.caps.Capabilities() {
		rec.CapState[c.Key()] = c.Enabled
	}
	for _, a := range k.rules.List() {
		rec.Rules = append(rec.Rules, a.Rule)
	}
	sort.Slice(rec.Manifests, func(i, j int) bool {
		return rec.Manifests[i].ModuleID < rec.Manifests[j].ModuleID
	})

	if err := k.store.WriteState(stateKey, &rec); err != nil {
		return fmt.Errorf("kernel: persist state: %w", err)
	}
	return nil
}

// rebuildLocked builds the next snapshot and persists. The epoch
// strictly increases with every call.
func (k *Kernel) rebuildLocked() error {
	prior := k.Snapshot().AckEpoch
	snap, err := snapshot.Build(k.caps, k.rules, prior)
	if err != nil {
		return err
	}
	k.snapMu.Lock()
	k.snap = snap
	k.snapMu.Unlock()
	return k.persistLocked()
}

// Snapshot returns the current rule snapshot.
func (k *Kernel) Snapshot() *snapshot.Snapshot {
	k.snapMu.RLock()
	defer k.snapMu.RUnlock()
	return k.snap
}

func (k *Kernel) snapshotHash() string {
	if s := k.Snapshot(); s != nil {
		return s.Hash
	}
	return ""
}

// LoadModule validates and registers a module manifest, then rebuilds
// the snapshot. Capabilities register disabled.
func (k *Kernel) LoadModule(m *manifest.Manifest, expectedHash string) (*registry.LoadResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	res, err := k.caps.Load(m, expectedHash)
	if err != nil {
		return nil, err
	}
	if res.AlreadyLoaded {
		return res, nil
	}
	if err := k.rebuildLocked(); err != nil {
		return nil, err
	}
	return res, nil
}

// UnloadModule removes a module and its capabilities, then rebuilds.
func (k *Kernel) UnloadModule(moduleID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.caps.Unload(moduleID); err != nil {
		return err
	}
	return k.rebuildLocked()
}

// Authorize evaluates one invocation through the execution gate.
func (k *Kernel) Authorize(req model.InvocationRequest) model.AuthzResult {
	return k.gate.Authorize(req)
}

// Registry exposes read access to the capability registry.
func (k *Kernel) Registry() *registry.Registry { return k.caps }

// Rules exposes read access to the restriction registry.
func (k *Kernel) Rules() *restriction.Registry { return k.rules }

// Proposals exposes read access to the proposal queue.
func (k *Kernel) Proposals() *proposal.Queue { return k.queue }

// Project exposes read access to the project posture.
func (k *Kernel) Project() *project.Project { return k.proj }

// Log exposes read access to the decision log.
func (k *Kernel) Log() *decision.Log { return k.log }

// Store exposes the backing store for integrity verification.
func (k *Kernel) Store() state.Store { return k.store }

func splitKey(key string) (string, string, bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
