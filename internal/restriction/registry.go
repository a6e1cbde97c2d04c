package restriction

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
)

// ConflictError reports an attempt to add a rule id that is already
// active with differing content.
type ConflictError struct {
	RuleID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("rule %s already active with different content", e.RuleID)
}

// NotFoundError reports a reference to a rule that is not active.
type NotFoundError struct {
	RuleID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rule %s not found", e.RuleID)
}

// Active pairs a rule with its compiled program.
type Active struct {
	Rule    Rule
	Program cel.Program
}

// Registry holds the active compiled-rule set. Mutations happen only
// through proposal application; the kernel serializes them.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]*Active
}

// NewRegistry returns an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]*Active)}
}

// Add activates a compiled rule. The rule's content hash is
// recomputed and must match; duplicate ids are a no-op when content
// is identical and a ConflictError otherwise. No partial mutation.
func (g *Registry) Add(r *Rule) error {
	h, err := HashIR(r)
	if err != nil {
		return err
	}
	if r.Hash != "" && r.Hash != h {
		return fmt.Errorf("rule %s: declared hash %s does not match compiled content %s", r.ID, r.Hash, h)
	}
	r.Hash = h

	prg, err := Program(r)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.rules[r.ID]; ok {
		if existing.Rule.Hash == r.Hash {
			return nil
		}
		return &ConflictError{RuleID: r.ID}
	}
	g.rules[r.ID] = &Active{Rule: *r, Program: prg}
	return nil
}

// Remove deactivates a rule by id.
func (g *Registry) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rules[id]; !ok {
		return &NotFoundError{RuleID: id}
	}
	delete(g.rules, id)
	return nil
}

// Get returns the active rule with the given id.
func (g *Registry) Get(id string) (*Active, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.rules[id]
	return a, ok
}

// List returns the active set ordered by rule id ascending. The gate
// evaluates in this order for determinism.
func (g *Registry) List() []*Active {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Active, 0, len(g.rules))
	for _, a := range g.rules {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rule.ID < out[j].Rule.ID })
	return out
}

// Len returns the number of active rules.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rules)
}
