package proposal

import (
	"sort"
	"sync"
	"time"
)

// Queue holds proposals, pending and resolved. Resolved proposals are
// retained for audit; nothing is ever deleted.
type Queue struct {
	mu        sync.RWMutex
	proposals map[string]*Proposal
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{proposals: make(map[string]*Proposal)}
}

// Put adds a proposal to the queue. The queue keeps its own copy, so
// later caller mutations never reach the stored record.
func (q *Queue) Put(p *Proposal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *p
	q.proposals[p.ID] = &cp
}

// Get returns a copy of a proposal by id. Status transitions happen
// only through the Mark* methods, never on a returned value.
func (q *Queue) Get(id string) (*Proposal, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	p, ok := q.proposals[id]
	if !ok {
		return nil, &NotFoundError{ProposalID: id}
	}
	cp := *p
	return &cp, nil
}

// List returns copies of all proposals, newest first.
func (q *Queue) List() []*Proposal {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*Proposal, 0, len(q.proposals))
	for _, p := range q.proposals {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Pending returns copies of pending proposals, oldest first.
func (q *Queue) Pending() []*Proposal {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*Proposal, 0)
	for _, p := range q.proposals {
		if p.Status == StatusPending {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CheckAck verifies the typed acknowledgment for a proposal. A
// mismatch leaves the proposal pending.
func (q *Queue) CheckAck(id, phrase string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	p, ok := q.proposals[id]
	if !ok {
		return &NotFoundError{ProposalID: id}
	}
	if !p.RequiresTypedAck {
		return nil
	}
	if phrase != p.AckPhrase {
		return &AckMismatchError{ProposalID: id}
	}
	return nil
}

// resolve moves a pending proposal to a terminal status.
func (q *Queue) resolve(id string, status Status, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.proposals[id]
	if !ok {
		return &NotFoundError{ProposalID: id}
	}
	if p.Terminal() {
		return &TerminalError{ProposalID: id, Status: p.Status}
	}
	now := time.Now().UTC()
	p.Status = status
	p.ResolvedAt = &now
	p.FailureReason = reason
	return nil
}

// MarkApplied resolves a proposal as applied.
func (q *Queue) MarkApplied(id string) error {
	return q.resolve(id, StatusApplied, "")
}

// MarkRejected resolves a proposal as rejected. Always legal from
// pending; no acknowledgment needed to say no.
func (q *Queue) MarkRejected(id string) error {
	return q.resolve(id, StatusRejected, "")
}

// MarkFailed resolves a proposal as failed with a reason.
func (q *Queue) MarkFailed(id, reason string) error {
	return q.resolve(id, StatusFailed, reason)
}
