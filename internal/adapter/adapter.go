// Package adapter executes permitted capability invocations. The
// dispatch table over capability types is closed and resolved at
// construction; the gate decides, adapters only carry out.
package adapter

import (
	"context"
	"fmt"

	"github.com/wardenhq/warden/internal/model"
)

// Result is what a handler returns for one permitted invocation.
type Result struct {
	Output map[string]any `json:"output,omitempty"`
}

// Handler executes one capability type. Implementations must respect
// the project posture they were constructed with; the gate has
// already authorized the call by the time Invoke runs.
type Handler interface {
	Invoke(ctx context.Context, req model.InvocationRequest) (*Result, error)
}

// Authorizer is the kernel-side decision surface the dispatcher
// consults before any handler runs.
type Authorizer interface {
	Authorize(req model.InvocationRequest) model.AuthzResult
}

// DeniedError reports an invocation the gate did not permit.
type DeniedError struct {
	Result model.AuthzResult
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("invocation %s: %s", e.Result.Outcome, e.Result.Reason)
}

// Escalated reports whether the denial asks for operator review
// rather than being final.
func (e *DeniedError) Escalated() bool {
	return e.Result.Outcome == model.Escalate
}

// Dispatcher routes permitted invocations to the handler registered
// for their capability type. The table is fixed at construction; an
// unregistered type dispatches to NotImplemented.
type Dispatcher struct {
	authz    Authorizer
	handlers map[model.CapabilityType]Handler
}

// NewDispatcher builds a dispatcher. handlers may cover any subset of
// the closed capability type enumeration.
func NewDispatcher(authz Authorizer, handlers map[model.CapabilityType]Handler) *Dispatcher {
	table := make(map[model.CapabilityType]Handler, len(handlers))
	for t, h := range handlers {
		table[t] = h
	}
	return &Dispatcher{authz: authz, handlers: table}
}

// Invoke authorizes the request and, only on Permit, runs the
// registered handler. Deny and Escalate surface as *DeniedError.
func (d *Dispatcher) Invoke(ctx context.Context, req model.InvocationRequest) (*Result, error) {
	res := d.authz.Authorize(req)
	if !res.Permitted() {
		return nil, &DeniedError{Result: res}
	}

	h, ok := d.handlers[req.Type]
	if !ok {
		h = NotImplemented{}
	}
	return h.Invoke(ctx, req)
}

// NotImplemented is the stub handler for capability types with no
// registered implementation.
type NotImplemented struct{}

func (NotImplemented) Invoke(_ context.Context, req model.InvocationRequest) (*Result, error) {
	return nil, fmt.Errorf("adapter: no handler for capability type %s", req.Type)
}
