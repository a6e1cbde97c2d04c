// Package gate is the execution gate: the single choke point every
// capability invocation passes through. It answers Permit, Deny, or
// Escalate, and no Permit is returned until the decision is durably
// logged.
package gate

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/decision"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/registry"
	"github.com/wardenhq/warden/internal/restriction"
)

// Gate authorizes invocation requests against the capability registry
// and the active restriction rule set. It holds no mutable state of
// its own; all governance state lives in the registries it reads.
type Gate struct {
	caps  *registry.Registry
	rules *restriction.Registry
	log   *decision.Log

	// snapshotHash reports the hash of the currently acknowledged
	// rule snapshot, for inclusion in decision entries. May be nil.
	snapshotHash func() string
}

// New builds a gate over the given registries and decision log.
func New(caps *registry.Registry, rules *restriction.Registry, log *decision.Log, snapshotHash func() string) *Gate {
	return &Gate{caps: caps, rules: rules, log: log, snapshotHash: snapshotHash}
}

// Authorize evaluates one invocation request and records the outcome.
// Fail closed throughout: an unknown capability, a disabled
// capability, a parameter schema violation, a rule evaluation error,
// or a decision log write failure all end in Deny.
func (g *Gate) Authorize(req model.InvocationRequest) model.AuthzResult {
	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}
	res := g.evaluate(req)

	e := decision.Entry{
		TraceID: req.TraceID,
		AgentID: req.AgentID,
		Action: decision.ActionRef{
			ModuleID:     req.ModuleID,
			CapabilityID: req.CapabilityID,
			Type:         req.Type,
			Tier:         req.Tier.String(),
		},
		Outcome:      res.Outcome,
		Reason:       res.Reason,
		DecisiveRule: res.DecisiveRule,
	}
	if g.snapshotHash != nil {
		e.SnapshotHash = g.snapshotHash()
	}

	if err := g.log.Record(e); err != nil {
		// The decision never became durable, so the invocation
		// must not proceed even if evaluation said Permit.
		return model.AuthzResult{
			Outcome: model.Deny,
			Reason:  fmt.Sprintf("decision log unavailable: %v", err),
		}
	}
	return res
}

func (g *Gate) evaluate(req model.InvocationRequest) model.AuthzResult {
	c, ok := g.caps.Capability(req.ModuleID, req.CapabilityID)
	if !ok {
		return model.AuthzResult{
			Outcome: model.Deny,
			Reason:  fmt.Sprintf("capability %s/%s is not registered", req.ModuleID, req.CapabilityID),
		}
	}
	if !g.caps.IsEnabled(req.ModuleID, req.CapabilityID) {
		return model.AuthzResult{
			Outcome: model.Deny,
			Reason:  fmt.Sprintf("capability %s/%s is not enabled", req.ModuleID, req.CapabilityID),
		}
	}

	// The request must invoke the capability as declared; an agent
	// cannot relabel an exec capability as fs.read to slip past
	// type-scoped rules.
	if req.Type != c.Descriptor.Type {
		return model.AuthzResult{
			Outcome: model.Deny,
			Reason: fmt.Sprintf("declared type %s does not match capability type %s",
				req.Type, c.Descriptor.Type),
		}
	}
	declaredTier, _ := model.ParseTier(c.Descriptor.Tier)
	if req.Tier != declaredTier {
		return model.AuthzResult{
			Outcome: model.Deny,
			Reason: fmt.Sprintf("declared tier %s does not match capability tier %s",
				req.Tier, c.Descriptor.Tier),
		}
	}

	if c.Schema != nil {
		params := req.Params
		if params == nil {
			params = map[string]any{}
		}
		if err := c.Schema.Validate(toJSONValue(params)); err != nil {
			return model.AuthzResult{
				Outcome: model.Deny,
				Reason:  fmt.Sprintf("parameters rejected by schema: %v", err),
			}
		}
	}

	// Rules evaluate in ascending rule id order; the first rule whose
	// scope covers the request and whose condition holds is decisive.
	input := map[string]any{
		"params":     req.Params,
		"agent":      req.AgentID,
		"capability": req.ModuleID + "/" + req.CapabilityID,
		"type":       string(req.Type),
		"tier":       int64(req.Tier),
	}
	if input["params"] == nil {
		input["params"] = map[string]any{}
	}

	for _, a := range g.rules.List() {
		if !a.Rule.AppliesTo(req.Type, req.Tier) {
			continue
		}
		out, _, err := a.Program.Eval(input)
		if err != nil {
			return model.AuthzResult{
				Outcome:      model.Deny,
				Reason:       fmt.Sprintf("rule %s evaluation failed: %v", a.Rule.ID, err),
				DecisiveRule: a.Rule.ID,
			}
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return model.AuthzResult{
				Outcome:      model.Deny,
				Reason:       fmt.Sprintf("rule %s condition did not yield a boolean", a.Rule.ID),
				DecisiveRule: a.Rule.ID,
			}
		}
		if !matched {
			continue
		}
		outcome := model.Deny
		if a.Rule.Verdict == model.VerdictEscalate {
			outcome = model.Escalate
		}
		return model.AuthzResult{
			Outcome:      outcome,
			Reason:       a.Rule.DenyReason(),
			DecisiveRule: a.Rule.ID,
		}
	}

	return model.AuthzResult{Outcome: model.Permit, Reason: "no restriction matched"}
}

// toJSONValue reduces params to plain decoded-JSON values so schema
// validation sees the same shapes it would over the wire.
func toJSONValue(params map[string]any) any {
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return params
	}
	return v
}
