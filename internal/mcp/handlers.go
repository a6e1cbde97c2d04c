package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenhq/warden/internal/decision"
	"github.com/wardenhq/warden/internal/drift"
	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/portability"
	"github.com/wardenhq/warden/internal/proposal"
)

// StatusInput is empty; no parameters needed.
type StatusInput struct{}

// CapabilitiesInput is empty; no parameters needed.
type CapabilitiesInput struct{}

// CapabilityItem describes one registered capability.
type CapabilityItem struct {
	ModuleID     string   `json:"module_id"`
	CapabilityID string   `json:"capability_id"`
	Type         string   `json:"type"`
	Tier         string   `json:"tier"`
	Enabled      bool     `json:"enabled"`
	AckRequired  bool     `json:"ack_required"`
	Hazards      []string `json:"hazards,omitempty"`
}

// CapabilitiesOutput lists registered capabilities.
type CapabilitiesOutput struct {
	Capabilities []CapabilityItem `json:"capabilities"`
}

// RulesInput is empty; no parameters needed.
type RulesInput struct{}

// RuleItem describes one active restriction rule.
type RuleItem struct {
	RuleID  string   `json:"rule_id"`
	Types   []string `json:"types,omitempty"`
	MinTier string   `json:"min_tier,omitempty"`
	Verdict string   `json:"verdict"`
	Expr    string   `json:"expr"`
	Hash    string   `json:"hash"`
	Reason  string   `json:"reason,omitempty"`
}

// RulesOutput lists active restriction rules.
type RulesOutput struct {
	Rules []RuleItem `json:"rules"`
}

// ProposalsInput selects which proposals to list.
type ProposalsInput struct {
	PendingOnly bool `json:"pending_only,omitempty" jsonschema:"list only pending proposals"`
}

// ProposalItem describes one proposal.
type ProposalItem struct {
	ID               string   `json:"id"`
	Kind             string   `json:"kind"`
	Summary          string   `json:"summary"`
	Status           string   `json:"status"`
	RequiresTypedAck bool     `json:"requires_typed_ack"`
	AckPhrase        string   `json:"ack_phrase,omitempty"`
	Hazards          []string `json:"hazards,omitempty"`
	CreatedBy        string   `json:"created_by"`
	CreatedAt        string   `json:"created_at"`
}

// ProposalsOutput lists proposals.
type ProposalsOutput struct {
	Proposals []ProposalItem `json:"proposals"`
}

// LogInput selects how many decisions to return.
type LogInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"max entries to return, default 50"`
}

// LogOutput lists recent decisions, newest first.
type LogOutput struct {
	Entries []decision.Entry `json:"entries"`
}

// CheckInput names the invocation to dry-run.
type CheckInput struct {
	ModuleID     string         `json:"module_id" jsonschema:"module id"`
	CapabilityID string         `json:"capability_id" jsonschema:"capability id"`
	Type         string         `json:"type" jsonschema:"capability type (fs.read, fs.write, net.fetch, exec.run, inference.invoke, secret.read)"`
	Tier         string         `json:"tier" jsonschema:"risk tier (T0-T3)"`
	AgentID      string         `json:"agent_id" jsonschema:"acting agent id"`
	Params       map[string]any `json:"params,omitempty" jsonschema:"invocation parameters"`
}

// CheckOutput carries the gate's answer.
type CheckOutput struct {
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	DecisiveRule string `json:"decisive_rule,omitempty"`
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, kernel.Status, error) {
	st, err := s.kernel.Status()
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, kernel.Status{}, err
	}
	return nil, st, nil
}

func (s *Server) handleCapabilities(_ context.Context, _ *mcpsdk.CallToolRequest, _ CapabilitiesInput) (*mcpsdk.CallToolResult, CapabilitiesOutput, error) {
	out := CapabilitiesOutput{Capabilities: []CapabilityItem{}}
	for _, c := range s.kernel.Registry().Capabilities() {
		item := CapabilityItem{
			ModuleID:     c.Descriptor.ModuleID,
			CapabilityID: c.Descriptor.CapabilityID,
			Type:         string(c.Descriptor.Type),
			Tier:         c.Descriptor.Tier,
			Enabled:      s.kernel.Registry().IsEnabled(c.Descriptor.ModuleID, c.Descriptor.CapabilityID),
			AckRequired:  c.Descriptor.AckRequired,
		}
		for _, h := range c.Descriptor.Hazards {
			item.Hazards = append(item.Hazards, string(h))
		}
		out.Capabilities = append(out.Capabilities, item)
	}
	return nil, out, nil
}

func (s *Server) handleRules(_ context.Context, _ *mcpsdk.CallToolRequest, _ RulesInput) (*mcpsdk.CallToolResult, RulesOutput, error) {
	out := RulesOutput{Rules: []RuleItem{}}
	for _, a := range s.kernel.Rules().List() {
		item := RuleItem{
			RuleID:  a.Rule.ID,
			MinTier: a.Rule.MinTier,
			Verdict: string(a.Rule.Verdict),
			Expr:    a.Rule.Expr,
			Hash:    a.Rule.Hash,
			Reason:  a.Rule.Reason,
		}
		for _, t := range a.Rule.Types {
			item.Types = append(item.Types, string(t))
		}
		out.Rules = append(out.Rules, item)
	}
	return nil, out, nil
}

func (s *Server) handleProposals(_ context.Context, _ *mcpsdk.CallToolRequest, input ProposalsInput) (*mcpsdk.CallToolResult, ProposalsOutput, error) {
	var list []*proposal.Proposal
	if input.PendingOnly {
		list = s.kernel.Proposals().Pending()
	} else {
		list = s.kernel.Proposals().List()
	}

	out := ProposalsOutput{Proposals: []ProposalItem{}}
	for _, p := range list {
		item := ProposalItem{
			ID:               p.ID,
			Kind:             string(p.Kind),
			Summary:          p.Summary,
			Status:           string(p.Status),
			RequiresTypedAck: p.RequiresTypedAck,
			AckPhrase:        p.AckPhrase,
			CreatedBy:        p.CreatedBy,
			CreatedAt:        p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		for _, h := range p.Hazards {
			item.Hazards = append(item.Hazards, string(h))
		}
		out.Proposals = append(out.Proposals, item)
	}
	return nil, out, nil
}

func (s *Server) handleLog(_ context.Context, _ *mcpsdk.CallToolRequest, input LogInput) (*mcpsdk.CallToolResult, LogOutput, error) {
	entries, err := s.kernel.QueryLog(input.Limit)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, LogOutput{}, err
	}
	if entries == nil {
		entries = []decision.Entry{}
	}
	return nil, LogOutput{Entries: entries}, nil
}

// DriftInput is empty; no parameters needed.
type DriftInput struct{}

// PortabilityInput is empty; no parameters needed.
type PortabilityInput struct{}

func (s *Server) handleDrift(_ context.Context, _ *mcpsdk.CallToolRequest, _ DriftInput) (*mcpsdk.CallToolResult, drift.Report, error) {
	rep, err := s.kernel.Drift()
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, drift.Report{}, err
	}
	return nil, rep, nil
}

func (s *Server) handlePortability(_ context.Context, _ *mcpsdk.CallToolRequest, _ PortabilityInput) (*mcpsdk.CallToolResult, portability.Report, error) {
	return nil, s.kernel.Portability(), nil
}

func (s *Server) handleCheck(_ context.Context, _ *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	tier, ok := model.ParseTier(input.Tier)
	if !ok {
		return &mcpsdk.CallToolResult{IsError: true}, CheckOutput{},
			fmt.Errorf("tier %q is not in T0..T3", input.Tier)
	}

	res := s.kernel.Authorize(model.InvocationRequest{
		ModuleID:     input.ModuleID,
		CapabilityID: input.CapabilityID,
		Type:         model.CapabilityType(input.Type),
		Tier:         tier,
		AgentID:      input.AgentID,
		Params:       input.Params,
	})
	return nil, CheckOutput{
		Outcome:      string(res.Outcome),
		Reason:       res.Reason,
		DecisiveRule: res.DecisiveRule,
	}, nil
}
