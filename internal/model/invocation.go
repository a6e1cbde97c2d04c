package model

// InvocationRequest names one capability call an agent wants to make.
// The gate authorizes the request before any handler runs.
type InvocationRequest struct {
	// TraceID correlates the decision entry with the caller's own
	// records. Assigned by the gate when empty.
	TraceID      string         `json:"trace_id,omitempty"`
	ModuleID     string         `json:"module_id"`
	CapabilityID string         `json:"capability_id"`
	Type         CapabilityType `json:"type"`
	Tier         Tier           `json:"tier"`
	AgentID      string         `json:"agent_id"`
	Params       map[string]any `json:"params,omitempty"`
}

// AuthzResult is the gate's answer for one invocation.
type AuthzResult struct {
	Outcome      Outcome `json:"outcome"`
	Reason       string  `json:"reason"`
	DecisiveRule string  `json:"decisive_rule,omitempty"`
}

// Permitted reports whether the handler may run.
func (r AuthzResult) Permitted() bool {
	return r.Outcome == Permit
}
