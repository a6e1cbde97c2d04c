package restriction

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"

	"github.com/wardenhq/warden/internal/canon"
	"github.com/wardenhq/warden/internal/model"
)

// CompileError reports a syntax or semantic error in rule source.
type CompileError struct {
	RuleID  string
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("rule %s: compile error at %d:%d: %s", e.RuleID, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("rule %s: compile error: %s", e.RuleID, e.Message)
}

// Input holds the uncompiled rule as supplied by the operator.
type Input struct {
	RuleID    string                 `json:"rule_id" yaml:"rule_id"`
	Types     []model.CapabilityType `json:"types,omitempty" yaml:"types,omitempty"`
	MinTier   string                 `json:"min_tier,omitempty" yaml:"min_tier,omitempty"`
	Verdict   string                 `json:"verdict" yaml:"verdict"`
	Condition string                 `json:"condition,omitempty" yaml:"condition,omitempty"`
	Reason    string                 `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ruleIR is the canonical intermediate representation hashed into the
// rule's content hash. The rule id is identity, not content, and is
// excluded so renaming a rule never masquerades as a content change:
// two rules with identical IR share a hash.
type ruleIR struct {
	Types   []string `json:"types"`
	MinTier string   `json:"min_tier"`
	Verdict string   `json:"verdict"`
	Expr    string   `json:"expr"`
}

// newEnv builds the CEL environment rule conditions compile against.
// The variables are the invocation attributes visible to rules.
func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("agent", cel.StringType),
		cel.Variable("capability", cel.StringType),
		cel.Variable("type", cel.StringType),
		cel.Variable("tier", cel.IntType),
	)
}

// Compile turns rule source into a compiled Rule. A pure
// source-to-IR transform: deterministic, no registry or runtime state
// consulted. Identical source (up to CEL's own normalization of
// whitespace and parentheses) always yields the identical hash.
func Compile(in Input) (*Rule, error) {
	if in.RuleID == "" {
		return nil, &CompileError{Message: "rule_id is required"}
	}

	verdict, ok := model.ParseVerdict(in.Verdict)
	if !ok {
		return nil, &CompileError{RuleID: in.RuleID,
			Message: fmt.Sprintf("verdict %q is not deny or escalate", in.Verdict)}
	}

	if in.MinTier != "" {
		if _, ok := model.ParseTier(in.MinTier); !ok {
			return nil, &CompileError{RuleID: in.RuleID,
				Message: fmt.Sprintf("min_tier %q is not in T0..T3", in.MinTier)}
		}
	}

	for _, t := range in.Types {
		if !model.IsKnownCapabilityType(t) {
			return nil, &CompileError{RuleID: in.RuleID,
				Message: fmt.Sprintf("unknown capability type %q", t)}
		}
	}

	// An empty condition matches unconditionally within the scope.
	src := in.Condition
	if src == "" {
		src = "true"
	}

	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("restriction: cel env: %w", err)
	}

	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		ce := &CompileError{RuleID: in.RuleID, Message: issues.Err().Error()}
		if errs := issues.Errors(); len(errs) > 0 {
			ce.Line = errs[0].Location.Line()
			ce.Column = errs[0].Location.Column()
			ce.Message = errs[0].Message
		}
		return nil, ce
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, &CompileError{RuleID: in.RuleID,
			Message: fmt.Sprintf("condition must evaluate to bool, got %s", ast.OutputType())}
	}

	// Canonical unparse normalizes whitespace and formatting so the
	// hash depends on meaning, not typing.
	expr, err := cel.AstToString(ast)
	if err != nil {
		return nil, fmt.Errorf("restriction: unparse: %w", err)
	}

	rule := &Rule{
		ID:      in.RuleID,
		Types:   normalizeTypes(in.Types),
		MinTier: in.MinTier,
		Verdict: verdict,
		Expr:    expr,
		Source:  in.Condition,
		Reason:  in.Reason,
	}
	rule.Hash, err = HashIR(rule)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// HashIR computes the content hash over the rule's canonical IR.
func HashIR(r *Rule) (string, error) {
	types := make([]string, 0, len(r.Types))
	for _, t := range r.Types {
		types = append(types, string(t))
	}
	sort.Strings(types)

	h, err := canon.Hash(ruleIR{
		Types:   types,
		MinTier: r.MinTier,
		Verdict: string(r.Verdict),
		Expr:    r.Expr,
	})
	if err != nil {
		return "", fmt.Errorf("restriction: hash rule %s: %w", r.ID, err)
	}
	return h, nil
}

// normalizeTypes sorts and de-duplicates the scope type list so the
// IR is order-independent.
func normalizeTypes(types []model.CapabilityType) []model.CapabilityType {
	if len(types) == 0 {
		return nil
	}
	seen := make(map[model.CapabilityType]bool, len(types))
	out := make([]model.CapabilityType, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Program compiles the rule's canonical expression into an evaluable
// CEL program. Called when a rule enters the active set, once, so the
// gate never compiles on the hot path.
func Program(r *Rule) (cel.Program, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("restriction: cel env: %w", err)
	}
	ast, issues := env.Compile(r.Expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("restriction: recompile rule %s: %w", r.ID, issues.Err())
	}
	return env.Program(ast)
}
