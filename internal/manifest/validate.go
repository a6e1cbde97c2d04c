package manifest

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wardenhq/warden/internal/model"
)

// Violation is one schema or cross-field failure in a manifest.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects all violations found in a manifest.
type ValidationError struct {
	ModuleID   string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Reason))
	}
	return fmt.Sprintf("manifest %s invalid: %s", e.ModuleID, strings.Join(parts, "; "))
}

// add appends a violation.
func (e *ValidationError) add(field, reason string) {
	e.Violations = append(e.Violations, Violation{Field: field, Reason: reason})
}

// Validate checks a manifest against the expected schema and
// cross-field invariants. Returns nil if valid, or a
// *ValidationError listing every problem found. Pure: no registry
// access, no side effects.
func Validate(m *Manifest) error {
	ve := &ValidationError{ModuleID: m.ModuleID}

	if m.ModuleID == "" {
		ve.add("module_id", "is required")
	}
	if m.ModuleName == "" {
		ve.add("module_name", "is required")
	}
	if m.Version == "" {
		ve.add("version", "is required")
	}

	for _, h := range m.HazardDeclarations {
		if !model.IsKnownHazardTag(h) {
			ve.add("hazard_declarations", fmt.Sprintf("unknown hazard tag %q", h))
		}
	}

	if len(m.CapabilityDescriptors) == 0 {
		ve.add("capability_descriptors", "at least one descriptor is required")
	}

	seen := make(map[string]bool, len(m.CapabilityDescriptors))
	for i, d := range m.CapabilityDescriptors {
		field := fmt.Sprintf("capability_descriptors[%d]", i)

		if d.CapabilityID == "" {
			ve.add(field+".capability_id", "is required")
		} else if seen[d.CapabilityID] {
			ve.add(field+".capability_id", fmt.Sprintf("duplicate capability id %q", d.CapabilityID))
		}
		seen[d.CapabilityID] = true

		if d.ModuleID != "" && d.ModuleID != m.ModuleID {
			ve.add(field+".module_id", fmt.Sprintf("does not match manifest module id %q", m.ModuleID))
		}

		if !model.IsKnownCapabilityType(d.Type) {
			ve.add(field+".type", fmt.Sprintf("unknown capability type %q", d.Type))
		}

		if _, ok := model.ParseTier(d.Tier); !ok {
			ve.add(field+".tier", fmt.Sprintf("tier %q is not in T0..T3", d.Tier))
		}

		if d.ParamsSchema != "" {
			if err := checkParamsSchema(d.ParamsSchema); err != nil {
				ve.add(field+".params_schema", err.Error())
			}
		}

		for _, h := range d.Hazards {
			if !model.IsKnownHazardTag(h) {
				ve.add(field+".hazards", fmt.Sprintf("unknown hazard tag %q", h))
			}
		}
	}

	if len(ve.Violations) > 0 {
		return ve
	}
	return nil
}

// checkParamsSchema compiles the descriptor's parameter schema to
// prove it is well-formed JSON Schema (draft 2020-12).
func checkParamsSchema(schema string) error {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "mem://params.schema.json"
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return fmt.Errorf("not valid JSON: %v", err)
	}
	if _, err := c.Compile(url); err != nil {
		return fmt.Errorf("not a valid schema: %v", err)
	}
	return nil
}

// CompileParamsSchema returns the compiled parameter schema for a
// descriptor, or nil when the descriptor declares none. Used by the
// gate to validate invocation parameters.
func CompileParamsSchema(d Descriptor) (*jsonschema.Schema, error) {
	if d.ParamsSchema == "" {
		return nil, nil
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("mem://%s/%s.schema.json", d.ModuleID, d.CapabilityID)
	if err := c.AddResource(url, strings.NewReader(d.ParamsSchema)); err != nil {
		return nil, fmt.Errorf("manifest: params schema for %s/%s: %w", d.ModuleID, d.CapabilityID, err)
	}
	return c.Compile(url)
}
