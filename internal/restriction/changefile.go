package restriction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// changeFileSchema is the schema a `rules add` change file must
// satisfy before its condition is handed to the compiler.
const changeFileSchema = `{
  "type": "object",
  "required": ["rule_id", "verdict"],
  "additionalProperties": false,
  "properties": {
    "rule_id":   {"type": "string", "pattern": "^[a-zA-Z0-9._-]+$"},
    "types":     {"type": "array", "items": {"type": "string"}},
    "min_tier":  {"type": "string", "enum": ["T0", "T1", "T2", "T3"]},
    "verdict":   {"type": "string", "enum": ["deny", "escalate"]},
    "condition": {"type": "string"},
    "reason":    {"type": "string"}
  }
}`

var compiledChangeSchema = mustCompileChangeSchema()

func mustCompileChangeSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "mem://rule-change.schema.json"
	if err := c.AddResource(url, strings.NewReader(changeFileSchema)); err != nil {
		panic(fmt.Sprintf("restriction: change schema: %v", err))
	}
	s, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("restriction: change schema: %v", err))
	}
	return s
}

// ReadChangeFile loads a rule change file (JSON or YAML), validates
// it against the change schema, and returns the compiler input. The
// caller compiles and routes the result through a proposal.
func ReadChangeFile(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("restriction: read %s: %w", filepath.Base(path), err)
	}
	return ParseChange(data)
}

// ParseChange validates and decodes raw change-file bytes.
func ParseChange(data []byte) (*Input, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("restriction: parse change file: %w", err)
	}

	// Round-trip through encoding/json so the schema validator sees
	// JSON-native types regardless of the source encoding.
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("restriction: normalize change file: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("restriction: normalize change file: %w", err)
	}

	if err := compiledChangeSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("restriction: change file rejected: %w", err)
	}

	var in Input
	if err := json.Unmarshal(jsonBytes, &in); err != nil {
		return nil, fmt.Errorf("restriction: decode change file: %w", err)
	}
	return &in, nil
}
