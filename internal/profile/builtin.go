package profile

import _ "embed"

//go:embed profiles/coding-agent.yaml
var codingAgentYAML []byte

//go:embed profiles/research-agent.yaml
var researchAgentYAML []byte

//go:embed profiles/readonly-auditor.yaml
var readonlyAuditorYAML []byte

// builtinProfiles maps profile names to their embedded YAML content.
var builtinProfiles = map[string][]byte{
	"coding-agent":     codingAgentYAML,
	"research-agent":   researchAgentYAML,
	"readonly-auditor": readonlyAuditorYAML,
}
