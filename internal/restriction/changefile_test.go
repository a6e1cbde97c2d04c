package restriction

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseChangeYAML(t *testing.T) {
	data := []byte(`
rule_id: no-external-post
types: [net.fetch]
min_tier: T1
verdict: deny
condition: 'params.method == "POST"'
reason: outbound posts need review
`)
	in, err := ParseChange(data)
	if err != nil {
		t.Fatalf("ParseChange: %v", err)
	}
	if in.RuleID != "no-external-post" || in.Verdict != "deny" {
		t.Errorf("unexpected input: %+v", in)
	}
	if _, err := Compile(*in); err != nil {
		t.Errorf("parsed change does not compile: %v", err)
	}
}

func TestParseChangeJSON(t *testing.T) {
	data := []byte(`{"rule_id":"rj","verdict":"escalate","min_tier":"T2"}`)
	in, err := ParseChange(data)
	if err != nil {
		t.Fatalf("ParseChange: %v", err)
	}
	if in.MinTier != "T2" {
		t.Errorf("min_tier = %q", in.MinTier)
	}
}

func TestParseChangeRejectsUnknownField(t *testing.T) {
	data := []byte(`{"rule_id":"rj","verdict":"deny","mode":"loud"}`)
	if _, err := ParseChange(data); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestParseChangeRejectsMissingVerdict(t *testing.T) {
	data := []byte(`{"rule_id":"rj"}`)
	if _, err := ParseChange(data); err == nil {
		t.Fatal("expected missing verdict to be rejected")
	}
}

func TestReadChangeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule.yaml")
	if err := os.WriteFile(path, []byte("rule_id: from-file\nverdict: deny\n"), 0600); err != nil {
		t.Fatal(err)
	}
	in, err := ReadChangeFile(path)
	if err != nil {
		t.Fatalf("ReadChangeFile: %v", err)
	}
	if in.RuleID != "from-file" {
		t.Errorf("rule_id = %q", in.RuleID)
	}
}
