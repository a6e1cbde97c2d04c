// Package profile provides named governance presets: a profile lists
// the capabilities, restriction rules, and project posture an agent
// role needs, and expands into ordinary proposals. Profiles never
// bypass the proposal workflow.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wardenhq/warden/internal/model"
)

// RuleSpec is a restriction rule as written in a profile, compiled
// when the profile expands.
type RuleSpec struct {
	RuleID    string                 `yaml:"rule_id"`
	Types     []model.CapabilityType `yaml:"types,omitempty"`
	MinTier   string                 `yaml:"min_tier,omitempty"`
	Verdict   string                 `yaml:"verdict"`
	Condition string                 `yaml:"condition,omitempty"`
	Reason    string                 `yaml:"reason,omitempty"`
}

// PostureSpec is the project posture a profile asks for.
type PostureSpec struct {
	FSRoots      []string `yaml:"fs_roots,omitempty"`
	NetAllowlist []string `yaml:"net_allowlist,omitempty"`
	ExecRoot     string   `yaml:"exec_root,omitempty"`
}

// Profile is a named, reusable governance preset.
type Profile struct {
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description"`
	Capabilities []string     `yaml:"capabilities,omitempty"` // "module_id/capability_id"
	Rules        []RuleSpec   `yaml:"rules,omitempty"`
	Posture      *PostureSpec `yaml:"posture,omitempty"`
}

// Load loads a profile by name. Built-in profiles are checked first,
// then ~/.warden/profiles/<name>.yaml.
func Load(name string) (*Profile, error) {
	if data, ok := builtinProfiles[name]; ok {
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("profile: parse built-in %q: %w", name, err)
		}
		return &p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	path := filepath.Join(home, ".warden", "profiles", name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %q: %w", name, err)
	}
	return &p, nil
}

// List returns sorted names of all available profiles.
func List() []string {
	seen := make(map[string]bool)
	for name := range builtinProfiles {
		seen[name] = true
	}

	home, err := os.UserHomeDir()
	if err == nil {
		dir := filepath.Join(home, ".warden", "profiles")
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				name := e.Name()
				if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
					seen[name[:len(name)-len(ext)]] = true
				}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
