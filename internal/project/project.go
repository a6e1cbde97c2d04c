// Package project holds a project's execution posture: which
// filesystem roots, network hosts, and exec root capability handlers
// may touch, plus the secret store. Secret values never reach disk;
// only their SHA-256 digests persist.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// SecretMode says where a secret's value lives.
type SecretMode string

const (
	// SecretModeLocal keeps the value in kernel memory only. Not
	// portable; lost on restart.
	SecretModeLocal SecretMode = "local"
	// SecretModeEnv resolves the value from an environment variable
	// at use time.
	SecretModeEnv SecretMode = "env"
	// SecretModeSealed means the value is provisioned out of band
	// and only its digest is known here.
	SecretModeSealed SecretMode = "sealed"
)

// ParseSecretMode validates a mode string.
func ParseSecretMode(s string) (SecretMode, bool) {
	switch SecretMode(s) {
	case SecretModeLocal, SecretModeEnv, SecretModeSealed:
		return SecretMode(s), true
	}
	return "", false
}

// Secret is one named secret. Value is memory-only; Digest is what
// persistence, diffs, and displays carry.
type Secret struct {
	Name      string     `json:"name"`
	Mode      SecretMode `json:"mode"`
	Digest    string     `json:"digest,omitempty"`
	EnvVar    string     `json:"env_var,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`

	Value string `json:"-"`
}

// Posture is the serializable project posture. Zero value means
// nothing is granted.
type Posture struct {
	FSRoots      []string `json:"fs_roots,omitempty"`
	NetAllowlist []string `json:"net_allowlist,omitempty"`
	ExecRoot     string   `json:"exec_root,omitempty"`
}

// State is the full persisted shape: posture plus redacted secrets.
type State struct {
	Posture Posture  `json:"posture"`
	Secrets []Secret `json:"secrets,omitempty"`
}

// Project tracks one project's posture and secrets. Mutation is
// routed through the kernel's single writer; reads may be concurrent.
type Project struct {
	mu      sync.RWMutex
	posture Posture
	secrets map[string]*Secret
}

// New returns an empty project.
func New() *Project {
	return &Project{secrets: make(map[string]*Secret)}
}

// Digest computes the digest recorded for a secret value.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Posture returns a copy of the current posture.
func (p *Project) Posture() Posture {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := Posture{ExecRoot: p.posture.ExecRoot}
	out.FSRoots = append(out.FSRoots, p.posture.FSRoots...)
	out.NetAllowlist = append(out.NetAllowlist, p.posture.NetAllowlist...)
	return out
}

// SetFSRoots replaces the filesystem roots.
func (p *Project) SetFSRoots(roots []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posture.FSRoots = append([]string(nil), roots...)
}

// SetNetAllowlist replaces the network host allowlist.
func (p *Project) SetNetAllowlist(hosts []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posture.NetAllowlist = append([]string(nil), hosts...)
}

// SetExecRoot replaces the exec root.
func (p *Project) SetExecRoot(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posture.ExecRoot = root
}

// PathAllowed reports whether path falls under a granted fs root.
func (p *Project) PathAllowed(path string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, root := range p.posture.FSRoots {
		if path == root || strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/") {
			return true
		}
	}
	return false
}

// HostAllowed reports whether host is on the network allowlist.
// A leading "*." entry allows any subdomain of the suffix.
func (p *Project) HostAllowed(host string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, h := range p.posture.NetAllowlist {
		if host == h {
			return true
		}
		if strings.HasPrefix(h, "*.") && strings.HasSuffix(host, h[1:]) {
			return true
		}
	}
	return false
}

// SetSecret stores or replaces a secret. The value stays in memory;
// the digest is computed here so persistence never sees the value.
func (p *Project) SetSecret(name, value string, mode SecretMode) error {
	if name == "" {
		return fmt.Errorf("project: secret name is empty")
	}
	if _, ok := ParseSecretMode(string(mode)); !ok {
		return fmt.Errorf("project: unknown secret mode %q", mode)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &Secret{
		Name:      name,
		Mode:      mode,
		UpdatedAt: time.Now().UTC(),
	}
	if mode == SecretModeEnv {
		// For env secrets the "value" names the variable.
		s.EnvVar = value
	} else {
		s.Value = value
		s.Digest = Digest(value)
	}
	p.secrets[name] = s
	return nil
}

// SetSecretMode changes only the mode of an existing secret.
func (p *Project) SetSecretMode(name string, mode SecretMode) error {
	if _, ok := ParseSecretMode(string(mode)); !ok {
		return fmt.Errorf("project: unknown secret mode %q", mode)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.secrets[name]
	if !ok {
		return fmt.Errorf("project: secret %q not found", name)
	}
	s.Mode = mode
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteSecret removes a secret.
func (p *Project) DeleteSecret(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.secrets[name]; !ok {
		return fmt.Errorf("project: secret %q not found", name)
	}
	delete(p.secrets, name)
	return nil
}

// Secret returns a redacted copy of one secret: Value is never
// included.
func (p *Project) Secret(name string) (Secret, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.secrets[name]
	if !ok {
		return Secret{}, false
	}
	return redact(*s), true
}

// Secrets returns redacted copies of all secrets, sorted by name.
func (p *Project) Secrets() []Secret {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Secret, 0, len(p.secrets))
	for _, s := range p.secrets {
		out = append(out, redact(*s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reveal returns the in-memory value of a local secret. Env secrets
// are resolved by the adapter; sealed secrets have no local value.
func (p *Project) Reveal(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.secrets[name]
	if !ok || s.Mode != SecretModeLocal {
		return "", false
	}
	return s.Value, true
}

func redact(s Secret) Secret {
	s.Value = ""
	return s
}

// Export captures the persistable shape. Secret values are already
// absent from the redacted copies.
func (p *Project) Export() State {
	return State{Posture: p.Posture(), Secrets: p.Secrets()}
}

// Restore replaces posture and secret metadata from persisted state.
// Local secret values do not survive a restart; only their digests
// do.
func (p *Project) Restore(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posture = Posture{
		FSRoots:      append([]string(nil), st.Posture.FSRoots...),
		NetAllowlist: append([]string(nil), st.Posture.NetAllowlist...),
		ExecRoot:     st.Posture.ExecRoot,
	}
	p.secrets = make(map[string]*Secret, len(st.Secrets))
	for _, s := range st.Secrets {
		s := s
		s.Value = ""
		p.secrets[s.Name] = &s
	}
}
