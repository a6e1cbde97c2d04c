// Package portability inspects the active snapshot and project
// configuration for artifacts that tie governance state to one
// machine: local-only secrets, absolute local paths, machine-scoped
// exec roots.
package portability

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wardenhq/warden/internal/project"
	"github.com/wardenhq/warden/internal/snapshot"
)

// Reason codes attached to a report.
const (
	ReasonLocalSecret      = "local_only_secret"
	ReasonAbsoluteFSRoot   = "absolute_local_fs_root"
	ReasonAbsoluteExecRoot = "absolute_local_exec_root"
	ReasonLoopbackHost     = "loopback_net_host"
)

// Report says whether governance state can move to another
// environment unchanged. Derived and ephemeral.
type Report struct {
	Portable bool     `json:"portable"`
	Reasons  []string `json:"reasons,omitempty"`
	Details  []string `json:"details,omitempty"`
}

// Check inspects the current posture, secrets, and snapshot. snap may
// be nil; the snapshot itself carries no paths today but is part of
// the contract so schema-borne paths get caught if descriptors grow
// them.
func Check(snap *snapshot.Snapshot, st project.State) Report {
	r := Report{Portable: true}

	for _, s := range st.Secrets {
		if s.Mode == project.SecretModeLocal {
			r.flag(ReasonLocalSecret, fmt.Sprintf("secret %q is held locally only", s.Name))
		}
	}

	// Absolute paths name one machine's filesystem; roots expressed
	// relative to the project travel with it.
	for _, root := range st.Posture.FSRoots {
		if filepath.IsAbs(root) {
			r.flag(ReasonAbsoluteFSRoot, fmt.Sprintf("fs root %q is an absolute local path", root))
		}
	}
	if root := st.Posture.ExecRoot; root != "" && filepath.IsAbs(root) {
		r.flag(ReasonAbsoluteExecRoot, fmt.Sprintf("exec root %q is an absolute local path", root))
	}

	for _, h := range st.Posture.NetAllowlist {
		host := h
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			r.flag(ReasonLoopbackHost, fmt.Sprintf("allowlist entry %q is loopback only", h))
		}
	}

	_ = snap
	return r
}

func (r *Report) flag(code, detail string) {
	r.Portable = false
	for _, c := range r.Reasons {
		if c == code {
			r.Details = append(r.Details, detail)
			return
		}
	}
	r.Reasons = append(r.Reasons, code)
	r.Details = append(r.Details, detail)
}
