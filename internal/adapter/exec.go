package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
)

// ExecHandler serves exec.run with the project's exec root as the
// working directory. No exec root means no execution at all.
type ExecHandler struct {
	proj    *project.Project
	timeout time.Duration
}

// NewExecHandler builds an exec handler bound to a project.
func NewExecHandler(proj *project.Project, timeout time.Duration) *ExecHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExecHandler{proj: proj, timeout: timeout}
}

func (h *ExecHandler) Invoke(ctx context.Context, req model.InvocationRequest) (*Result, error) {
	root := h.proj.Posture().ExecRoot
	if root == "" {
		return nil, fmt.Errorf("adapter: exec: project grants no exec root")
	}

	command, _ := req.Params["command"].(string)
	if command == "" {
		return nil, fmt.Errorf("adapter: exec: params.command is required")
	}
	var args []string
	if raw, ok := req.Params["args"].([]any); ok {
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("adapter: exec: params.args must be strings")
			}
			args = append(args, s)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			return nil, fmt.Errorf("adapter: exec: %w", err)
		}
	}
	return &Result{Output: map[string]any{
		"exit_code": exitCode,
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
	}}, nil
}
