package adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
)

// SecretHandler serves secret.read. Local secrets resolve from
// kernel memory, env secrets from the named environment variable;
// sealed secrets never resolve here.
type SecretHandler struct {
	proj *project.Project
}

// NewSecretHandler builds a secret handler bound to a project.
func NewSecretHandler(proj *project.Project) *SecretHandler {
	return &SecretHandler{proj: proj}
}

func (h *SecretHandler) Invoke(_ context.Context, req model.InvocationRequest) (*Result, error) {
	name, _ := req.Params["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("adapter: secret: params.name is required")
	}

	s, ok := h.proj.Secret(name)
	if !ok {
		return nil, fmt.Errorf("adapter: secret: %q not found", name)
	}

	switch s.Mode {
	case project.SecretModeLocal:
		value, ok := h.proj.Reveal(name)
		if !ok {
			return nil, fmt.Errorf("adapter: secret: %q has no value in this session", name)
		}
		return &Result{Output: map[string]any{"name": name, "value": value}}, nil

	case project.SecretModeEnv:
		value, ok := os.LookupEnv(s.EnvVar)
		if !ok {
			return nil, fmt.Errorf("adapter: secret: env var %s is not set", s.EnvVar)
		}
		return &Result{Output: map[string]any{"name": name, "value": value}}, nil

	case project.SecretModeSealed:
		return nil, fmt.Errorf("adapter: secret: %q is sealed", name)

	default:
		return nil, fmt.Errorf("adapter: secret: unknown mode %q", s.Mode)
	}
}
