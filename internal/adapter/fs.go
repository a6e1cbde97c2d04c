package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
)

// maxReadBytes caps how much file content one fs.read returns.
const maxReadBytes = 1 << 20

// FSHandler serves fs.read and fs.write within the project's granted
// filesystem roots. Paths outside the roots fail even after a Permit;
// posture is a second fence, not a substitute for rules.
type FSHandler struct {
	proj *project.Project
}

// NewFSHandler builds a filesystem handler bound to a project.
func NewFSHandler(proj *project.Project) *FSHandler {
	return &FSHandler{proj: proj}
}

func (h *FSHandler) Invoke(_ context.Context, req model.InvocationRequest) (*Result, error) {
	path, _ := req.Params["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("adapter: fs: params.path is required")
	}
	clean := filepath.Clean(path)
	if !h.proj.PathAllowed(clean) {
		return nil, fmt.Errorf("adapter: fs: path %q outside granted roots", clean)
	}

	switch req.Type {
	case model.CapFSRead:
		return h.read(clean)
	case model.CapFSWrite:
		content, _ := req.Params["content"].(string)
		return h.write(clean, content)
	default:
		return nil, fmt.Errorf("adapter: fs: unsupported type %s", req.Type)
	}
}

func (h *FSHandler) read(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("adapter: fs: %w", err)
	}
	if info.Size() > maxReadBytes {
		return nil, fmt.Errorf("adapter: fs: %s exceeds %d byte read cap", path, maxReadBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adapter: fs: %w", err)
	}
	return &Result{Output: map[string]any{
		"path":    path,
		"content": string(data),
		"size":    info.Size(),
	}}, nil
}

func (h *FSHandler) write(path, content string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("adapter: fs: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("adapter: fs: %w", err)
	}
	return &Result{Output: map[string]any{
		"path":    path,
		"written": len(content),
	}}, nil
}
