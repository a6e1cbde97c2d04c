package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
)

// maxFetchBytes caps how much response body one net.fetch returns.
const maxFetchBytes = 4 << 20

// FetchHandler serves net.fetch against hosts on the project's
// network allowlist. Redirects are followed only to allowlisted
// hosts.
type FetchHandler struct {
	proj   *project.Project
	client *http.Client
}

// NewFetchHandler builds a fetch handler bound to a project.
func NewFetchHandler(proj *project.Project, timeout time.Duration) *FetchHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := &FetchHandler{proj: proj}
	h.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, _ []*http.Request) error {
			if !proj.HostAllowed(req.URL.Hostname()) {
				return fmt.Errorf("redirect to %q outside allowlist", req.URL.Hostname())
			}
			return nil
		},
	}
	return h
}

func (h *FetchHandler) Invoke(ctx context.Context, req model.InvocationRequest) (*Result, error) {
	rawURL, _ := req.Params["url"].(string)
	if rawURL == "" {
		return nil, fmt.Errorf("adapter: fetch: params.url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("adapter: fetch: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("adapter: fetch: scheme %q not allowed", u.Scheme)
	}
	if !h.proj.HostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("adapter: fetch: host %q outside allowlist", u.Hostname())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("adapter: fetch: %w", err)
	}
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("adapter: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("adapter: fetch: read body: %w", err)
	}
	return &Result{Output: map[string]any{
		"url":    rawURL,
		"status": resp.StatusCode,
		"body":   string(body),
	}}, nil
}
