package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
)

// InferenceConfig points the inference handler at an
// OpenAI-compatible chat completion endpoint.
type InferenceConfig struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// InferenceHandler serves inference.invoke over an OpenAI-compatible
// HTTP API. The endpoint host must be on the project's network
// allowlist.
type InferenceHandler struct {
	proj *project.Project
	cfg  InferenceConfig
}

// NewInferenceHandler builds an inference handler.
func NewInferenceHandler(proj *project.Project, cfg InferenceConfig) *InferenceHandler {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &InferenceHandler{proj: proj, cfg: cfg}
}

func (h *InferenceHandler) Invoke(ctx context.Context, req model.InvocationRequest) (*Result, error) {
	prompt, _ := req.Params["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("adapter: inference: params.prompt is required")
	}
	system, _ := req.Params["system"].(string)

	u, err := url.Parse(h.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("adapter: inference: %w", err)
	}
	if !h.proj.HostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("adapter: inference: endpoint host %q outside allowlist", u.Hostname())
	}

	messages := []map[string]string{}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	body, _ := json.Marshal(map[string]any{
		"model":      h.cfg.Model,
		"messages":   messages,
		"max_tokens": h.cfg.MaxTokens,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("adapter: inference: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	client := &http.Client{Timeout: h.cfg.Timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("adapter: inference: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adapter: inference: HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return nil, fmt.Errorf("adapter: inference: empty response")
	}

	return &Result{Output: map[string]any{
		"model":   h.cfg.Model,
		"content": strings.TrimSpace(result.Choices[0].Message.Content),
	}}, nil
}
