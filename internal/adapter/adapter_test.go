package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/project"
)

// stubAuthorizer returns a fixed gate answer.
type stubAuthorizer struct {
	result model.AuthzResult
}

func (s stubAuthorizer) Authorize(model.InvocationRequest) model.AuthzResult {
	return s.result
}

func permitAll() stubAuthorizer {
	return stubAuthorizer{result: model.AuthzResult{Outcome: model.Permit}}
}

func TestDispatcherBlocksWithoutPermit(t *testing.T) {
	d := NewDispatcher(stubAuthorizer{result: model.AuthzResult{
		Outcome: model.Deny, Reason: "capability not enabled",
	}}, nil)

	_, err := d.Invoke(context.Background(), model.InvocationRequest{Type: model.CapFSRead})
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("got %v", err)
	}
	if denied.Escalated() {
		t.Error("deny reported as escalation")
	}
}

func TestDispatcherEscalation(t *testing.T) {
	d := NewDispatcher(stubAuthorizer{result: model.AuthzResult{
		Outcome: model.Escalate, Reason: "needs review", DecisiveRule: "r1",
	}}, nil)

	_, err := d.Invoke(context.Background(), model.InvocationRequest{Type: model.CapExecRun})
	var denied *DeniedError
	if !errors.As(err, &denied) || !denied.Escalated() {
		t.Fatalf("got %v", err)
	}
}

func TestDispatcherUnregisteredType(t *testing.T) {
	d := NewDispatcher(permitAll(), map[model.CapabilityType]Handler{})
	_, err := d.Invoke(context.Background(), model.InvocationRequest{Type: model.CapNetFetch})
	if err == nil {
		t.Fatal("unregistered type executed")
	}
}

func TestFSHandlerReadWithinRoots(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	proj := project.New()
	proj.SetFSRoots([]string{dir})

	h := NewFSHandler(proj)
	res, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapFSRead,
		Params: map[string]any{"path": filepath.Join(dir, "a.txt")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output["content"] != "hello" {
		t.Errorf("content = %v", res.Output["content"])
	}
}

func TestFSHandlerRejectsOutsideRoots(t *testing.T) {
	proj := project.New()
	proj.SetFSRoots([]string{t.TempDir()})

	h := NewFSHandler(proj)
	_, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapFSRead,
		Params: map[string]any{"path": "/etc/passwd"},
	})
	if err == nil {
		t.Fatal("read outside roots succeeded")
	}
}

func TestFSHandlerRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	proj := project.New()
	proj.SetFSRoots([]string{dir})

	h := NewFSHandler(proj)
	_, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapFSRead,
		Params: map[string]any{"path": dir + "/../../etc/passwd"},
	})
	if err == nil {
		t.Fatal("traversal escaped the root")
	}
}

func TestFSHandlerWrite(t *testing.T) {
	dir := t.TempDir()
	proj := project.New()
	proj.SetFSRoots([]string{dir})

	h := NewFSHandler(proj)
	target := filepath.Join(dir, "out", "b.txt")
	if _, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapFSWrite,
		Params: map[string]any{"path": target, "content": "data"},
	}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(target)
	if err != nil || string(got) != "data" {
		t.Errorf("read back %q, %v", got, err)
	}
}

func TestFetchHandlerAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	proj := project.New()
	h := NewFetchHandler(proj, 5*time.Second)

	// Not allowlisted yet.
	if _, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapNetFetch,
		Params: map[string]any{"url": srv.URL},
	}); err == nil {
		t.Fatal("unlisted host fetched")
	}

	proj.SetNetAllowlist([]string{u.Hostname()})
	res, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapNetFetch,
		Params: map[string]any{"url": srv.URL},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output["body"] != "ok" || res.Output["status"] != http.StatusOK {
		t.Errorf("output = %v", res.Output)
	}
}

func TestFetchHandlerRejectsScheme(t *testing.T) {
	h := NewFetchHandler(project.New(), time.Second)
	if _, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapNetFetch,
		Params: map[string]any{"url": "file:///etc/passwd"},
	}); err == nil {
		t.Fatal("file scheme fetched")
	}
}

func TestExecHandlerNeedsRoot(t *testing.T) {
	h := NewExecHandler(project.New(), time.Second)
	if _, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapExecRun,
		Params: map[string]any{"command": "true"},
	}); err == nil {
		t.Fatal("exec without root succeeded")
	}
}

func TestExecHandlerRuns(t *testing.T) {
	proj := project.New()
	proj.SetExecRoot(t.TempDir())
	h := NewExecHandler(proj, 10*time.Second)

	res, err := h.Invoke(context.Background(), model.InvocationRequest{
		Type:   model.CapExecRun,
		Params: map[string]any{"command": "sh", "args": []any{"-c", "echo hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output["exit_code"] != 0 || res.Output["stdout"] != "hi\n" {
		t.Errorf("output = %v", res.Output)
	}
}

func TestSecretHandlerModes(t *testing.T) {
	proj := project.New()
	if err := proj.SetSecret("local-one", "s3cret", project.SecretModeLocal); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_TEST_SECRET", "from-env")
	if err := proj.SetSecret("env-one", "WARDEN_TEST_SECRET", project.SecretModeEnv); err != nil {
		t.Fatal(err)
	}
	if err := proj.SetSecret("sealed-one", "x", project.SecretModeSealed); err != nil {
		t.Fatal(err)
	}

	h := NewSecretHandler(proj)
	read := func(name string) (*Result, error) {
		return h.Invoke(context.Background(), model.InvocationRequest{
			Type:   model.CapSecret,
			Params: map[string]any{"name": name},
		})
	}

	if res, err := read("local-one"); err != nil || res.Output["value"] != "s3cret" {
		t.Errorf("local: %v %v", res, err)
	}
	if res, err := read("env-one"); err != nil || res.Output["value"] != "from-env" {
		t.Errorf("env: %v %v", res, err)
	}
	if _, err := read("sealed-one"); err == nil {
		t.Error("sealed secret resolved")
	}
	if _, err := read("ghost"); err == nil {
		t.Error("unknown secret resolved")
	}
}
