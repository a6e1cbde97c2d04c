package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/proposal"
)

const manifestYAML = `module_id: files.local
module_name: Local Files
version: 1.0.0
capability_descriptors:
  - module_id: files.local
    capability_id: read
    type: fs.read
    tier: T1
`

func TestOpenStore_FileBackend(t *testing.T) {
	stateRoot = t.TempDir()
	useSQLite = false

	store, err := openStore()
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := os.Stat(stateRoot); err != nil {
		t.Errorf("state root not created: %v", err)
	}
}

func TestOpenStore_SQLiteBackend(t *testing.T) {
	stateRoot = t.TempDir()
	useSQLite = true
	defer func() { useSQLite = false }()

	store, err := openStore()
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(stateRoot, "warden.db")); err != nil {
		t.Errorf("warden.db not created: %v", err)
	}
}

func TestModuleLoadThenEnableFlow(t *testing.T) {
	stateRoot = t.TempDir()
	useSQLite = false

	manifestPath := filepath.Join(t.TempDir(), "files.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	expectedHash = ""
	if err := moduleLoadCmd.RunE(moduleLoadCmd, []string{manifestPath}); err != nil {
		t.Fatalf("module load failed: %v", err)
	}

	// Loading registers the capability disabled.
	err := withKernel(func(k *kernel.Kernel) error {
		if k.Registry().IsEnabled("files.local", "read") {
			t.Error("capability enabled immediately after load")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := capabilityEnableCmd.RunE(capabilityEnableCmd, []string{"files.local", "read"}); err != nil {
		t.Fatalf("capability enable failed: %v", err)
	}

	// The enable proposal is pending and applying it flips the state.
	err = withKernel(func(k *kernel.Kernel) error {
		pending := k.Proposals().Pending()
		if len(pending) != 1 {
			t.Fatalf("pending proposals = %d, want 1", len(pending))
		}
		p := pending[0]
		if p.Kind != proposal.KindEnableCapability {
			t.Errorf("kind = %s, want %s", p.Kind, proposal.KindEnableCapability)
		}
		ack := ""
		if p.RequiresTypedAck {
			ack = p.AckPhrase
		}
		if _, err := k.Apply(p.ID, ack); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if !k.Registry().IsEnabled("files.local", "read") {
			t.Error("capability still disabled after apply")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProposalApplyCommand(t *testing.T) {
	stateRoot = t.TempDir()
	useSQLite = false

	manifestPath := filepath.Join(t.TempDir(), "files.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := moduleLoadCmd.RunE(moduleLoadCmd, []string{manifestPath}); err != nil {
		t.Fatalf("module load failed: %v", err)
	}
	if err := capabilityEnableCmd.RunE(capabilityEnableCmd, []string{"files.local", "read"}); err != nil {
		t.Fatalf("capability enable failed: %v", err)
	}

	var id, phrase string
	err := withKernel(func(k *kernel.Kernel) error {
		p := k.Proposals().Pending()[0]
		id = p.ID
		if p.RequiresTypedAck {
			phrase = p.AckPhrase
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ackPhrase = phrase
	if err := proposalApplyCmd.RunE(proposalApplyCmd, []string{id}); err != nil {
		t.Fatalf("proposal apply failed: %v", err)
	}

	err = withKernel(func(k *kernel.Kernel) error {
		if !k.Registry().IsEnabled("files.local", "read") {
			t.Error("capability not enabled after CLI apply")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
