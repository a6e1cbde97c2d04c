// Package cli is the warden command-line surface. Read commands
// query the kernel's status interface; every mutation goes through
// the proposal workflow.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/state"
)

var (
	stateRoot string
	useSQLite bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Capability governance kernel for autonomous agents",
	Long:  "Modules declare capabilities; warden decides per invocation whether to permit, deny, or escalate, and records every decision in a hash-chained audit log. Nothing is enabled until an operator applies a proposal.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateRoot, "state-dir", state.DefaultRoot(), "Directory for kernel state and logs")
	rootCmd.PersistentFlags().BoolVar(&useSQLite, "sqlite", false, "Store state in SQLite instead of JSON files")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore builds the configured state store.
func openStore() (state.Store, error) {
	if err := state.EnsureDirs(stateRoot); err != nil {
		return nil, err
	}
	if useSQLite {
		return state.NewSQLiteStore(filepath.Join(stateRoot, "warden.db"))
	}
	return state.NewFileStore(stateRoot)
}

// withKernel opens the kernel, runs fn, and closes the store.
func withKernel(fn func(k *kernel.Kernel) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	k, err := kernel.Open(store)
	if err != nil {
		return fmt.Errorf("open kernel: %w", err)
	}
	return fn(k)
}
