package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/drift"
	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/mcp"
	"github.com/wardenhq/warden/internal/watch"
)

var serveWatch bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Watch the state directory and warn on external modification")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP governance server",
	Long:  "Runs warden as an MCP (Model Context Protocol) server over stdio.\nExposes read-only governance tools plus a dry-run authorization check.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	return withKernel(func(k *kernel.Kernel) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			<-sigCh
			fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
			cancel()
		}()

		if serveWatch {
			w := watch.New(stateRoot, func() {
				rep, err := k.Drift()
				if err != nil {
					fmt.Fprintf(os.Stderr, "drift check failed: %v\n", err)
					return
				}
				if rep.Status != drift.StatusNone {
					fmt.Fprintf(os.Stderr, "state directory changed externally: drift %s (%v)\n", rep.Status, rep.Reasons)
				}
			})
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					fmt.Fprintf(os.Stderr, "state watcher stopped: %v\n", err)
				}
			}()
			fmt.Fprintf(os.Stderr, "watching %s for external changes\n", stateRoot)
		}

		fmt.Fprintln(os.Stderr, "warden MCP server running on stdio")
		fmt.Fprintf(os.Stderr, "snapshot %s\n", k.Snapshot().Hash)

		srv := mcp.New(k, version)
		err := srv.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
