package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
)

var ackPhrase string

func init() {
	rootCmd.AddCommand(proposalCmd)
	proposalCmd.AddCommand(proposalListCmd)
	proposalCmd.AddCommand(proposalShowCmd)
	proposalCmd.AddCommand(proposalApplyCmd)
	proposalCmd.AddCommand(proposalRejectCmd)
	proposalApplyCmd.Flags().StringVar(&ackPhrase, "ack", "", "Typed acknowledgment phrase, when the proposal requires one")
}

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Review and resolve governance proposals",
}

var proposalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals, pending first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			out, _ := json.MarshalIndent(k.Proposals().List(), "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var proposalShowCmd = &cobra.Command{
	Use:   "show <proposal-id>",
	Short: "Show one proposal's change summary and ack requirement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			p, err := k.Proposals().Get(args[0])
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(p, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var proposalApplyCmd = &cobra.Command{
	Use:   "apply <proposal-id>",
	Short: "Apply a pending proposal",
	Long:  "Verifies the typed acknowledgment, re-validates the change against current state, mutates atomically, and rebuilds the rule snapshot at the next ack epoch.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			p, err := k.Apply(args[0], ackPhrase)
			if err != nil {
				return err
			}
			snap := k.Snapshot()
			fmt.Printf("applied: %s\n", p.Summary)
			fmt.Printf("snapshot %s (epoch %d)\n", snap.Hash, snap.AckEpoch)
			return nil
		})
	},
}

var proposalRejectCmd = &cobra.Command{
	Use:   "reject <proposal-id>",
	Short: "Reject a pending proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			if err := k.Reject(args[0]); err != nil {
				return err
			}
			fmt.Printf("rejected %s\n", args[0])
			return nil
		})
	},
}
