package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/proposal"
)

func init() {
	rootCmd.AddCommand(capabilityCmd)
	capabilityCmd.AddCommand(capabilityListCmd)
	capabilityCmd.AddCommand(capabilityEnableCmd)
	capabilityCmd.AddCommand(capabilityDisableCmd)
}

var capabilityCmd = &cobra.Command{
	Use:   "capability",
	Short: "Inspect and propose changes to capabilities",
}

var capabilityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered capabilities and their state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			type row struct {
				Key         string   `json:"capability"`
				Type        string   `json:"type"`
				Tier        string   `json:"tier"`
				Enabled     bool     `json:"enabled"`
				AckRequired bool     `json:"ack_required"`
				Hazards     []string `json:"hazards,omitempty"`
			}
			rows := []row{}
			for _, c := range k.Registry().Capabilities() {
				r := row{
					Key:         c.Key(),
					Type:        string(c.Descriptor.Type),
					Tier:        c.Descriptor.Tier,
					Enabled:     k.Registry().IsEnabled(c.Descriptor.ModuleID, c.Descriptor.CapabilityID),
					AckRequired: c.Descriptor.AckRequired,
				}
				for _, h := range c.Descriptor.Hazards {
					r.Hazards = append(r.Hazards, string(h))
				}
				rows = append(rows, r)
			}
			out, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var capabilityEnableCmd = &cobra.Command{
	Use:   "enable <module-id> <capability-id>",
	Short: "Propose enabling a capability",
	Long:  "Creates a proposal; the capability stays disabled until the proposal is applied (with its typed acknowledgment, if required).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindEnableCapability, proposal.Change{
			ModuleID: args[0], CapabilityID: args[1],
		})
	},
}

var capabilityDisableCmd = &cobra.Command{
	Use:   "disable <module-id> <capability-id>",
	Short: "Propose disabling a capability",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindDisableCapability, proposal.Change{
			ModuleID: args[0], CapabilityID: args[1],
		})
	},
}

// proposeAndPrint creates a proposal and prints what the operator
// must do next.
func proposeAndPrint(kind proposal.Kind, change proposal.Change) error {
	return withKernel(func(k *kernel.Kernel) error {
		p, err := k.Propose(kind, change, "cli")
		if err != nil {
			return err
		}
		fmt.Printf("proposal %s: %s\n", p.ID, p.Summary)
		if p.RequiresTypedAck {
			fmt.Printf("apply with: warden proposal apply %s --ack %q\n", p.ID, p.AckPhrase)
		} else {
			fmt.Printf("apply with: warden proposal apply %s\n", p.ID)
		}
		return nil
	})
}
