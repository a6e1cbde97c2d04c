package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/profile"
)

var profileProject string

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileApplyCmd)
	profileApplyCmd.Flags().StringVar(&profileProject, "project", "default", "Project the profile's posture applies to")
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Governance profile presets",
	Long:  "Profiles bundle the capabilities, rules, and posture an agent role needs. Applying one creates ordinary proposals; nothing is enabled until each proposal is acknowledged.",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range profile.List() {
			p, err := profile.Load(name)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %s\n", name, p.Description)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(p, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var profileApplyCmd = &cobra.Command{
	Use:   "apply <name>",
	Short: "Expand a profile into proposals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		items, err := profile.Expand(p, profileProject)
		if err != nil {
			return err
		}
		return withKernel(func(k *kernel.Kernel) error {
			for _, item := range items {
				prop, err := k.Propose(item.Kind, item.Change, "profile:"+p.Name)
				if err != nil {
					return err
				}
				fmt.Printf("proposal %s: %s\n", prop.ID, prop.Summary)
				if prop.RequiresTypedAck {
					fmt.Printf("  apply with: warden proposal apply %s --ack %q\n", prop.ID, prop.AckPhrase)
				}
			}
			fmt.Printf("%d proposals created from profile %s\n", len(items), p.Name)
			return nil
		})
	},
}
