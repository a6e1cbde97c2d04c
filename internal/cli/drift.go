package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
)

func init() {
	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(portabilityCmd)
}

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Check recorded decisions against the current snapshot",
	Long:  "Replays the decision log against the active configuration snapshot and reports whether observed behavior still matches declared policy.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			rep, err := k.Drift()
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var portabilityCmd = &cobra.Command{
	Use:   "portability",
	Short: "Report machine-bound configuration",
	Long:  "Lists configuration that would not survive a move to another machine: absolute filesystem roots, local-only secrets, loopback network hosts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			rep := k.Portability()
			out, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}
