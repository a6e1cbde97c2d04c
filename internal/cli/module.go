package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/manifest"
)

var expectedHash string

func init() {
	rootCmd.AddCommand(moduleCmd)
	moduleCmd.AddCommand(moduleLoadCmd)
	moduleCmd.AddCommand(moduleListCmd)
	moduleCmd.AddCommand(moduleUnloadCmd)
	moduleLoadCmd.Flags().StringVar(&expectedHash, "hash", "", "Expected manifest content hash (sha256:...)")
}

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Load and inspect capability modules",
}

var moduleLoadCmd = &cobra.Command{
	Use:   "load <manifest.yaml>",
	Short: "Validate and register a module manifest",
	Long:  "Verifies the manifest's content hash and schema, then registers the module. All of its capabilities register disabled; enabling any of them takes an applied proposal.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withKernel(func(k *kernel.Kernel) error {
			res, err := k.LoadModule(m, expectedHash)
			if err != nil {
				return err
			}
			if res.AlreadyLoaded {
				fmt.Printf("module %s already loaded (%s)\n", res.ModuleID, res.Hash)
				return nil
			}
			fmt.Printf("loaded %s (%s): %d capabilities, all disabled\n",
				res.ModuleID, res.Hash, len(res.CapabilityIDs))
			return nil
		})
	},
}

var moduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded modules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			type row struct {
				ModuleID string `json:"module_id"`
				Version  string `json:"version"`
				Hash     string `json:"hash"`
				Enabled  bool   `json:"enabled"`
				Caps     int    `json:"capabilities"`
			}
			rows := []row{}
			for _, m := range k.Registry().Modules() {
				rows = append(rows, row{
					ModuleID: m.Manifest.ModuleID,
					Version:  m.Manifest.Version,
					Hash:     m.Hash,
					Enabled:  m.Enabled,
					Caps:     len(m.Manifest.CapabilityDescriptors),
				})
			}
			out, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var moduleUnloadCmd = &cobra.Command{
	Use:   "unload <module-id>",
	Short: "Unload a module and all its capabilities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			if err := k.UnloadModule(args[0]); err != nil {
				return err
			}
			fmt.Printf("unloaded %s\n", args[0])
			return nil
		})
	},
}
