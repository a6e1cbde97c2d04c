package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/proposal"
)

var (
	secretMode  string
	secretValue string
)

func init() {
	rootCmd.AddCommand(postureCmd)
	postureCmd.AddCommand(postureShowCmd)
	postureCmd.AddCommand(postureFSRootsCmd)
	postureCmd.AddCommand(postureNetCmd)
	postureCmd.AddCommand(postureExecRootCmd)

	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretListCmd)
	secretCmd.AddCommand(secretRmCmd)
	secretCmd.AddCommand(secretModeCmd)
	secretSetCmd.Flags().StringVar(&secretMode, "mode", "local", "Secret mode: local, env, or sealed")
	secretSetCmd.Flags().StringVar(&secretValue, "value", "", "Secret value (env mode: the environment variable name); read from stdin when omitted")
}

var postureCmd = &cobra.Command{
	Use:   "posture",
	Short: "Project execution posture",
	Long:  "Commands for viewing and proposing changes to filesystem roots, the network allowlist, and the exec root.",
}

var postureShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current posture",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			out, _ := json.MarshalIndent(k.Project().Posture(), "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var postureFSRootsCmd = &cobra.Command{
	Use:   "set-fs-roots <root> [root...]",
	Short: "Propose replacing the filesystem roots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindSetFSRoots, proposal.Change{FSRoots: args})
	},
}

var postureNetCmd = &cobra.Command{
	Use:   "set-net-allowlist <host> [host...]",
	Short: "Propose replacing the network allowlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindSetNetAllowlist, proposal.Change{NetAllowlist: args})
	},
}

var postureExecRootCmd = &cobra.Command{
	Use:   "set-exec-root <dir>",
	Short: "Propose replacing the exec root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindSetExecRoot, proposal.Change{ExecRoot: args[0]})
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Project secret management",
	Long:  "Commands for proposing secret changes. Values never appear in proposals, state files, or the decision log; only SHA-256 digests are recorded.",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Propose setting a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := secretValue
		if value == "" {
			fmt.Fprint(os.Stderr, "value: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read secret value: %w", err)
			}
			value = strings.TrimRight(line, "\r\n")
		}
		return proposeAndPrint(proposal.KindSetSecret, proposal.Change{
			SecretName:  args[0],
			SecretMode:  secretMode,
			SecretValue: value,
		})
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List secrets (redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			out, _ := json.MarshalIndent(k.Project().Secrets(), "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var secretRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Propose deleting a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindDeleteSecret, proposal.Change{SecretName: args[0]})
	},
}

var secretModeCmd = &cobra.Command{
	Use:   "mode <name> <local|env|sealed>",
	Short: "Propose changing a secret's mode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindSetSecretMode, proposal.Change{
			SecretName: args[0],
			SecretMode: args[1],
		})
	},
}
