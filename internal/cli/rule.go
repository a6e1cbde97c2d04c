package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
	"github.com/wardenhq/warden/internal/proposal"
	"github.com/wardenhq/warden/internal/restriction"
)

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.AddCommand(ruleAddCmd)
	ruleCmd.AddCommand(ruleListCmd)
	ruleCmd.AddCommand(ruleRemoveCmd)
}

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Inspect and propose restriction rules",
}

var ruleAddCmd = &cobra.Command{
	Use:   "add <rule.yaml>",
	Short: "Compile a rule file and propose adding it",
	Long:  "Compiles the rule's condition into canonical form, prints its content hash, and creates an add-rule proposal.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := restriction.ReadChangeFile(args[0])
		if err != nil {
			return err
		}
		rule, err := restriction.Compile(*input)
		if err != nil {
			return err
		}
		fmt.Printf("compiled %s: %s\n", rule.ID, rule.Hash)
		return proposeAndPrint(proposal.KindAddRule, proposal.Change{Rule: rule})
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active restriction rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			rules := []restriction.Rule{}
			for _, a := range k.Rules().List() {
				rules = append(rules, a.Rule)
			}
			out, _ := json.MarshalIndent(rules, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var ruleRemoveCmd = &cobra.Command{
	Use:   "rm <rule-id>",
	Short: "Propose removing a restriction rule",
	Long:  "Removing a restriction widens what agents may do, so the proposal always requires a typed acknowledgment.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeAndPrint(proposal.KindRemoveRule, proposal.Change{RuleID: args[0]})
	},
}
