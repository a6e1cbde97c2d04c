package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/kernel"
)

var logLimit int

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logQueryCmd)
	logCmd.AddCommand(logVerifyCmd)
	logQueryCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "Max entries to show (default 50)")
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Decision log operations",
	Long:  "Commands for querying and verifying the hash-chained decision log.",
}

var logQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show recent decisions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			entries, err := k.QueryLog(logLimit)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(out))
			return nil
		})
	},
}

var logVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the decision log hash chain",
	Long:  "Walks the decision log and validates that every entry's prev_hash matches the SHA-256 of the previous entry and that sequence numbers are continuous. Exits 0 if intact, 1 if tampered.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(func(k *kernel.Kernel) error {
			res := k.VerifyLog()
			if res.Valid {
				fmt.Printf("OK: %d entries verified\n", res.Entries)
				return nil
			}
			fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", res.ErrorLine, res.Error)
			os.Exit(1)
			return nil
		})
	},
}
