package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"southwinds.dev/rotor/audit"
)

var (
	auditAction string
	auditKey    string
	auditStatus string
	auditLimit  int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	RunE:  runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditAction, "action", "a", "", "filter by action (create, rotate, verify, encrypt, ...)")
	auditCmd.Flags().StringVarP(&auditKey, "key", "k", "", "filter by key name")
	auditCmd.Flags().StringVar(&auditStatus, "status", "", "filter by status (success, failure, warning)")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "maximum entries to show (0 for all)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	entries, err := auditLogger.Query(audit.QueryOptions{
		Action:  audit.Action(auditAction),
		KeyName: auditKey,
		Status:  audit.Status(auditStatus),
		Limit:   auditLimit,
	})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		printInfo("No audit entries match")
		return nil
	}

	w, flush := newTabWriter()
	defer flush()

	fmt.Fprintln(w, "TIME\tACTION\tKEY\tSTAGE\tSTATUS\tBY\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.Timestamp), e.Action, e.KeyName, e.Environment,
			e.Status, e.PerformedBy, e.Details)
	}
	return nil
}
