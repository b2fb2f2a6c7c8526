package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyKey   string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show rotation history, newest first",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyKey, "key", "k", "", "filter by key name (default: all keys)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	entries, err := history.History(historyKey, historyLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		printInfo("No rotations recorded")
		return nil
	}

	w, flush := newTabWriter()
	defer flush()

	fmt.Fprintln(w, "DATE\tKEY\tSTAGE\tREASON\tOLD\tNEW\tBY\tRESULT")
	for _, e := range entries {
		result := color.GreenString("ok")
		if !e.Success {
			result = color.RedString("failed")
		}
		oldHash, newHash := e.PreviousKeyHash, e.NewKeyHash
		if oldHash == "" {
			oldHash = "-"
		}
		if newHash == "" {
			newHash = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.RotationDate), e.KeyName, e.Environment, e.RotationReason,
			oldHash, newHash, e.PerformedBy, result)
	}
	return nil
}
