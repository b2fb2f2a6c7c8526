package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysExpiredOnly bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage tracked secret keys",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked secret keys and their lifecycle state",
	RunE:  runKeysList,
}

var keysUntrackCmd = &cobra.Command{
	Use:   "untrack <key-name>",
	Short: "Remove a key's lifecycle metadata",
	Long: `Untrack removes a key's metadata record. The key itself and any values
encrypted under it are left untouched; only the lifecycle tracking goes away.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysUntrack,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysUntrackCmd)

	keysListCmd.Flags().BoolVar(&keysExpiredOnly, "expired", false, "show only keys that are due for rotation")
}

func runKeysList(cmd *cobra.Command, args []string) error {
	list, err := metadata.All()
	if err != nil {
		return err
	}
	if keysExpiredOnly {
		list, err = metadata.KeysNeedingRotation()
		if err != nil {
			return err
		}
	}

	if len(list) == 0 {
		printInfo("No tracked keys")
		return nil
	}

	w, flush := newTabWriter()
	defer flush()

	fmt.Fprintln(w, "KEY\tSTAGE\tSTATUS\tEXPIRES\tROTATIONS\tLAST ROTATED")
	for _, meta := range list {
		lastRotated := "-"
		if meta.LastRotatedAt != nil {
			lastRotated = formatTime(*meta.LastRotatedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			meta.KeyName, meta.Environment, colorStatus(meta.Status),
			formatTime(meta.ExpiresAt), meta.RotationCount, lastRotated)
	}
	return nil
}

func runKeysUntrack(cmd *cobra.Command, args []string) error {
	keyName := args[0]
	if err := metadata.Untrack(keyName); err != nil {
		return err
	}
	printSuccess("Untracked %s", keyName)
	return nil
}
