package cmd

import (
	"github.com/spf13/cobra"

	"southwinds.dev/rotor/internal/misc"
)

var encryptDays int

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt all plaintext variables in the current stage's file",
	Long: `Encrypt ensures the stage has a tracked secret key, generating one if
needed, then encrypts every plaintext variable in the stage's variable file
under it. Variables that are already encrypted or empty are left alone.`,
	RunE: runEncrypt,
}

func init() {
	rootCmd.AddCommand(encryptCmd)

	encryptCmd.Flags().IntVarP(&encryptDays, "days", "d", misc.DefaultRotationDays, "lifetime of a newly generated key in days")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	_, stop := startSpinner("Encrypting variables...")

	if _, err := rotator.EnsureKey(stage, encryptDays, ""); err != nil {
		stop()
		return err
	}

	entry, err := rotator.EncryptAllVariables(stage, "")
	stop()
	if err != nil {
		return err
	}

	printSuccess("Encrypted %d of %d variables in %dms",
		len(entry.VariablesEncrypted), entry.TotalVariables, entry.DurationMs)
	if n := len(entry.AlreadyEncrypted); n > 0 {
		printInfo("%d already encrypted", n)
	}
	if n := len(entry.EmptyVariables); n > 0 {
		printInfo("%d empty, skipped", n)
	}
	return nil
}
