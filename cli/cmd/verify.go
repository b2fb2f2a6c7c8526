package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Prove every encrypted variable decrypts under the current key",
	Long: `Verify decrypts every encrypted variable in the stage's variable file under
the current secret key without writing anything. A non-zero exit means at
least one variable failed, which would also abort a rotation.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	_, stop := startSpinner("Verifying encrypted variables...")
	result, err := rotator.VerifyAll(stage)
	stop()
	if err != nil {
		return err
	}

	if len(result.Failed) > 0 {
		printFailure("%d variable(s) failed to decrypt: %s",
			len(result.Failed), strings.Join(result.Failed, ", "))
		return fmt.Errorf("verification failed for %d variable(s)", len(result.Failed))
	}

	printSuccess("%d encrypted variable(s) verified", result.Verified)
	if result.Plaintext > 0 {
		printWarning("%d variable(s) are still plaintext; run 'rotor encrypt'", result.Plaintext)
	}
	return nil
}
