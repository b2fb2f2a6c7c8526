package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"southwinds.dev/rotor"
)

var (
	rotateForce      bool
	rotateDryRun     bool
	rotateReason     string
	rotateDays       int
	rotateAllExpired bool
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the secret key and re-encrypt all protected variables",
	Long: `Rotate decrypts every encrypted variable in the stage's variable file under
the current key, generates a fresh key, re-encrypts the full set under it and
updates the key metadata and rotation history.

A key that is not yet due is refused unless --force is given. With --dry-run
the command only proves that every variable decrypts cleanly; nothing is
written.`,
	RunE: runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)

	rotateCmd.Flags().BoolVarP(&rotateForce, "force", "f", false, "rotate even if the key is not yet due")
	rotateCmd.Flags().BoolVar(&rotateDryRun, "dry-run", false, "validate and decrypt only, write nothing")
	rotateCmd.Flags().StringVarP(&rotateReason, "reason", "r", "", "rotation reason (scheduled, manual, compromised, expired)")
	rotateCmd.Flags().IntVarP(&rotateDays, "days", "d", 0, "lifetime of the new key in days")
	rotateCmd.Flags().BoolVar(&rotateAllExpired, "all-expired", false, "rotate every tracked key that is due, across stages")
}

func runRotate(cmd *cobra.Command, args []string) error {
	if rotateAllExpired {
		return runRotateAllExpired()
	}

	opts := rotor.RotateOptions{
		KeyName:        resolver.SecretKeyName(stage),
		Environment:    stage,
		RotationDays:   rotateDays,
		RotationReason: rotor.RotationReason(rotateReason),
		ForceRotation:  rotateForce,
		DryRun:         rotateDryRun,
	}

	verb := "Rotating"
	if rotateDryRun {
		verb = "Checking"
	}
	_, stop := startSpinner(fmt.Sprintf("%s secret key for %s...", verb, stage))
	result, err := rotator.RotateKeyWithReEncryption(opts)
	stop()

	if err != nil {
		var notNeeded *rotor.RotationNotNeededError
		if errors.As(err, &notNeeded) {
			printInfo("Key %s is not due for rotation (%d days remaining). Use --force to rotate anyway.",
				notNeeded.KeyName, notNeeded.DaysRemaining)
			return nil
		}
		return err
	}

	printRotationResult(result)
	if !result.Success {
		return fmt.Errorf("rotation failed: %s", result.Error)
	}
	return nil
}

func runRotateAllExpired() error {
	_, stop := startSpinner("Rotating all expired keys...")
	results, err := rotator.RotateAllExpiredKeys(rotor.RotateOptions{
		RotationDays: rotateDays,
	})
	stop()
	if err != nil {
		return err
	}

	if len(results) == 0 {
		printInfo("No keys are due for rotation")
		return nil
	}

	failed := 0
	for i := range results {
		printRotationResult(&results[i])
		if !results[i].Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rotations failed", failed, len(results))
	}
	return nil
}

func printRotationResult(result *rotor.RotationResult) {
	switch {
	case result.DryRun:
		printSuccess("Dry run for %s (%s): %d variables would be re-encrypted",
			result.KeyName, result.Environment, result.VariablesProcessed)
	case result.Success:
		printSuccess("Rotated %s (%s): %d variables re-encrypted in %s",
			result.KeyName, result.Environment, result.VariablesProcessed, result.Duration.Round(time.Millisecond))
		printInfo("Old key %s → new key %s", result.OldKeyHash, result.NewKeyHash)
	default:
		printFailure("Rotation of %s (%s) failed in state %s: %s",
			result.KeyName, result.Environment, result.State, result.Error)
		if len(result.VariablesFailed) > 0 {
			printWarning("Failed variables: %s", strings.Join(result.VariablesFailed, ", "))
		}
	}
}
