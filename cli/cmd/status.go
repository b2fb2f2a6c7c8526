package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"southwinds.dev/rotor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the rotation status of the current stage's secret key",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	keyName := resolver.SecretKeyName(stage)

	report, err := rotator.CheckRotationStatus(keyName, stage)
	if err != nil {
		return err
	}

	if !report.Tracked {
		printWarning("Key %s is not tracked", keyName)
		printInfo("%s", report.Recommendation)
		return nil
	}

	fmt.Printf("Key:                 %s\n", report.KeyName)
	fmt.Printf("Environment:         %s\n", report.Environment)
	fmt.Printf("Status:              %s\n", colorStatus(report.Status))
	fmt.Printf("Days remaining:      %d\n", report.DaysRemaining)
	fmt.Printf("Rotation count:      %d\n", report.RotationCount)
	fmt.Printf("Encrypted variables: %d\n", report.EncryptedVariables)

	switch report.Severity {
	case rotor.SeverityExpired:
		printFailure("%s", report.Recommendation)
	case rotor.SeverityExpiringSoon:
		printWarning("%s", report.Recommendation)
	default:
		printSuccess("%s", report.Recommendation)
	}
	return nil
}

func colorStatus(status rotor.KeyStatus) string {
	switch status {
	case rotor.KeyStatusExpired:
		return color.RedString(string(status))
	case rotor.KeyStatusExpiringSoon:
		return color.YellowString(string(status))
	default:
		return color.GreenString(string(status))
	}
}
