package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// startSpinner starts a progress spinner with the given message and returns
// it along with a cleanup function that stops it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s, func() { s.Stop() }
}

func printSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func printFailure(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", color.YellowString("!"), fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", color.CyanString("→"), fmt.Sprintf(format, args...))
}

// newTabWriter returns a tabwriter for aligned table output and a flush
// function to call when done.
func newTabWriter() (*tabwriter.Writer, func()) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	return w, func() { _ = w.Flush() }
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
