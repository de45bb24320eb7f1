package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "perch",
	Short:         "perch: a local timeline of files, notes, thoughts, and reminders",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(
		startCmd,
		stopCmd,
		statusCmd,
		addCmd,
		noteCmd,
		listCmd,
		deleteCmd,
		remindCmd,
		exportCmd,
		settingsCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
