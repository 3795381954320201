package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "autorev",
	Short: "Automated AI review for pull requests.",
	Long: `autorev fetches a pull request's diff, sends each changed file to an
AI analysis provider, and republishes the findings as line-anchored
review comments plus one aggregate summary.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
