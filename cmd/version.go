package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the autorev version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("autorev %s\n", Version)
		},
	})
}
