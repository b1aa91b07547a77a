package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/toolflow"
	"github.com/aretw0/toolflow/pkg/adapters/console"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of toolflow",
	Run: func(cmd *cobra.Command, args []string) {
		version := strings.TrimSpace(toolflow.Version)
		if console.IsTerminal(cmd.OutOrStdout()) {
			console.PrintBanner(cmd.OutOrStdout(), version)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "toolflow version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
