package main

import (
	"github.com/aretw0/toolflow/internal/cli"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered by the configured servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Stop()
		return cli.ListTools(sc, baseOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
