package main

import (
	"github.com/aretw0/toolflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo financial statement tool server on stdio",
	Long: `Starts an MCP server on stdin/stdout exposing get_financial_statement and
list_symbols over sample data. Use it as a tool server:

  toolflow run --server "toolflow serve" "How did AOT revenue change from 2020 to 2024?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewFinanceServer(nil).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
