package main

import (
	"fmt"
	"os"

	"github.com/aretw0/toolflow/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "toolflow",
	Short: "toolflow answers questions with tools served over MCP",
	Long: `toolflow starts one or more Model Context Protocol servers, lets a language model
pick one of their tools for your question, calls it and writes the answer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitFault)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default toolflow.yaml if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringArrayP("server", "s", nil, "Tool server command line, repeatable (overrides the config file)")
}

// baseOptions reads the persistent flags.
func baseOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	servers, _ := cmd.Flags().GetStringArray("server")
	return cli.Options{
		ConfigPath: configPath,
		Debug:      debug,
		Servers:    servers,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	}
}
