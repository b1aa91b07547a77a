package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/toolflow/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [question]",
	Short: "Answer a question using the configured tool servers",
	Long: `Discovers the tools of every server, asks the model which one to call,
calls it and writes the answer.

Exit codes: 0 when an answer was written or a tool error was reported,
1 on an engine fault, 2 when the model's decision could not be read.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := baseOptions(cmd)
		opts.Provider, _ = cmd.Flags().GetString("provider")
		opts.Model, _ = cmd.Flags().GetString("model")
		opts.AnswerFile, _ = cmd.Flags().GetString("output")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		quiet, _ := cmd.Flags().GetBool("quiet")
		opts.NoConsole = quiet

		sc := cli.NewSignalContext(cmd.Context())
		code, err := cli.Run(sc, opts, strings.Join(args, " "))
		sc.Stop()
		if err != nil {
			if sig := sc.Signal(); sig != nil {
				fmt.Fprintf(os.Stderr, ">>> Interrupted by %s.\n", sig)
			} else {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
		}
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("provider", "", "Language model provider: gemini, claude or openai")
	runCmd.Flags().String("model", "", "Model name (provider default when empty)")
	runCmd.Flags().StringP("output", "o", "", "Answer file (default answer.md)")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the answer on stdout")
}
