// Package cli holds the projectreview commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "projectreview",
		Short:        "AI review of student project repositories",
		Long:         "projectreview downloads a GitHub repository, reviews every file against the assignment requirements and answers follow-up questions. Without a subcommand it runs the HTTP server.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("REVIEW_CONFIG"), "path to the JSON config file")
	root.AddCommand(newServeCmd(&configPath), newAnalyzeCmd(&configPath))
	return root
}

// Run executes the root command and returns the process exit code.
func Run() int {
	if err := newRootCmd().Execute(); err != nil {
		return ExitFailure
	}
	return ExitSuccess
}
