package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the CLI. Without a subcommand it serves HTTP.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "insights",
		Short: "Spending insights service",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newCategoriesCommand())

	return rootCmd
}
