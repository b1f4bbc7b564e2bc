package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "surfdeck",
		Short: "SurfDeck plugin descriptor tooling",
		Long: `surfdeck works with control-surface plugin descriptors (entry.sd files):
it validates descriptors against the schema rules of the host, generates
descriptors from declarative plugin definitions, and exports the rules as
JSON Schema for use in editors and CI.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newSchemaCommand())

	return rootCmd
}
