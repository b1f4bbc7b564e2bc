package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surfdeck/surfdeck/descriptor"
	"github.com/surfdeck/surfdeck/entity"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a plugin descriptor",
		Long: `Validate checks a descriptor file against the attribute rules of its
declared schema version and reports every violation found, not just the
first. The file defaults to ` + descriptor.DefaultFileName + ` in the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := descriptor.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}

			doc, err := descriptor.Load(path)
			if err != nil {
				return err
			}

			violations := descriptor.Validate(doc)
			if len(violations) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), descriptor.FormatViolations(violations))
				return fmt.Errorf("%s: %d violation(s)", path, len(violations))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (schema version %d)\n",
				path, doc.SchemaVersion(entity.DefaultSchemaVersion))
			return nil
		},
	}
}
