package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surfdeck/surfdeck/descriptor"
	"github.com/surfdeck/surfdeck/entity"
)

func newSchemaCommand() *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export the descriptor rules as JSON Schema",
		Long: `Schema prints a draft-07 JSON Schema describing valid descriptor
documents for one schema version. Editors and CI can use it to check
descriptors without this tool.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := descriptor.Schema(version)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", entity.DefaultSchemaVersion,
		fmt.Sprintf("schema version (%d..%d)", entity.MinSchemaVersion, entity.MaxSchemaVersion))
	return cmd
}
