package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/surfdeck/surfdeck/descriptor"
)

func newGenerateCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate <declaration>",
		Short: "Generate a descriptor from a plugin declaration",
		Long: `Generate expands a declarative plugin definition (JSON or YAML) into a
full descriptor: identifiers are derived from names where omitted, format
tokens like $[1] and $[fieldname] are resolved against the declared data
fields, and the result is validated before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read declaration: %w", err)
			}

			var plugin descriptor.Plugin
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				if err := yaml.Unmarshal(data, &plugin); err != nil {
					return fmt.Errorf("decode declaration: %w", err)
				}
			default:
				if err := json.Unmarshal(data, &plugin); err != nil {
					return fmt.Errorf("decode declaration: %w", err)
				}
			}

			doc, err := plugin.Generate()
			if err != nil {
				return err
			}

			if outPath == "" {
				out, err := doc.Bytes()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			if err := doc.WriteFile(outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to stdout)")
	return cmd
}
