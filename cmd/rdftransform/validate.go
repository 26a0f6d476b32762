package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/mapping"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a mapping file",
		Long:  "Validate loads a mapping and reports every structural problem. With --input it also checks that the referenced columns exist.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mappingPath, _ := cmd.Flags().GetString("mapping")
			input, _ := cmd.Flags().GetString("input")
			tableName, _ := cmd.Flags().GetString("table")

			t, err := mapping.Load(mappingPath)
			if err != nil {
				return err
			}

			if input != "" {
				src, closeSrc, err := openSource(cmd.Context(), cmd.InOrStdin(), input, tableName, "")
				if err != nil {
					return err
				}
				defer closeSrc()
				schema := src.Schema()
				var missing []string
				for _, column := range t.Columns() {
					if !schema.HasColumn(column) {
						missing = append(missing, column)
					}
				}
				if len(missing) > 0 {
					return errs.New(errs.CodeMappingValidateInvalid,
						fmt.Sprintf("columns not in %s: %s", schema.Name, strings.Join(missing, ", ")),
						errs.FieldPath(mappingPath))
				}
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d subject mappings, %d columns)\n",
				mappingPath, len(t.Subjects), len(t.Columns()))
			return err
		},
	}
	cmd.Flags().StringP("mapping", "m", "", "mapping file (.json, .yaml)")
	cmd.Flags().StringP("input", "i", "", "input table to check columns against")
	cmd.Flags().String("table", "", "SQLite table to check columns against")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}
