package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/rdf-transform/mapping"
	"github.com/geoknoesis/rdf-transform/vocab"
)

func newNamespacesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namespaces",
		Short: "Print the default namespaces",
		Long:  "Namespaces prints the namespaces declared by --mapping, or the saved vocabulary list when the mapping declares none.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			var t *mapping.Transform
			if path, _ := cmd.Flags().GetString("mapping"); path != "" {
				if t, err = mapping.Load(path); err != nil {
					return err
				}
			}
			namespaces := vocab.NewManager(cfg.Vocab.Dir, log).Defaults(t)

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"namespaces": namespaces})
			}
			for _, ns := range namespaces {
				if _, err := fmt.Fprintf(out, "%s\t%s\n", ns.Prefix, ns.IRI); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("mapping", "m", "", "mapping file whose namespaces take precedence")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
