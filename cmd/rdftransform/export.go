package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/rdf-transform/config"
	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/internal/logger"
	"github.com/geoknoesis/rdf-transform/mapping"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/table"
	"github.com/geoknoesis/rdf-transform/transform"
	"github.com/geoknoesis/rdf-transform/vocab"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Map an input table to RDF",
		Example: `  rdftransform export -m mapping.json -i people.csv -o people.ttl
  rdftransform export -m mapping.yaml -i shop.db --table orders --format nquads
  rdftransform export -m mapping.json -i data.csv --record-key id --filter 'cells.status == "active"'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bind(cmd.Flags(), map[string]string{
				"export.format":      "format",
				"export.batch_size":  "batch-size",
				"export.workers":     "workers",
				"export.record_mode": "records",
				"export.record_key":  "record-key",
				"store.backend":      "store",
				"store.dsn":          "store-dsn",
			}); err != nil {
				return err
			}
			if cmd.Flags().Changed("record-key") {
				a.v.Set("export.record_mode", true)
			}
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runExport(cmd, cfg, log)
		},
	}

	cmd.Flags().StringP("mapping", "m", "", "mapping file (.json, .yaml)")
	cmd.Flags().StringP("input", "i", "", "input table (.csv, .tsv, .db, .sqlite or - for CSV on stdin)")
	cmd.Flags().String("table", "", "SQLite table to read")
	cmd.Flags().String("query", "", "SQLite query to read")
	cmd.Flags().StringP("format", "f", "", "output format: turtle, ntriples, nquads, jsonld")
	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	cmd.Flags().Bool("records", false, "evaluate the mapping per record")
	cmd.Flags().String("record-key", "", "column that starts a new record (implies --records)")
	cmd.Flags().String("filter", "", "boolean expression selecting rows or records")
	cmd.Flags().Int("batch-size", 0, "rows or records per flush (0 = single flush)")
	cmd.Flags().Int("workers", 1, "rows resolved in parallel")
	cmd.Flags().String("store", "", "transient store backend: memory or sqlite")
	cmd.Flags().String("store-dsn", "", "SQLite store database path")
	cmd.Flags().Bool("default-namespaces", false, "use the predefined vocabularies when the mapping declares no namespaces")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runExport(cmd *cobra.Command, cfg *config.Config, log *logger.Logger) (err error) {
	ctx := cmd.Context()
	flags := cmd.Flags()
	mappingPath, _ := flags.GetString("mapping")
	input, _ := flags.GetString("input")
	outPath, _ := flags.GetString("out")
	filter, _ := flags.GetString("filter")

	t, err := mapping.Load(mappingPath)
	if err != nil {
		return err
	}
	if useDefaults, _ := flags.GetBool("default-namespaces"); useDefaults {
		t.Namespaces = vocab.NewManager(cfg.Vocab.Dir, log).Defaults(t)
	}

	tableName, _ := flags.GetString("table")
	query, _ := flags.GetString("query")
	src, closeSrc, err := openSource(ctx, cmd.InOrStdin(), input, tableName, query)
	if err != nil {
		return err
	}
	defer closeSrc()

	format := cfg.Format()
	if !flags.Changed("format") {
		if inferred, ok := rdf.FormatFromPath(outPath); ok {
			format = inferred
		}
	}

	out := cmd.OutOrStdout()
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return errs.Wrap(err, errs.CodeCLIOutputFailure, "create output", errs.FieldPath(outPath))
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errs.Wrap(cerr, errs.CodeCLIOutputFailure, "close output", errs.FieldPath(outPath))
			}
		}()
		out = f
	}

	w, err := rdf.NewWriter(out, format)
	if err != nil {
		return errs.Wrap(err, errs.CodeCLIInputInvalid, "create writer", errs.Field("format", string(format)))
	}

	registry := expr.NewRegistry(cfg.Expression.DefaultLanguage)
	opts := []transform.Option{
		transform.WithEvaluator(registry),
		transform.WithObserver(transform.NewLogObserver(log)),
		transform.WithBatchSize(cfg.Export.BatchSize),
		transform.WithWorkers(cfg.Export.Workers),
		transform.WithStoreBackend(cfg.Store.Backend, cfg.Store.DSN),
	}
	if cfg.Export.RecordMode {
		opts = append(opts, transform.WithRecordMode(cfg.Export.RecordKey))
	}
	if strings.TrimSpace(filter) != "" {
		opts = append(opts, transform.WithFilter(expr.Filter(registry, filter)))
	}

	n, err := transform.Export(ctx, t, src, w, opts...)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = errs.Wrap(cerr, errs.CodeCLIOutputFailure, "close writer")
	}
	if err != nil {
		return err
	}
	log.Info("export complete", "statements", n, "format", string(format), "input", input)
	return nil
}

// openSource picks a row source from the input path.
func openSource(ctx context.Context, stdin io.Reader, input, tableName, query string) (table.Source, func(), error) {
	nop := func() {}
	switch ext := strings.ToLower(filepath.Ext(input)); {
	case input == "-":
		src, err := table.NewCSV("stdin", stdin, 0)
		return src, nop, err
	case ext == ".db" || ext == ".sqlite" || ext == ".sqlite3":
		q := query
		if q == "" {
			q = tableName
		}
		if q == "" {
			return nil, nop, errs.New(errs.CodeCLIInputInvalid, "sqlite input needs --table or --query", errs.FieldPath(input))
		}
		src, err := table.OpenSQLite(ctx, input, q)
		if err != nil {
			return nil, nop, err
		}
		return src, func() { _ = src.Close() }, nil
	case ext == ".csv" || ext == ".tsv" || ext == ".txt":
		src, err := table.OpenCSV(input, 0)
		return src, nop, err
	default:
		return nil, nop, errs.New(errs.CodeCLIInputInvalid, fmt.Sprintf("unsupported input %q", input), errs.FieldPath(input))
	}
}
