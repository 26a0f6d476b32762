package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/geoknoesis/rdf-transform/config"
	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/internal/logger"
)

// app is the state shared by the subcommands of one root command.
type app struct {
	v *viper.Viper
}

// NewRootCmd creates the root rdftransform command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "rdftransform",
		Short:         "Map tabular data to RDF",
		Long:          "rdftransform maps CSV, TSV and SQLite rows onto an RDF graph with a declarative mapping and writes Turtle, N-Triples, N-Quads or JSON-LD.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("log-mode", "", "log preset: dev or prod")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("vocab-dir", "", "directory holding the saved vocabulary list")

	root.AddCommand(
		newExportCmd(a),
		newValidateCmd(a),
		newNamespacesCmd(a),
		newVersionCmd(),
	)
	return root
}

// initViper applies defaults, environment, the config file and the global
// flags, giving flag > env > file > defaults precedence.
func (a *app) initViper(cmd *cobra.Command) error {
	config.SetDefaults(a.v)
	config.SetupEnv(a.v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errs.Wrap(err, errs.CodeConfigLoadReadFailure, "reading config file", errs.FieldPath(cfgFile))
		}
	}

	return a.bind(cmd.Root().PersistentFlags(), map[string]string{
		"log.mode":  "log-mode",
		"log.level": "log-level",
		"vocab.dir": "vocab-dir",
	})
}

// bind maps viper keys to flags of set.
func (a *app) bind(set *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := set.Lookup(name)
		if flag == nil {
			continue
		}
		if err := a.v.BindPFlag(key, flag); err != nil {
			return errs.Wrapf(err, errs.CodeCLISetupFailure, "binding %s flag", name)
		}
	}
	return nil
}

// load decodes the configuration and builds the logger it asks for.
func (a *app) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, errs.Wrap(err, errs.CodeCLISetupFailure, "building logger")
	}
	return cfg, log, nil
}
