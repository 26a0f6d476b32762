// Package config loads rdftransform settings with viper: defaults, then an
// optional file, then RDFTRANSFORM_* environment variables, then flags bound
// by the CLI.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/store"
)

// EnvPrefix prefixes environment overrides, e.g. RDFTRANSFORM_EXPORT_FORMAT.
const EnvPrefix = "RDFTRANSFORM"

// Config is the top-level configuration.
type Config struct {
	Export     ExportConfig     `mapstructure:"export"`
	Store      StoreConfig      `mapstructure:"store"`
	Expression ExpressionConfig `mapstructure:"expression"`
	Log        LogConfig        `mapstructure:"log"`
	Vocab      VocabConfig      `mapstructure:"vocab"`
}

// ExportConfig controls the export pipeline.
type ExportConfig struct {
	Format     string `mapstructure:"format"`
	BatchSize  int    `mapstructure:"batch_size"`
	Workers    int    `mapstructure:"workers"`
	RecordMode bool   `mapstructure:"record_mode"`
	RecordKey  string `mapstructure:"record_key"`
}

// StoreConfig selects the transient store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// ExpressionConfig picks the language used for expressions without a language tag.
type ExpressionConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

// LogConfig selects the zap preset (dev or prod) and level.
type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// VocabConfig locates the saved vocabulary list.
type VocabConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("export.format", string(rdf.FormatTurtle))
	v.SetDefault("export.batch_size", 0)
	v.SetDefault("export.workers", 1)
	v.SetDefault("export.record_mode", false)
	v.SetDefault("export.record_key", "")
	v.SetDefault("store.backend", store.BackendMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("expression.default_language", expr.LanguageHCL)
	v.SetDefault("log.mode", "prod")
	v.SetDefault("log.level", "info")
	v.SetDefault("vocab.dir", "")
}

// SetupEnv enables RDFTRANSFORM_* overrides on v.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path (optional) with defaults and
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "reading config", errs.FieldPath(path))
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigValidateInvalidValue, "unmarshalling config")
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, errs.Wrap(errors.Join(problems...), errs.CodeConfigValidateInvalidValue, "validating config")
	}
	return &cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var problems []error
	invalid := func(format string, args ...any) {
		problems = append(problems, errs.Errorf(errs.CodeConfigValidateInvalidValue, "config: "+format, args...))
	}

	if _, ok := rdf.ParseFormat(c.Export.Format); !ok {
		invalid("export.format must be one of [turtle, ntriples, nquads, jsonld], got %q", c.Export.Format)
	}
	if c.Export.BatchSize < 0 {
		invalid("export.batch_size must not be negative, got %d", c.Export.BatchSize)
	}
	if c.Export.Workers < 1 {
		invalid("export.workers must be at least 1, got %d", c.Export.Workers)
	}

	switch c.Store.Backend {
	case store.BackendMemory:
	case store.BackendSQLite:
	default:
		invalid("store.backend must be one of [memory, sqlite], got %q", c.Store.Backend)
	}

	switch c.Expression.DefaultLanguage {
	case expr.LanguageHCL, expr.LanguageJSONPath:
	default:
		invalid("expression.default_language must be one of [hcl, jsonpath], got %q", c.Expression.DefaultLanguage)
	}

	switch c.Log.Mode {
	case "dev", "prod":
	default:
		invalid("log.mode must be one of [dev, prod], got %q", c.Log.Mode)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		invalid("log.level must be one of [debug, info, warn, error], got %q", c.Log.Level)
	}

	return problems
}

// Format returns the parsed export format. Validate guarantees it is known.
func (c *Config) Format() rdf.Format {
	f, _ := rdf.ParseFormat(c.Export.Format)
	return f
}
