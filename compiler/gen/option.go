package gen

import (
	"errors"
	"go/token"
	"path"
	"runtime"
	"slices"

	"github.com/syssam/relgen/dialect/sql/schema"
	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver"
	"github.com/syssam/relgen/sqlserver/tsql"
)

// Output layout under Config.Target.
const (
	// ObjectDir holds the per-object T-SQL files.
	ObjectDir = "sql"
	// MigrationDir holds the atlas migration directory.
	MigrationDir = "migrations"
	// SnapshotFile is the model snapshot compared by the next run.
	SnapshotFile = "model.msgpack"
)

// DefaultHeader is written at the top of every generated Go file.
const DefaultHeader = "Code generated by relgen. DO NOT EDIT."

// Config holds the configuration of a generation.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the name of the generated client package. The client is
	// written to a directory of the same name under Target.
	Package string
	// Runtime is the import path of the relgen module the generated
	// client imports its runtime from.
	Runtime string
	// Header is the comment written at the top of generated Go files.
	Header string
	// ScriptName is the file name of the single-script output.
	ScriptName string
	// Identity is the name of the identity attribute added to classes
	// without one. Empty disables the transform.
	Identity string
	// IdentityType is the type of added identities.
	IdentityType *model.Type
	// Features enabled in addition to the default ones.
	Features []Feature
	// Disabled features, including default ones.
	Disabled []string
	// Dialect of the migration directory, when FeatureMigrations is on.
	Dialect string
	// MigrationFormat is the migration directory format.
	MigrationFormat string
	// MigrationVersion overrides the version of the written migration.
	MigrationVersion string
	Workers          int
	Logger           relational.Logger

	SQLServer []sqlserver.Option
	Writer    []tsql.Option
	Validate  []relational.ValidateOption
	Diff      []relational.DiffOption
}

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return relational.NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithPackage sets the name of the generated client package and enables
// the client.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
			return relational.NewConfigError("Package", pkg, "package must be a valid Go package name")
		}
		c.Package = pkg
		c.Features = append(c.Features, FeatureClient)
		return nil
	}
}

// WithRuntime sets the import path of the client runtime module.
// For example: "github.com/org/fork/relgen".
func WithRuntime(importPath string) Option {
	return func(c *Config) error {
		if importPath == "" || path.IsAbs(importPath) {
			return relational.NewConfigError("Runtime", importPath, "runtime must be a module import path")
		}
		c.Runtime = importPath
		return nil
	}
}

// WithHeader sets the file header comment.
// The header is added at the top of each generated Go file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithScriptName sets the file name of the single script.
func WithScriptName(name string) Option {
	return func(c *Config) error {
		if name == "" || path.Base(name) != name {
			return relational.NewConfigError("ScriptName", name, "script name must be a file name")
		}
		c.ScriptName = name
		return nil
	}
}

// WithIdentity sets the name of identities added to classes without
// one. An empty name disables the transform.
func WithIdentity(name string, t *model.Type) Option {
	return func(c *Config) error {
		if name != "" && t == nil {
			return relational.NewConfigError("IdentityType", nil, "identity type cannot be nil")
		}
		c.Identity = name
		if t != nil {
			c.IdentityType = t
		}
		return nil
	}
}

// WithFeatures enables specific features.
// Features control optional outputs.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) error {
		c.Features = append(c.Features, features...)
		return nil
	}
}

// WithoutFeatures disables features by name, including default ones.
func WithoutFeatures(names ...string) Option {
	return func(c *Config) error {
		for _, name := range names {
			if _, ok := FeatureByName(name); !ok {
				return relational.NewConfigError("Features", name, "unknown feature")
			}
		}
		c.Disabled = append(c.Disabled, names...)
		return nil
	}
}

// WithMigrations enables the migration directory for the given dialect:
// "postgres", "mysql" or "sqlite3".
func WithMigrations(dialect string) Option {
	return func(c *Config) error {
		if _, err := schema.NewExporter(dialect); err != nil {
			return err
		}
		c.Dialect = dialect
		c.Features = append(c.Features, FeatureMigrations)
		return nil
	}
}

// WithMigrationFormat sets the migration directory format.
// Supported formats are listed by schema.Formats.
func WithMigrationFormat(format string) Option {
	return func(c *Config) error {
		if !slices.Contains(schema.Formats(), format) {
			return relational.NewConfigError("MigrationFormat", format, "unsupported migration format")
		}
		c.MigrationFormat = format
		return nil
	}
}

// WithMigrationVersion sets the version of the written migration. The
// default is the current time.
func WithMigrationVersion(version string) Option {
	return func(c *Config) error {
		c.MigrationVersion = version
		return nil
	}
}

// WithWorkers sets the number of parallel file writers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return relational.NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger passed to every stage.
func WithLogger(l relational.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return relational.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithSQLServerOptions adds options of the SQL Server builder.
func WithSQLServerOptions(opts ...sqlserver.Option) Option {
	return func(c *Config) error {
		c.SQLServer = append(c.SQLServer, opts...)
		return nil
	}
}

// WithWriterOptions adds options of the T-SQL writer.
func WithWriterOptions(opts ...tsql.Option) Option {
	return func(c *Config) error {
		c.Writer = append(c.Writer, opts...)
		return nil
	}
}

// WithValidateOptions adds options of the validation of the derived
// database.
func WithValidateOptions(opts ...relational.ValidateOption) Option {
	return func(c *Config) error {
		c.Validate = append(c.Validate, opts...)
		return nil
	}
}

// WithDiffOptions adds options of the comparison against the previous
// snapshot.
func WithDiffOptions(opts ...relational.DiffOption) Option {
	return func(c *Config) error {
		c.Diff = append(c.Diff, opts...)
		return nil
	}
}

// FeatureEnabled reports if the given feature name is enabled.
// It's exported to be used by the CLI.
func (c *Config) FeatureEnabled(name string) (bool, error) {
	if _, ok := FeatureByName(name); !ok {
		return false, relational.NewConfigError("Features", name, "unknown feature")
	}
	if slices.Contains(c.Disabled, name) {
		return false, nil
	}
	for _, f := range c.Features {
		if f.Name == name {
			return true, nil
		}
	}
	f, _ := FeatureByName(name)
	return f.Default, nil
}

func (c *Config) enabled(f Feature) bool {
	ok, _ := c.FeatureEnabled(f.Name)
	return ok
}

func (c *Config) scriptName() string {
	if c.ScriptName == "" {
		return "database.sql"
	}
	return c.ScriptName
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Package:      "client",
		Runtime:      "github.com/syssam/relgen",
		Header:       DefaultHeader,
		ScriptName:   "database.sql",
		Identity:     "Id",
		IdentityType: model.Integer,
		Workers:      runtime.GOMAXPROCS(0),
		Logger:       relational.NopLogger(),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	if c.Target == "" {
		return nil, relational.NewConfigError("Target", nil, "missing target directory")
	}
	if c.enabled(FeatureMigrations) && c.Dialect == "" {
		return nil, relational.NewConfigError("Dialect", nil, "migrations require a dialect")
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
