package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver"
	"github.com/syssam/relgen/sqlserver/tsql"
)

// DefaultConfigFile is read by generate when --config is not set.
const DefaultConfigFile = "relgen.yaml"

// Config is the content of a relgen.yaml file. Command-line flags
// override its values.
type Config struct {
	Model    string `yaml:"model"`
	Output   string `yaml:"output"`
	Database string `yaml:"database"`
	// Identity is the name of the identity added to classes without one.
	// An empty string disables the transform.
	Identity *string `yaml:"identity"`
	// Plural pluralizes table names.
	Plural  bool         `yaml:"plural"`
	Cascade bool         `yaml:"cascade"`
	Workers int          `yaml:"workers"`
	Client  ClientConfig `yaml:"client"`
	Atlas   AtlasConfig  `yaml:"atlas"`
	Script  ScriptConfig `yaml:"script"`
	Enable  []string     `yaml:"features"`
	Disable []string     `yaml:"disable"`
}

// ClientConfig configures the generated Go client.
type ClientConfig struct {
	Package string `yaml:"package"`
	Runtime string `yaml:"runtime"`
	Header  string `yaml:"header"`
}

// AtlasConfig configures the migration directory.
type AtlasConfig struct {
	Dialect string `yaml:"dialect"`
	Format  string `yaml:"format"`
	Version string `yaml:"version"`
}

// ScriptConfig configures the T-SQL output.
type ScriptConfig struct {
	Name            string `yaml:"name"`
	KeepIfExists    bool   `yaml:"keep_if_exists"`
	SkipConstraints bool   `yaml:"skip_constraints"`
}

// LoadConfig reads the config file at path. A missing file yields an
// empty config when optional is set.
func LoadConfig(path string, optional bool) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Options returns the generation options of the config.
func (c *Config) Options() []gen.Option {
	var opts []gen.Option
	if c.Output != "" {
		opts = append(opts, gen.WithTarget(c.Output))
	}
	if c.Identity != nil {
		opts = append(opts, gen.WithIdentity(*c.Identity, model.Integer))
	}
	if c.Workers != 0 {
		opts = append(opts, gen.WithWorkers(c.Workers))
	}
	if c.Client.Package != "" {
		opts = append(opts, gen.WithPackage(c.Client.Package))
	}
	if c.Client.Runtime != "" {
		opts = append(opts, gen.WithRuntime(c.Client.Runtime))
	}
	if c.Client.Header != "" {
		opts = append(opts, gen.WithHeader(c.Client.Header))
	}
	if c.Atlas.Dialect != "" {
		opts = append(opts, gen.WithMigrations(c.Atlas.Dialect))
	}
	if c.Atlas.Format != "" {
		opts = append(opts, gen.WithMigrationFormat(c.Atlas.Format))
	}
	if c.Atlas.Version != "" {
		opts = append(opts, gen.WithMigrationVersion(c.Atlas.Version))
	}
	if c.Script.Name != "" {
		opts = append(opts, gen.WithScriptName(c.Script.Name))
	}
	for _, name := range c.Enable {
		f, ok := gen.FeatureByName(name)
		if !ok {
			opts = append(opts, func(*gen.Config) error {
				return relational.NewConfigError("Features", name, "unknown feature")
			})
			continue
		}
		opts = append(opts, gen.WithFeatures(f))
	}
	if len(c.Disable) > 0 {
		opts = append(opts, gen.WithoutFeatures(c.Disable...))
	}
	var server []sqlserver.Option
	if c.Plural {
		server = append(server, sqlserver.WithNameProvider(sqlserver.PluralNameProvider{}))
	}
	if c.Cascade {
		server = append(server, sqlserver.WithCascadeOnComposition())
	}
	if len(server) > 0 {
		opts = append(opts, gen.WithSQLServerOptions(server...))
	}
	var writer []tsql.Option
	if c.Database != "" {
		writer = append(writer, tsql.WithDatabaseName(c.Database))
	}
	if c.Script.KeepIfExists {
		writer = append(writer, tsql.KeepIfExists())
	}
	if c.Script.SkipConstraints {
		writer = append(writer, tsql.SkipConstraints())
	}
	if len(writer) > 0 {
		opts = append(opts, gen.WithWriterOptions(writer...))
	}
	return opts
}
