package tsql

import (
	"errors"
	"runtime"

	"github.com/syssam/relgen/relational"
)

// Config holds the writer settings.
type Config struct {
	// KeepIfExists omits the drop-if-exists statement written before
	// every CREATE statement.
	KeepIfExists bool
	// SkipConstraints omits the primary and foreign key clauses of
	// CREATE TABLE statements.
	SkipConstraints bool
	// Indent is the string written per indentation level.
	Indent string
	// DatabaseName overrides the name of the created database.
	DatabaseName string
	Logger       relational.Logger
	// Workers bounds the number of files written in parallel.
	Workers int
}

// Option configures a Writer.
type Option func(*Config) error

// KeepIfExists omits drop statements.
func KeepIfExists() Option {
	return func(c *Config) error {
		c.KeepIfExists = true
		return nil
	}
}

// SkipConstraints omits key constraint clauses.
func SkipConstraints() Option {
	return func(c *Config) error {
		c.SkipConstraints = true
		return nil
	}
}

// WithIndent sets the indentation string. The default is a tab.
func WithIndent(indent string) Option {
	return func(c *Config) error {
		for _, r := range indent {
			if r != ' ' && r != '\t' {
				return relational.NewConfigError("Indent", indent, "indent must only contain spaces and tabs")
			}
		}
		c.Indent = indent
		return nil
	}
}

// WithDatabaseName sets the name of the created database. The default is
// the name of the source model.
func WithDatabaseName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return relational.NewConfigError("DatabaseName", nil, "name cannot be empty")
		}
		c.DatabaseName = name
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l relational.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return relational.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
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

// NewConfig returns a config with the defaults and the given options.
// All option errors are joined.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Indent:  "\t",
		Logger:  relational.NopLogger(),
		Workers: runtime.GOMAXPROCS(0),
	}
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}
