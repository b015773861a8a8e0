package relational

import (
	"errors"

	"github.com/syssam/relgen/model"
)

// TableFilter decides whether a table is derived from a type.
type TableFilter func(*model.Type) bool

// OnlyClasses is a TableFilter that keeps classes and drops value types.
func OnlyClasses(t *model.Type) bool { return t.Kind == model.KindClass }

// TableFactory is called for every derived column, table and database.
// Implementations may decorate the values in place or return replacements.
// A replaced table must keep the column back-references consistent.
type TableFactory interface {
	CreateColumn(c *Column) *Column
	CreateTable(t *Table) *Table
	CreateDatabase(db *Database) *Database
}

// DefaultTableFactory returns every value unchanged. Embed it to override
// a single hook.
type DefaultTableFactory struct{}

// CreateColumn implements TableFactory.
func (DefaultTableFactory) CreateColumn(c *Column) *Column { return c }

// CreateTable implements TableFactory.
func (DefaultTableFactory) CreateTable(t *Table) *Table { return t }

// CreateDatabase implements TableFactory.
func (DefaultTableFactory) CreateDatabase(db *Database) *Database { return db }

// Config holds the strategies used by a Builder.
type Config struct {
	Names   NameProvider
	Types   TypeNameProvider
	Specs   ColumnSpecProvider
	Factory TableFactory
	Logger  Logger
	// Filters are applied in order; the first one returning false
	// excludes the type.
	Filters []TableFilter
}

// Option configures a Builder.
type Option func(*Config) error

// WithNameProvider sets the name provider.
func WithNameProvider(p NameProvider) Option {
	return func(c *Config) error {
		if p == nil {
			return NewConfigError("NameProvider", nil, "provider cannot be nil")
		}
		c.Names = p
		return nil
	}
}

// WithTypeNameProvider sets the type name provider.
func WithTypeNameProvider(p TypeNameProvider) Option {
	return func(c *Config) error {
		if p == nil {
			return NewConfigError("TypeNameProvider", nil, "provider cannot be nil")
		}
		c.Types = p
		return nil
	}
}

// WithColumnSpecProvider sets the column spec provider.
func WithColumnSpecProvider(p ColumnSpecProvider) Option {
	return func(c *Config) error {
		if p == nil {
			return NewConfigError("ColumnSpecProvider", nil, "provider cannot be nil")
		}
		c.Specs = p
		return nil
	}
}

// WithTableFactory sets the table factory hooks.
func WithTableFactory(f TableFactory) Option {
	return func(c *Config) error {
		if f == nil {
			return NewConfigError("TableFactory", nil, "factory cannot be nil")
		}
		c.Factory = f
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithTableFilter appends table filters. A type becomes a table only if
// every filter accepts it.
func WithTableFilter(filters ...TableFilter) Option {
	return func(c *Config) error {
		for _, f := range filters {
			if f == nil {
				return NewConfigError("TableFilter", nil, "filter cannot be nil")
			}
		}
		c.Filters = append(c.Filters, filters...)
		return nil
	}
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
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig returns a config with the ANSI defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Names:   DefaultNameProvider{},
		Types:   AnsiTypeNameProvider{},
		Specs:   DefaultColumnSpecProvider{},
		Factory: DefaultTableFactory{},
		Logger:  NopLogger(),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// include reports whether a table is derived from t.
func (c *Config) include(t *model.Type) bool {
	for _, f := range c.Filters {
		if !f(t) {
			return false
		}
	}
	return true
}
