package sqlserver

import (
	"errors"

	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
)

// ProcedureKind is a kind of CRUD stored procedure derived per table.
type ProcedureKind string

// Procedure kinds.
const (
	InsertProcedure     ProcedureKind = "Insert"
	UpdateByIDProcedure ProcedureKind = "UpdateById"
	SelectByIDProcedure ProcedureKind = "SelectById"
	DeleteByIDProcedure ProcedureKind = "DeleteById"
)

// ProcedureKinds returns all procedure kinds.
func ProcedureKinds() []ProcedureKind {
	return []ProcedureKind{InsertProcedure, UpdateByIDProcedure, SelectByIDProcedure, DeleteByIDProcedure}
}

// TypeSelector selects the types that get a user-defined table type.
type TypeSelector func(*model.Type) bool

// ProcedureSelector selects the tables that get a stored procedure.
type ProcedureSelector func(*model.Type, *relational.Table) bool

// Config holds the SQL Server builder settings.
type Config struct {
	Names  NameProvider
	Types  relational.TypeNameProvider
	Specs  ColumnSpecProvider
	Logger relational.Logger
	// IdentityType is the model type of identities. It names the table
	// type used to pass lists of identities.
	IdentityType *model.Type
	// TableTypes select the types that get a table type. No selector
	// means no table types besides the identity table type.
	TableTypes []TypeSelector
	// CascadeOnComposition derives ON DELETE CASCADE for foreign keys
	// whose source property is a composition.
	CascadeOnComposition bool
	// Relational are extra options passed to the relational builder.
	Relational []relational.Option

	kinds      []ProcedureKind
	procedures map[ProcedureKind][]ProcedureSelector
}

// Option configures a Builder.
type Option func(*Config) error

// WithNameProvider sets the name provider. It is used by the relational
// builder as well.
func WithNameProvider(p NameProvider) Option {
	return func(c *Config) error {
		if p == nil {
			return relational.NewConfigError("NameProvider", nil, "provider cannot be nil")
		}
		c.Names = p
		return nil
	}
}

// WithTypeNameProvider sets the type name provider.
func WithTypeNameProvider(p relational.TypeNameProvider) Option {
	return func(c *Config) error {
		if p == nil {
			return relational.NewConfigError("TypeNameProvider", nil, "provider cannot be nil")
		}
		c.Types = p
		return nil
	}
}

// WithColumnSpecProvider sets the column spec provider.
func WithColumnSpecProvider(p ColumnSpecProvider) Option {
	return func(c *Config) error {
		if p == nil {
			return relational.NewConfigError("ColumnSpecProvider", nil, "provider cannot be nil")
		}
		c.Specs = p
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

// WithIdentityType overrides the identity type. The default is the
// integer primitive, mapped to "int".
func WithIdentityType(t *model.Type) Option {
	return func(c *Config) error {
		if t == nil {
			return relational.NewConfigError("IdentityType", nil, "type cannot be nil")
		}
		c.IdentityType = t
		return nil
	}
}

// WithTableTypes adds a table type selector. A type gets a table type if
// any selector accepts it.
func WithTableTypes(selector TypeSelector) Option {
	return func(c *Config) error {
		if selector == nil {
			return relational.NewConfigError("TableTypes", nil, "selector cannot be nil")
		}
		c.TableTypes = append(c.TableTypes, selector)
		return nil
	}
}

// WithProcedures enables a procedure kind. Selectors accumulate across
// calls and a table gets the procedure if any selector accepts it.
// Calling it without selectors enables the kind for every table and
// clears the selectors added before.
func WithProcedures(kind ProcedureKind, selectors ...ProcedureSelector) Option {
	return func(c *Config) error {
		switch kind {
		case InsertProcedure, UpdateByIDProcedure, SelectByIDProcedure, DeleteByIDProcedure:
		default:
			return relational.NewConfigError("Procedures", kind, "unsupported procedure kind")
		}
		for _, s := range selectors {
			if s == nil {
				return relational.NewConfigError("Procedures", kind, "selector cannot be nil")
			}
		}
		c.addProcedures(kind, selectors)
		return nil
	}
}

// WithInsertProcedures enables Insert procedures.
func WithInsertProcedures(selectors ...ProcedureSelector) Option {
	return WithProcedures(InsertProcedure, selectors...)
}

// WithUpdateProcedures enables UpdateById procedures.
func WithUpdateProcedures(selectors ...ProcedureSelector) Option {
	return WithProcedures(UpdateByIDProcedure, selectors...)
}

// WithSelectProcedures enables SelectById procedures.
func WithSelectProcedures(selectors ...ProcedureSelector) Option {
	return WithProcedures(SelectByIDProcedure, selectors...)
}

// WithDeleteProcedures enables DeleteById procedures.
func WithDeleteProcedures(selectors ...ProcedureSelector) Option {
	return WithProcedures(DeleteByIDProcedure, selectors...)
}

// WithAllProcedures enables every procedure kind for every table.
func WithAllProcedures() Option {
	return func(c *Config) error {
		for _, k := range ProcedureKinds() {
			c.addProcedures(k, nil)
		}
		return nil
	}
}

// WithCascadeOnComposition derives ON DELETE CASCADE for foreign keys
// mapping a composite aggregation.
func WithCascadeOnComposition() Option {
	return func(c *Config) error {
		c.CascadeOnComposition = true
		return nil
	}
}

// WithRelationalOptions passes options to the relational builder. They
// are applied after the SQL Server providers.
func WithRelationalOptions(opts ...relational.Option) Option {
	return func(c *Config) error {
		c.Relational = append(c.Relational, opts...)
		return nil
	}
}

func (c *Config) addProcedures(kind ProcedureKind, selectors []ProcedureSelector) {
	if c.procedures == nil {
		c.procedures = make(map[ProcedureKind][]ProcedureSelector)
	}
	current, ok := c.procedures[kind]
	if !ok {
		c.kinds = append(c.kinds, kind)
	}
	if len(selectors) == 0 {
		current = nil
	}
	c.procedures[kind] = append(current, selectors...)
}

// ProcedureKinds returns the enabled procedure kinds in the order they
// were enabled.
func (c *Config) ProcedureKinds() []ProcedureKind { return c.kinds }

// includeProcedure reports whether a procedure of the given kind is
// derived for the table.
func (c *Config) includeProcedure(kind ProcedureKind, t *model.Type, table *relational.Table) bool {
	selectors, ok := c.procedures[kind]
	if !ok {
		return false
	}
	if len(selectors) == 0 {
		return true
	}
	for _, s := range selectors {
		if s(t, table) {
			return true
		}
	}
	return false
}

// includeTableType reports whether a table type is derived for t.
func (c *Config) includeTableType(t *model.Type) bool {
	for _, s := range c.TableTypes {
		if s(t) {
			return true
		}
	}
	return false
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

// NewConfig returns a config with the SQL Server defaults and the given
// options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Names:        DefaultNameProvider{},
		Types:        TypeNameProvider{},
		Specs:        DefaultColumnSpecProvider{},
		Logger:       relational.NopLogger(),
		IdentityType: model.Integer,
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig is like NewConfig but panics on error.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
