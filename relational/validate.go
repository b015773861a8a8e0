package relational

import (
	"fmt"
	"strings"
)

// ValidationError is a problem found in a derived database.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) errorf(table, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

// ValidateOption configures validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	maxIdentifier   int
	allowNoIdentity bool
}

// MaxIdentifierLength sets the longest accepted identifier. The default
// is 128, the SQL Server limit.
func MaxIdentifierLength(n int) ValidateOption {
	return func(c *validateConfig) {
		c.maxIdentifier = n
	}
}

// AllowMissingIdentity silences the warning for tables without identity.
func AllowMissingIdentity() ValidateOption {
	return func(c *validateConfig) {
		c.allowNoIdentity = true
	}
}

// ValidateTable validates a single table definition.
func ValidateTable(t *Table, opts ...ValidateOption) *ValidationResult {
	cfg := newValidateConfig(opts)
	result := &ValidationResult{}
	validateTable(t, cfg, result)
	return result
}

// Validate checks a derived database: identifiers, duplicate names,
// identity uniqueness, key columns and the emission order of tables
// referenced by foreign keys.
func Validate(db *Database, opts ...ValidateOption) *ValidationResult {
	cfg := newValidateConfig(opts)
	result := &ValidationResult{}
	position := make(map[*Table]int, len(db.Tables))
	names := make(map[string]bool, len(db.Tables))
	for i, t := range db.Tables {
		if names[t.Name] {
			result.errorf(t.Name, "", "duplicate table name")
		}
		names[t.Name] = true
		position[t] = i
		validateTable(t, cfg, result)
	}
	for i, t := range db.Tables {
		for _, c := range t.DependentColumns {
			j, ok := position[c.Table]
			if !ok || c.Table == t {
				continue
			}
			if j <= i {
				result.errorf(c.Table.Name, c.Name, "references table %q which is emitted later", t.Name)
			}
		}
		for _, k := range t.Keys {
			if k.Type == ForeignKey && !names[k.PrincipalTable] {
				result.errorf(t.Name, k.Column, "foreign key %q references non-existent table %q", k.Name, k.PrincipalTable)
			}
		}
	}
	return result
}

func newValidateConfig(opts []ValidateOption) *validateConfig {
	cfg := &validateConfig{maxIdentifier: 128}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func validateTable(t *Table, cfg *validateConfig, result *ValidationResult) {
	checkIdentifier(t.Name, "", t.Name, cfg, result)
	identities := 0
	cols := make(map[string]bool, len(t.OwnColumns))
	for _, c := range t.OwnColumns {
		checkIdentifier(t.Name, c.Name, c.Name, cfg, result)
		if cols[c.Name] {
			result.errorf(t.Name, c.Name, "duplicate column name")
		}
		cols[c.Name] = true
		if c.IsIdentity {
			identities++
		}
		if c.IsIdentity && c.IsForeignKey {
			result.errorf(t.Name, c.Name, "column is both identity and foreign key")
		}
	}
	switch {
	case identities > 1:
		result.errorf(t.Name, "", "table has %d identity columns", identities)
	case identities == 0 && t.SourceType != nil && !cfg.allowNoIdentity:
		result.warnf(t.Name, "", "table has no identity column")
	}
	for _, k := range t.Keys {
		if !cols[k.Column] {
			result.errorf(t.Name, "", "%s %q references non-existent column %q", k.Type, k.Name, k.Column)
		}
	}
}

func checkIdentifier(table, column, name string, cfg *validateConfig, result *ValidationResult) {
	switch {
	case name == "":
		result.errorf(table, column, "empty identifier")
	case len(name) > cfg.maxIdentifier:
		result.errorf(table, column, "identifier longer than %d characters", cfg.maxIdentifier)
	case strings.ContainsAny(name, "[]"):
		result.errorf(table, column, "identifier contains a bracket")
	}
}
