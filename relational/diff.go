package relational

import (
	"strconv"
	"strings"
)

// DiffOption configures ValidateDiff.
type DiffOption func(*diffConfig)

type diffConfig struct {
	allowDropTable     bool
	allowDropColumn    bool
	allowNullToNotNull bool
}

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() DiffOption {
	return func(c *diffConfig) { c.allowDropTable = true }
}

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() DiffOption {
	return func(c *diffConfig) { c.allowDropColumn = true }
}

// AllowNullToNotNull reports nullable columns becoming required as
// warnings.
func AllowNullToNotNull() DiffOption {
	return func(c *diffConfig) { c.allowNullToNotNull = true }
}

// ValidateDiff compares the database derived from a previous model with
// the current one. Changes that break existing data or callers are errors,
// changes that may fail on existing data are warnings.
//
//	result := relational.ValidateDiff(previous, current)
//	if result.HasErrors() {
//	    log.Fatal(result)
//	}
func ValidateDiff(current, desired *Database, opts ...DiffOption) *ValidationResult {
	cfg := &diffConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	r := &ValidationResult{}
	for _, t := range current.Tables {
		d, ok := desired.Table(t.Name)
		if !ok {
			if cfg.allowDropTable {
				r.warnf(t.Name, "", "table will be dropped")
			} else {
				r.errorf(t.Name, "", "table will be dropped")
			}
			continue
		}
		diffTable(t, d, cfg, r)
	}
	return r
}

func diffTable(current, desired *Table, cfg *diffConfig, r *ValidationResult) {
	for _, c := range current.OwnColumns {
		if _, ok := desired.Column(c.Name); ok {
			continue
		}
		if cfg.allowDropColumn {
			r.warnf(current.Name, c.Name, "column will be dropped")
		} else {
			r.errorf(current.Name, c.Name, "column will be dropped")
		}
	}
	for _, d := range desired.OwnColumns {
		c, ok := current.Column(d.Name)
		if !ok {
			if d.IsRequired && !d.IsIdentity {
				r.warnf(current.Name, d.Name, "new NOT NULL column may fail if the table has rows")
			}
			continue
		}
		if !strings.EqualFold(c.TypeName, d.TypeName) {
			r.warnf(current.Name, d.Name, "column type changing from %s to %s", c.TypeName, d.TypeName)
		} else if shorter(d.Length, c.Length) {
			r.warnf(current.Name, d.Name, "column length reducing from %s to %s may truncate data", c.Length, d.Length)
		}
		if c.IsNullable() && !d.IsNullable() {
			if cfg.allowNullToNotNull {
				r.warnf(current.Name, d.Name, "column changing from NULL to NOT NULL may fail if it has NULL values")
			} else {
				r.errorf(current.Name, d.Name, "column changing from NULL to NOT NULL may fail if it has NULL values")
			}
		}
		if c.IsIdentity != d.IsIdentity {
			r.errorf(current.Name, d.Name, "identity changes from %t to %t", c.IsIdentity, d.IsIdentity)
		}
	}
}

// shorter reports whether length a is shorter than length b. "max" and
// the empty length are unbounded.
func shorter(a, b string) bool {
	la, oka := boundedLength(a)
	lb, okb := boundedLength(b)
	switch {
	case !oka:
		return false
	case !okb:
		return true
	}
	return la < lb
}

func boundedLength(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n >= 0
}
