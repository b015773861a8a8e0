package tsql

import (
	"strconv"
	"strings"

	"github.com/syssam/relgen/relational"
)

// WriteDatabase writes the statements creating the named database.
func (w *Writer) WriteDatabase(name string) error {
	w.line("USE master")
	if !w.cfg.KeepIfExists {
		w.line("")
		w.line("IF EXISTS(SELECT * from sys.databases WHERE name=" + sqlString(name) + ") DROP DATABASE " + Quote(name) + ";")
		w.line("GO")
	}
	w.line("")
	w.line("CREATE DATABASE " + Quote(name))
	w.line("GO")
	return w.err
}

// WriteTable writes the CREATE TABLE statement of t with its key
// constraints.
func (w *Writer) WriteTable(t *relational.Table) error {
	keys := t.Keys
	if w.cfg.SkipConstraints {
		keys = nil
	}
	if !w.cfg.KeepIfExists {
		w.line("IF OBJECT_ID(" + sqlString(t.Name) + ", 'U') IS NOT NULL DROP TABLE " + Quote(t.Name) + ";")
		w.line("")
	}
	w.line("CREATE TABLE " + Quote(t.Name))
	w.block(func() {
		for i, c := range t.OwnColumns {
			w.listItem(columnDefinition(c), len(keys) == 0 && i == len(t.OwnColumns)-1)
		}
		for i, k := range keys {
			w.listItem(keyDefinition(k), i == len(keys)-1)
		}
	})
	return w.err
}

// WriteTableType writes the CREATE TYPE statement of a table type.
func (w *Writer) WriteTableType(t *relational.Table) error {
	if !w.cfg.KeepIfExists {
		w.line("IF EXISTS (SELECT * FROM sys.types WHERE is_user_defined = 1 AND name = " + sqlString(t.Name) + ") DROP TYPE " + Quote(t.Name) + ";")
		w.line("GO")
		w.line("")
	}
	w.line("CREATE TYPE " + Quote(t.Name) + " AS TABLE")
	w.block(func() {
		for i, c := range t.OwnColumns {
			w.listItem(columnDefinition(c), i == len(t.OwnColumns)-1)
		}
	})
	return w.err
}

func columnDefinition(c *relational.Column) string {
	var b strings.Builder
	b.WriteString(Quote(c.Name))
	b.WriteString(" ")
	b.WriteString(Quote(c.TypeName))
	b.WriteString(typeSize(c.Length, c.Precision, c.Scale))
	if c.IsIdentity {
		b.WriteString(" IDENTITY(1,1)")
	}
	if !c.IsNullable() {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// ColumnType returns the type of c with its size, e.g. "nvarchar(50)".
func ColumnType(c *relational.Column) string {
	return c.TypeName + typeSize(c.Length, c.Precision, c.Scale)
}

// typeSize returns "(length)", "(precision,scale)" or an empty string.
func typeSize(length string, precision, scale *int) string {
	if length != "" {
		return "(" + length + ")"
	}
	var parts []string
	if precision != nil {
		parts = append(parts, strconv.Itoa(*precision))
	}
	if scale != nil {
		parts = append(parts, strconv.Itoa(*scale))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func keyDefinition(k *relational.Key) string {
	if k.Type == relational.PrimaryKey {
		return "CONSTRAINT " + Quote(k.Name) + " PRIMARY KEY CLUSTERED (" + Quote(k.Column) + ")"
	}
	s := "CONSTRAINT " + Quote(k.Name) + " FOREIGN KEY (" + Quote(k.Column) + ") REFERENCES " +
		Quote(k.PrincipalTable) + " (" + Quote(k.PrincipalColumn) + ")"
	if k.CascadeOnDelete {
		s += " ON DELETE CASCADE"
	}
	return s
}
