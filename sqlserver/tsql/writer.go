// Package tsql writes T-SQL scripts for the objects of a SQL Server
// database: the database itself, tables, user-defined table types and
// stored procedures.
//
// Identifiers are quoted with brackets and parameters are prefixed with
// "@". Every CREATE statement is preceded by a drop-if-exists statement
// unless KeepIfExists is set.
package tsql

import (
	"io"
	"strings"
)

// Writer writes T-SQL statements to an underlying io.Writer. The first
// write error is kept and returned by Err and by the Write methods.
type Writer struct {
	cfg   *Config
	w     io.Writer
	level int
	err   error
}

// NewWriter returns a writer that writes to w.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{cfg: cfg, w: w}, nil
}

// Err returns the first error that occurred while writing.
func (w *Writer) Err() error { return w.err }

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *Writer) writeIndent() {
	if w.level > 0 {
		w.write(strings.Repeat(w.cfg.Indent, w.level))
	}
}

func (w *Writer) endLine() { w.write("\n") }

// line writes an indented line. An empty line is written without indent.
func (w *Writer) line(s string) {
	if s != "" {
		w.writeIndent()
		w.write(s)
	}
	w.endLine()
}

func (w *Writer) indented(s string) {
	w.level++
	w.line(s)
	w.level--
}

// block writes contents between parentheses, one level deeper.
func (w *Writer) block(contents func()) {
	w.line("(")
	w.level++
	contents()
	w.level--
	w.line(")")
}

// beginEnd writes contents between BEGIN and END, one level deeper.
func (w *Writer) beginEnd(contents func()) {
	w.line("BEGIN")
	w.level++
	contents()
	w.level--
	w.line("END")
}

// listItem writes an indented list entry followed by a comma unless it is
// the last one.
func (w *Writer) listItem(s string, last bool) {
	w.writeIndent()
	w.write(s)
	if !last {
		w.write(",")
	}
	w.endLine()
}

// Quote returns the bracket-quoted identifier.
func Quote(name string) string { return "[" + name + "]" }

// Param returns the parameter reference, prefixed with "@".
func Param(name string) string { return "@" + name }

// sqlString returns a single-quoted string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
