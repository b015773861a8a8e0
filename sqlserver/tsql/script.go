package tsql

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/relgen/sqlserver"
)

// Script returns the script creating every object of db: the database,
// the tables in emission order, the table types and the stored
// procedures. Batches are separated by GO.
func Script(db *sqlserver.Database, opts ...Option) (string, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts...)
	if err != nil {
		return "", err
	}
	if err := w.WriteScript(db); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteScript writes the script of db. Nothing is written if a stored
// procedure cannot be written.
func (w *Writer) WriteScript(db *sqlserver.Database) error {
	for _, p := range db.Procedures {
		if err := checkProcedure(p); err != nil {
			return err
		}
	}
	first := true
	batch := func(write func() error) error {
		if !first {
			w.line("")
		}
		first = false
		if err := write(); err != nil {
			return err
		}
		w.line("GO")
		return w.err
	}
	if name := w.databaseName(db); name != "" {
		first = false
		if err := w.WriteDatabase(name); err != nil {
			return err
		}
		w.line("")
		w.line("USE " + Quote(name))
		w.line("GO")
	}
	for _, t := range db.Tables {
		if err := batch(func() error { return w.WriteTable(t) }); err != nil {
			return err
		}
	}
	for _, t := range db.TableTypes {
		if err := batch(func() error { return w.WriteTableType(t) }); err != nil {
			return err
		}
	}
	for _, p := range db.Procedures {
		if err := batch(func() error { return w.WriteProcedure(p) }); err != nil {
			return err
		}
	}
	return w.err
}

func (w *Writer) databaseName(db *sqlserver.Database) string {
	if w.cfg.DatabaseName != "" {
		return w.cfg.DatabaseName
	}
	if db.Database != nil {
		return db.Name
	}
	return ""
}

// Directories of the files written by WriteFiles.
const (
	DatabaseDir   = "Database"
	TablesDir     = "Tables"
	TypesDir      = "Types"
	ProceduresDir = "StoredProcedures"
)

// fileTask is a single script file.
type fileTask struct {
	name  string // path relative to the output directory
	write func(*Writer) error
}

// WriteFiles writes one script file per object of db under dir, in
// parallel. It returns the paths of the written files relative to dir,
// in emission order.
func WriteFiles(ctx context.Context, dir string, db *sqlserver.Database, opts ...Option) ([]string, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	files, err := fileTasks(cfg, db)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	for _, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return writeFile(cfg, dir, f)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

func fileTasks(cfg *Config, db *sqlserver.Database) ([]fileTask, error) {
	var (
		files []fileTask
		seen  = make(map[string]bool)
	)
	add := func(subdir, name string, write func(*Writer) error) error {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("tsql: cannot derive a file name from object name %q", name)
		}
		path := filepath.Join(subdir, name+".sql")
		if seen[path] {
			return fmt.Errorf("tsql: duplicate object %q in %s", name, subdir)
		}
		seen[path] = true
		files = append(files, fileTask{name: path, write: write})
		return nil
	}
	w := &Writer{cfg: cfg}
	if name := w.databaseName(db); name != "" {
		if err := add(DatabaseDir, name, func(w *Writer) error { return w.WriteDatabase(name) }); err != nil {
			return nil, err
		}
	}
	for _, t := range db.Tables {
		if err := add(TablesDir, t.Name, func(w *Writer) error { return w.WriteTable(t) }); err != nil {
			return nil, err
		}
	}
	for _, t := range db.TableTypes {
		if err := add(TypesDir, t.Name, func(w *Writer) error { return w.WriteTableType(t) }); err != nil {
			return nil, err
		}
	}
	for _, p := range db.Procedures {
		if err := checkProcedure(p); err != nil {
			return nil, err
		}
		if err := add(ProceduresDir, p.Name, func(w *Writer) error { return w.WriteProcedure(p) }); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func writeFile(cfg *Config, dir string, f fileTask) error {
	var buf bytes.Buffer
	if err := f.write(&Writer{cfg: cfg, w: &buf}); err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	fullPath := filepath.Join(dir, f.name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.name, err)
	}
	if err := os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	cfg.Logger.Debug("wrote script", "file", f.name, "bytes", buf.Len())
	return nil
}
