package gen

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/dialect/sql/schema"
	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver"
	"github.com/syssam/relgen/sqlserver/tsql"
)

// Result describes a completed generation.
type Result struct {
	Model    *model.Model
	Database *sqlserver.Database
	// Validation holds the warnings of the derived database.
	Validation *relational.ValidationResult
	// Diff compares the database against the previous snapshot. It is
	// nil when there is no previous snapshot.
	Diff *relational.ValidationResult
	// Files are the written files, relative to the target directory.
	Files []string
	// Client holds the metrics of the client writer, when enabled.
	Client *WriterMetrics
}

// GenerateFile loads the model stored at path and generates it.
func GenerateFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	m, err := load.File(path)
	if err != nil {
		return nil, NewGenerationError("load", path, "", err)
	}
	return Generate(ctx, m, opts...)
}

// Generate derives the SQL Server database of m and writes the enabled
// outputs under the target directory.
//
//	res, err := gen.Generate(ctx, m,
//	    gen.WithTarget("out"),
//	    gen.WithPackage("store"),
//	)
func Generate(ctx context.Context, m *model.Model, opts ...Option) (*Result, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	db, err := Derive(m, cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{Model: m, Database: db}
	res.Validation = relational.Validate(db.Database, cfg.Validate...)
	for _, w := range res.Validation.Warnings {
		cfg.Logger.Warn("validation warning", "table", w.Table, "column", w.Column, "message", w.Message)
	}
	if res.Validation.HasErrors() {
		return res, &ValidationError{Result: res.Validation}
	}
	if cfg.enabled(FeatureSnapshot) {
		diff, err := diffSnapshot(cfg, db)
		if err != nil {
			return res, err
		}
		res.Diff = diff
		if diff != nil && diff.HasErrors() {
			return res, &ValidationError{Result: diff}
		}
	}
	if err := cleanup(cfg); err != nil {
		return res, NewGenerationError("cleanup", "", "", err)
	}
	for _, step := range []struct {
		feature Feature
		run     func(context.Context, *Config, *Result) error
	}{
		{FeatureObjectFiles, writeObjects},
		{FeatureScript, writeScript},
		{FeatureMigrations, writeMigrations},
		{FeatureClient, writeClient},
		{FeatureSnapshot, writeSnapshot},
	} {
		if !cfg.enabled(step.feature) {
			continue
		}
		if err := step.run(ctx, cfg, res); err != nil {
			return res, err
		}
	}
	cfg.Logger.Info("generated database", "name", db.Name, "tables", len(db.Tables),
		"procedures", len(db.Procedures), "files", len(res.Files))
	return res, nil
}

// Derive adds the configured identities to m and derives its SQL Server
// database. Every procedure kind is derived for classes only, before the
// SQL Server options of the config apply.
func Derive(m *model.Model, cfg *Config) (*sqlserver.Database, error) {
	if cfg.Identity != "" {
		added := model.AddIdentity(m, cfg.IdentityType, model.WithIdentityName(func(*model.Type) string {
			return cfg.Identity
		}))
		for _, p := range added {
			cfg.Logger.Debug("added identity", "type", p.Owner.Name, "attribute", p.Name)
		}
	}
	opts := []sqlserver.Option{
		sqlserver.WithLogger(cfg.Logger),
		sqlserver.WithAllProcedures(),
		sqlserver.WithRelationalOptions(relational.WithTableFilter(relational.OnlyClasses)),
	}
	b, err := sqlserver.NewBuilder(append(opts, cfg.SQLServer...)...)
	if err != nil {
		return nil, err
	}
	db, err := b.Build(m)
	if err != nil {
		return nil, NewGenerationError("derive", "", "", err)
	}
	return db, nil
}

// cleanup removes the output of disabled features.
func cleanup(cfg *Config) error {
	for _, f := range AllFeatures {
		if cfg.enabled(f) || f.cleanup == nil {
			continue
		}
		if err := f.cleanup(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) writerOptions() []tsql.Option {
	return append([]tsql.Option{tsql.WithLogger(c.Logger), tsql.WithWorkers(c.Workers)}, c.Writer...)
}

func writeObjects(ctx context.Context, cfg *Config, res *Result) error {
	files, err := tsql.WriteFiles(ctx, filepath.Join(cfg.Target, ObjectDir), res.Database, cfg.writerOptions()...)
	if err != nil {
		return NewGenerationError("script", ObjectDir, "", err)
	}
	for _, f := range files {
		res.Files = append(res.Files, filepath.Join(ObjectDir, f))
	}
	return nil
}

func writeScript(_ context.Context, cfg *Config, res *Result) error {
	name := cfg.scriptName()
	script, err := tsql.Script(res.Database, cfg.writerOptions()...)
	if err != nil {
		return NewGenerationError("script", name, "", err)
	}
	if err := os.MkdirAll(cfg.Target, 0o755); err != nil {
		return NewGenerationError("script", name, "create target directory", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Target, name), []byte(script), 0o644); err != nil {
		return NewGenerationError("script", name, "", err)
	}
	res.Files = append(res.Files, name)
	return nil
}

func writeMigrations(ctx context.Context, cfg *Config, res *Result) error {
	opts := []schema.Option{schema.WithLogger(cfg.Logger)}
	if cfg.MigrationFormat != "" {
		opts = append(opts, schema.WithFormat(cfg.MigrationFormat))
	}
	if cfg.MigrationVersion != "" {
		opts = append(opts, schema.WithVersion(cfg.MigrationVersion))
	}
	e, err := schema.NewExporter(cfg.Dialect, opts...)
	if err != nil {
		return err
	}
	dir := filepath.Join(MigrationDir, e.Dialect())
	files, err := e.WriteDir(ctx, filepath.Join(cfg.Target, dir), res.Database.Database, "create_"+res.Database.Name)
	if err != nil {
		return NewGenerationError("migrate", dir, "", err)
	}
	for _, f := range files {
		res.Files = append(res.Files, filepath.Join(dir, f))
	}
	return nil
}

func writeClient(ctx context.Context, cfg *Config, res *Result) error {
	g, err := newClientGenerator(cfg, res.Database)
	if err != nil {
		return err
	}
	files, err := g.files()
	if err != nil {
		return err
	}
	w := NewWriter(filepath.Join(cfg.Target, cfg.Package)).WithWorkers(cfg.Workers)
	if err := w.WriteAll(ctx, files); err != nil {
		return err
	}
	for _, f := range files {
		res.Files = append(res.Files, filepath.Join(cfg.Package, f.name))
	}
	res.Client = w.Metrics()
	return nil
}

// diffSnapshot compares db against the database derived from the
// snapshot of the previous run.
func diffSnapshot(cfg *Config, db *sqlserver.Database) (*relational.ValidationResult, error) {
	path := filepath.Join(cfg.Target, SnapshotFile)
	prev, err := load.File(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.Logger.Debug("no previous snapshot", "path", path)
		return nil, nil
	case err != nil:
		return nil, NewGenerationError("diff", SnapshotFile, "read previous snapshot", err)
	}
	// The snapshot holds the model after the identity transform.
	pcfg := *cfg
	pcfg.Identity = ""
	pcfg.Logger = relational.NopLogger()
	prevDB, err := Derive(prev, &pcfg)
	if err != nil {
		return nil, NewGenerationError("diff", SnapshotFile, "derive previous database", err)
	}
	diff := relational.ValidateDiff(prevDB.Database, db.Database, cfg.Diff...)
	for _, w := range diff.Warnings {
		cfg.Logger.Warn("schema change", "table", w.Table, "column", w.Column, "message", w.Message)
	}
	return diff, nil
}

func writeSnapshot(_ context.Context, cfg *Config, res *Result) error {
	if err := os.MkdirAll(cfg.Target, 0o755); err != nil {
		return NewGenerationError("snapshot", SnapshotFile, "create target directory", err)
	}
	f, err := os.Create(filepath.Join(cfg.Target, SnapshotFile))
	if err != nil {
		return NewGenerationError("snapshot", SnapshotFile, "", err)
	}
	if err := load.WriteSnapshot(f, res.Model); err != nil {
		f.Close()
		return NewGenerationError("snapshot", SnapshotFile, "", err)
	}
	if err := f.Close(); err != nil {
		return NewGenerationError("snapshot", SnapshotFile, "", err)
	}
	res.Files = append(res.Files, SnapshotFile)
	return nil
}
