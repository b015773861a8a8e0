package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/relgen/compiler/gen"
)

type loggerFunc func(*cobra.Command) *slog.Logger

func newGenerateCmd(logger loggerFunc) *cobra.Command {
	var (
		configPath string
		watch      bool
		identity   string
		flags      Config
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the database scripts and client of a model",
		Example: `  relgen generate -m company.yaml -o out
  relgen generate -m company.yaml -o out --client-package store --atlas postgres
  relgen generate --config relgen.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, optional := configPath, !cmd.Flags().Changed("config")
			cfg, err := LoadConfig(path, optional)
			if err != nil {
				return err
			}
			merge(cmd, cfg, &flags)
			if cmd.Flags().Changed("identity") {
				cfg.Identity = &identity
			}
			if cfg.Model == "" {
				return errors.New("missing model: set --model or model in the config file")
			}
			if cfg.Output == "" {
				cfg.Output = "."
			}
			log := logger(cmd)
			err = generate(cmd.Context(), cmd.OutOrStdout(), cfg, log)
			if !watch {
				return err
			}
			if err != nil {
				log.Error("generation failed", "error", err)
			}
			return watchModel(cmd.Context(), cfg.Model, log, func() error {
				return generate(cmd.Context(), cmd.OutOrStdout(), cfg, log)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", DefaultConfigFile, "Config file")
	f.StringVarP(&flags.Model, "model", "m", "", "Model file (YAML document or msgpack snapshot)")
	f.StringVarP(&flags.Output, "output", "o", "", "Output directory (default: current directory)")
	f.StringVar(&flags.Database, "database", "", "Database name of the scripts (default: model name)")
	f.StringVar(&identity, "identity", "Id", "Identity added to classes without one, empty to disable")
	f.BoolVar(&flags.Plural, "plural", false, "Pluralize table names")
	f.BoolVar(&flags.Cascade, "cascade", false, "Cascade deletes along composite associations")
	f.IntVar(&flags.Workers, "workers", 0, "Parallel file writers (default: GOMAXPROCS)")
	f.StringVar(&flags.Client.Package, "client-package", "", "Generate a Go client in this package")
	f.StringVar(&flags.Client.Runtime, "client-runtime", "", "Import path of the client runtime module")
	f.StringVar(&flags.Atlas.Dialect, "atlas", "", "Write a migration directory for postgres, mysql or sqlite")
	f.StringVar(&flags.Atlas.Format, "format", "", "Migration directory format: atlas, golang-migrate, goose, flyway, dbmate or liquibase")
	f.StringVar(&flags.Atlas.Version, "migration-version", "", "Migration version (default: current time)")
	f.StringVar(&flags.Script.Name, "script", "", "File name of the single script (default: database.sql)")
	f.BoolVar(&flags.Script.KeepIfExists, "keep-if-exists", false, "Omit the DROP statements")
	f.BoolVar(&flags.Script.SkipConstraints, "skip-constraints", false, "Omit the key constraints")
	f.StringSliceVar(&flags.Enable, "feature", nil, "Enable a feature, e.g. schema/snapshot")
	f.StringSliceVar(&flags.Disable, "disable", nil, "Disable a feature, e.g. sql/files")
	f.BoolVarP(&watch, "watch", "w", false, "Regenerate when the model file changes")
	return cmd
}

// merge overrides cfg with the flags set on the command line.
func merge(cmd *cobra.Command, cfg, flags *Config) {
	changed := cmd.Flags().Changed
	if changed("model") {
		cfg.Model = flags.Model
	}
	if changed("output") {
		cfg.Output = flags.Output
	}
	if changed("database") {
		cfg.Database = flags.Database
	}
	if changed("plural") {
		cfg.Plural = flags.Plural
	}
	if changed("cascade") {
		cfg.Cascade = flags.Cascade
	}
	if changed("workers") {
		cfg.Workers = flags.Workers
	}
	if changed("client-package") {
		cfg.Client.Package = flags.Client.Package
	}
	if changed("client-runtime") {
		cfg.Client.Runtime = flags.Client.Runtime
	}
	if changed("atlas") {
		cfg.Atlas.Dialect = flags.Atlas.Dialect
	}
	if changed("format") {
		cfg.Atlas.Format = flags.Atlas.Format
	}
	if changed("migration-version") {
		cfg.Atlas.Version = flags.Atlas.Version
	}
	if changed("script") {
		cfg.Script.Name = flags.Script.Name
	}
	if changed("keep-if-exists") {
		cfg.Script.KeepIfExists = flags.Script.KeepIfExists
	}
	if changed("skip-constraints") {
		cfg.Script.SkipConstraints = flags.Script.SkipConstraints
	}
	cfg.Enable = append(cfg.Enable, flags.Enable...)
	cfg.Disable = append(cfg.Disable, flags.Disable...)
}

func generate(ctx context.Context, out io.Writer, cfg *Config, log *slog.Logger) error {
	start := time.Now()
	opts := append(cfg.Options(), gen.WithLogger(log))
	res, err := gen.GenerateFile(ctx, cfg.Model, opts...)
	if err != nil {
		var verr *gen.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprint(out, verr.Result.String(), "\n")
		}
		return err
	}
	fmt.Fprintf(out, "generated %d files for database %s in %s (%s)\n",
		len(res.Files), res.Database.Name, cfg.Output, time.Since(start).Round(time.Millisecond))
	return nil
}

// watchModel calls run when the model file is written, until ctx is
// done. The directory is watched since editors often replace files
// instead of writing them.
func watchModel(ctx context.Context, path string, log *slog.Logger, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	log.Info("watching model", "path", path)

	const debounce = 100 * time.Millisecond
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			log.Debug("model changed", "path", path)
			if err := run(); err != nil {
				log.Error("generation failed", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}
