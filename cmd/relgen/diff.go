package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver"
)

// errBreakingChanges is returned by diff when the comparison has errors.
var errBreakingChanges = errors.New("breaking schema changes")

func newDiffCmd(logger loggerFunc) *cobra.Command {
	var (
		from, to      string
		identity      string
		dropTable     bool
		dropColumn    bool
		nullToNotNull bool
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Report the schema changes between two versions of a model",
		Long: `Diff derives the databases of two versions of a model and reports the
changes that break existing data or callers as errors, and the changes that
may fail on existing rows as warnings. It fails when there are errors.`,
		Example: `  relgen diff --from out/model.msgpack --to company.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gen.NewConfig(
				gen.WithTarget("."),
				gen.WithIdentity(identity, model.Integer),
				gen.WithLogger(logger(cmd)),
			)
			if err != nil {
				return err
			}
			derive := func(path string) (*sqlserver.Database, error) {
				m, err := load.File(path)
				if err != nil {
					return nil, fmt.Errorf("failed to load model: %w", err)
				}
				return gen.Derive(m, cfg)
			}
			prev, err := derive(from)
			if err != nil {
				return err
			}
			cur, err := derive(to)
			if err != nil {
				return err
			}
			var opts []relational.DiffOption
			if dropTable {
				opts = append(opts, relational.AllowDropTable())
			}
			if dropColumn {
				opts = append(opts, relational.AllowDropColumn())
			}
			if nullToNotNull {
				opts = append(opts, relational.AllowNullToNotNull())
			}
			res := relational.ValidateDiff(prev.Database, cur.Database, opts...)
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
			if res.HasErrors() {
				return fmt.Errorf("%w: %d errors", errBreakingChanges, len(res.Errors))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&from, "from", "", "Previous model file")
	f.StringVar(&to, "to", "", "Current model file")
	f.StringVar(&identity, "identity", "Id", "Identity added to classes without one, empty to disable")
	f.BoolVar(&dropTable, "allow-drop-table", false, "Report dropped tables as warnings")
	f.BoolVar(&dropColumn, "allow-drop-column", false, "Report dropped columns as warnings")
	f.BoolVar(&nullToNotNull, "allow-null-to-not-null", false, "Report columns becoming NOT NULL as warnings")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
