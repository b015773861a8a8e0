package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/sqlserver"
	"github.com/syssam/relgen/sqlserver/tsql"
)

func newInspectCmd(logger loggerFunc) *cobra.Command {
	var (
		modelPath  string
		identity   string
		plural     bool
		procedures bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the tables of a model in emission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := load.File(modelPath)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}
			opts := []gen.Option{
				gen.WithTarget("."),
				gen.WithIdentity(identity, model.Integer),
				gen.WithLogger(logger(cmd)),
			}
			if plural {
				opts = append(opts, gen.WithSQLServerOptions(sqlserver.WithNameProvider(sqlserver.PluralNameProvider{})))
			}
			cfg, err := gen.NewConfig(opts...)
			if err != nil {
				return err
			}
			db, err := gen.Derive(m, cfg)
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), db, procedures)
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model file (YAML document or msgpack snapshot)")
	cmd.Flags().StringVar(&identity, "identity", "Id", "Identity added to classes without one, empty to disable")
	cmd.Flags().BoolVar(&plural, "plural", false, "Pluralize table names")
	cmd.Flags().BoolVarP(&procedures, "procedures", "p", false, "Print the stored procedures")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

// inspect prints every table with its columns and the foreign keys
// referencing it.
func inspect(out io.Writer, db *sqlserver.Database, procedures bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "database %s\n", db.Name)
	for _, t := range db.Tables {
		fmt.Fprintf(tw, "\ntable %s\n", t.Name)
		for _, c := range t.OwnColumns {
			var attrs []string
			if c.IsIdentity {
				attrs = append(attrs, "identity")
			}
			if !c.IsNullable() {
				attrs = append(attrs, "not null")
			}
			if c.IsForeignKey {
				if p, ok := db.Principal(c); ok {
					attrs = append(attrs, "references "+p.Name)
				}
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, tsql.ColumnType(c), strings.Join(attrs, ", "))
		}
		for _, c := range t.DependentColumns {
			fmt.Fprintf(tw, "  <- %s.%s\t\t\n", c.Table.Name, c.Name)
		}
	}
	if len(db.TableTypes) > 0 {
		fmt.Fprintln(tw)
		for _, t := range db.TableTypes {
			fmt.Fprintf(tw, "type %s\t%d columns\t\n", t.Name, len(t.OwnColumns))
		}
	}
	if procedures && len(db.Procedures) > 0 {
		fmt.Fprintln(tw)
		for _, p := range db.Procedures {
			names := make([]string, len(p.Parameters))
			for i, param := range p.Parameters {
				names[i] = "@" + param.Name
				if param.IsOutput() {
					names[i] += " OUTPUT"
				}
			}
			fmt.Fprintf(tw, "procedure %s\t%s\t%s\n", p.Name, p.QueryType, strings.Join(names, ", "))
		}
	}
	return tw.Flush()
}
