package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/relgen/compiler/load"
)

func newSnapshotCmd() *cobra.Command {
	var modelPath, output string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the binary snapshot of a model",
		Long: `Snapshot converts a model document to a msgpack snapshot. Snapshots load
faster than YAML documents and are compared by "relgen diff".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := load.File(modelPath)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create snapshot: %w", err)
			}
			if err := load.WriteSnapshot(f, m); err != nil {
				f.Close()
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote snapshot of %s to %s\n", m.Name, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model file")
	cmd.Flags().StringVarP(&output, "output", "o", "model.msgpack", "Snapshot file")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
