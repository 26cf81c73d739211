package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"docvault/internal/database/migration"
)

var errInconsistent = errors.New("records and stored files disagree")

func newRootCmd(open envFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "docctl",
		Short:         "Maintenance commands for the document store",
		SilenceUsage:  true,
	}
	root.AddCommand(
		newMigrateCmd(open),
		newVerifyCmd(open),
		newStatsCmd(open),
	)
	return root
}

// withEnv opens the environment for the duration of fn.
func withEnv(cmd *cobra.Command, open envFactory, fn func(*env) error) error {
	e, closeEnv, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer closeEnv()
	return fn(e)
}

func newMigrateCmd(open envFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the documents table and its indexes if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(e *env) error {
				if err := migration.EnsureMigrated(cmd.Context(), e.db, e.log, e.dbHost); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newVerifyCmd(open envFactory) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare document records with the files on disk",
		Long: `Checks that every record has its file with the recorded size and
lists files that no record points to. Exits non-zero when anything disagrees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(e *env) error {
				report, err := e.svc.Verify(cmd.Context())
				if err != nil {
					return err
				}
				if !quiet {
					if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				}
				if !report.Consistent() {
					return fmt.Errorf("%w: %d missing, %d size mismatch, %d orphaned",
						errInconsistent, report.MissingFiles, report.SizeMismatch, len(report.OrphanedFiles))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report through the exit status")
	return cmd
}

func newStatsCmd(open envFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document totals per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(e *env) error {
				o, err := e.svc.Overview(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), o)
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
