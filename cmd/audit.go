package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/locksync/internal/audit"
	"github.com/example/locksync/internal/booking"
	"github.com/example/locksync/internal/directory"
	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var out string

	c := &cobra.Command{
		Use:   "audit",
		Short: "Export every code currently on every configured lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			dir, err := directory.Load(e.cfg.DirectoryPath)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := audit.WriteCodes(ctx, dir, e.vendor, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %d code entries to %s\n", n, out)
			return nil
		},
	}

	c.Flags().StringVar(&out, "out", "lock_audit.csv", "output CSV path")
	return c
}

func newCompareCmd() *cobra.Command {
	var out string

	c := &cobra.Command{
		Use:   "compare",
		Short: "Compare desired codes against the reconciliation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			rows, err := booking.LoadCSV(e.cfg.BookingsPath)
			if err != nil {
				return fmt.Errorf("load bookings: %w", err)
			}
			reservations := booking.Merge(rows, e.cfg.PlatformDomains)

			dir, err := directory.Load(e.cfg.DirectoryPath)
			if err != nil {
				return err
			}

			latest, err := e.log.Latest(ctx)
			if err != nil {
				return err
			}

			rep := audit.Compare(reservations, dir, latest)

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := rep.WriteCSV(f); err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, rep.Summary())
			fmt.Fprintf(os.Stdout, "report written to %s\n", out)
			return nil
		},
	}

	c.Flags().StringVar(&out, "out", "code_comparison.csv", "output CSV path")
	return c
}
