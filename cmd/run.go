package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/locksync/internal/booking"
	"github.com/example/locksync/internal/codelog"
	"github.com/example/locksync/internal/directory"
	"github.com/example/locksync/internal/paylog"
	"github.com/example/locksync/internal/reconcile"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var dryRun bool

	c := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass: create every still-needed door code",
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

			paid, err := paylog.Load(e.cfg.PaymentsPath)
			if err != nil {
				return fmt.Errorf("load payments: %w", err)
			}

			dir, err := directory.Load(e.cfg.DirectoryPath)
			if err != nil {
				return err
			}

			planner := booking.Planner{
				Dir:     dir,
				Horizon: time.Duration(e.cfg.HorizonDays) * 24 * time.Hour,
				Now:     time.Now,
			}

			if dryRun {
				return printPlan(ctx, e, reservations, paid, planner)
			}

			runner := &reconcile.Runner{
				Reservations: reservations,
				Paid:         paid,
				Planner:      planner,
				Vendor:       e.vendor,
				Log:          e.log,
				MaxAttempts:  e.cfg.MaxAttempts,
			}
			sum, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, sum)
			return nil
		},
	}

	c.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be attempted without calling the vendor")
	return c
}

func printPlan(ctx context.Context, e *env, reservations []booking.Reservation, paid paylog.PaidSet, planner booking.Planner) error {
	latest, err := e.log.Latest(ctx)
	if err != nil {
		return err
	}
	satisfied := codelog.SatisfiedSet(latest)
	isSatisfied := func(ref string, role booking.Role) bool {
		return satisfied[codelog.Key{Reference: ref, Role: role}]
	}

	for _, res := range reservations {
		plan := planner.Plan(res, paid, isSatisfied)
		if plan.Skip != booking.SkipNone {
			fmt.Fprintf(os.Stdout, "%s skip (%s)\n", res.Reference, plan.Skip)
			continue
		}
		for _, t := range plan.Targets {
			code, err := res.AccessCode()
			if err != nil {
				code = "????"
			}
			fmt.Fprintf(os.Stdout, "%s %s lock=%d code=%s %s..%s\n",
				res.Reference, t.Role, t.LockID, code,
				res.CheckIn.Format("2006-01-02"), res.CheckOut.Format("2006-01-02"))
		}
		for _, f := range plan.Faults {
			fmt.Fprintf(os.Stdout, "%s %s FAULT: %v\n", res.Reference, f.Role, f.Err)
		}
	}
	return nil
}
