// Package reconcile drives one engine run: evaluate every merged reservation,
// attempt the still-needed lock codes through the vendor client, and record
// every outcome in the reconciliation log. One reservation's failure never
// aborts the run.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/locksync/internal/booking"
	"github.com/example/locksync/internal/codelog"
	"github.com/example/locksync/internal/paylog"
	"github.com/example/locksync/internal/ttlock"
	"github.com/google/uuid"
)

// Vendor is the one call the engine needs from the lock API.
type Vendor interface {
	CreateCode(ctx context.Context, req ttlock.CreateRequest) (ttlock.Result, error)
}

type Summary struct {
	Evaluated      int
	Eligible       int
	SkippedStale   int
	SkippedHorizon int
	SkippedUnpaid  int
	SkippedDone    int
	Succeeded      int // targets that reached created or duplicate
	Failed         int // targets that exhausted retries or hit a fatal error
}

func (s Summary) String() string {
	return fmt.Sprintf("evaluated=%d eligible=%d skipped_stale=%d skipped_horizon=%d skipped_unpaid=%d skipped_done=%d succeeded=%d failed=%d",
		s.Evaluated, s.Eligible, s.SkippedStale, s.SkippedHorizon, s.SkippedUnpaid, s.SkippedDone, s.Succeeded, s.Failed)
}

type Runner struct {
	Reservations []booking.Reservation
	Paid         paylog.PaidSet
	Planner      booking.Planner
	Vendor       Vendor
	Log          codelog.Store
	MaxAttempts  int
	Now          func() time.Time
}

// Run processes reservations sequentially and independently. The satisfied
// view is loaded once up front; entries appended during the run also count,
// so a duplicate row within one run cannot trigger a second attempt.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	runID := uuid.New()

	latest, err := r.Log.Latest(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load reconciliation log: %w", err)
	}
	satisfied := codelog.SatisfiedSet(latest)
	isSatisfied := func(ref string, role booking.Role) bool {
		return satisfied[codelog.Key{Reference: ref, Role: role}]
	}

	var sum Summary
	for _, res := range r.Reservations {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Evaluated++

		plan := r.Planner.Plan(res, r.Paid, isSatisfied)
		switch plan.Skip {
		case booking.SkipStale:
			sum.SkippedStale++
			continue
		case booking.SkipHorizon:
			sum.SkippedHorizon++
			continue
		case booking.SkipUnpaid:
			log.Printf("reconcile: %s skipped - unpaid platform booking", res.Reference)
			sum.SkippedUnpaid++
			continue
		case booking.SkipDone:
			sum.SkippedDone++
			continue
		}
		sum.Eligible++

		code, err := res.AccessCode()
		if err != nil {
			// fatal for the whole reservation, informational in the log
			log.Printf("reconcile: %s: %v", res.Reference, err)
			r.append(ctx, runID, res.Reference, booking.RoleNone, codelog.OutcomeFailed, err.Error())
			sum.Failed++
			continue
		}

		for _, fault := range plan.Faults {
			log.Printf("reconcile: %s/%s: %v", res.Reference, fault.Role, fault.Err)
			r.append(ctx, runID, res.Reference, fault.Role, codelog.OutcomeFailed, fault.Err.Error())
			sum.Failed++
		}

		for _, target := range plan.Targets {
			if r.attemptTarget(ctx, runID, target, code) {
				satisfied[codelog.Key{Reference: res.Reference, Role: target.Role}] = true
				sum.Succeeded++
			} else {
				sum.Failed++
			}
		}
	}
	return sum, nil
}

// attemptTarget runs the per-target state machine: a bounded retry loop over
// transient vendor failures, terminal on created/duplicate or exhaustion.
// Exactly one log entry is appended regardless of attempt count.
func (r *Runner) attemptTarget(ctx context.Context, runID uuid.UUID, target booking.LockTarget, code string) bool {
	res := target.Reservation
	req := ttlock.CreateRequest{
		LockID:    target.LockID,
		Code:      code,
		GuestName: res.GuestName,
		Label:     targetLabel(target),
		Reference: res.Reference,
		Start:     res.CheckIn,
		End:       res.CheckOut,
	}

	var lastDetail string
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		result, err := r.Vendor.CreateCode(ctx, req)
		if err != nil {
			// credential failure: the call was never made, retrying without a
			// token cannot help
			log.Printf("reconcile: %s/%s: %v", res.Reference, target.Role, err)
			r.append(ctx, runID, res.Reference, target.Role, codelog.OutcomeFailed, err.Error())
			return false
		}

		switch result.Outcome {
		case ttlock.OutcomeCreated:
			log.Printf("reconcile: %s/%s code %s created on lock %d", res.Reference, target.Role, code, target.LockID)
			r.append(ctx, runID, res.Reference, target.Role, codelog.OutcomeCreated, result.Detail)
			return true
		case ttlock.OutcomeDuplicate:
			log.Printf("reconcile: %s/%s code %s already on lock %d", res.Reference, target.Role, code, target.LockID)
			r.append(ctx, runID, res.Reference, target.Role, codelog.OutcomeDuplicate, result.Detail)
			return true
		default:
			lastDetail = result.Detail
			log.Printf("reconcile: %s/%s attempt %d/%d failed: %s", res.Reference, target.Role, attempt, r.MaxAttempts, result.Detail)
		}
	}

	r.append(ctx, runID, res.Reference, target.Role, codelog.OutcomeFailed, lastDetail)
	return false
}

func (r *Runner) append(ctx context.Context, runID uuid.UUID, ref string, role booking.Role, outcome codelog.Outcome, detail string) {
	err := r.Log.Append(ctx, codelog.Entry{
		Time:      r.Now(),
		RunID:     runID,
		Reference: ref,
		Role:      role,
		Outcome:   outcome,
		Detail:    detail,
	})
	if err != nil {
		// the attempt happened either way; at worst the next run re-attempts
		// and the vendor answers duplicate
		log.Printf("reconcile: append log entry for %s/%s: %v", ref, role, err)
	}
}

func targetLabel(t booking.LockTarget) string {
	if t.Role == booking.RoleFrontDoor {
		return "Front Door " + t.Reservation.Property
	}
	return t.Reservation.Property + " " + t.Reservation.Room
}
