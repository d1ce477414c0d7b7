package booking

import (
	"time"

	"github.com/example/locksync/internal/directory"
	"github.com/example/locksync/internal/paylog"
)

// LockTarget is one (reservation, door) pair ready to attempt.
type LockTarget struct {
	Reservation Reservation
	Role        Role
	LockID      int64
}

// Fault is a target that can never succeed this run: a directory gap.
type Fault struct {
	Role Role
	Err  error
}

type SkipReason string

const (
	SkipNone    SkipReason = ""
	SkipStale   SkipReason = "stale"     // checked out before now
	SkipHorizon SkipReason = "too_early" // check-in beyond the horizon
	SkipUnpaid  SkipReason = "unpaid"    // platform booking without payment confirmation
	SkipDone    SkipReason = "done"      // nothing left to do for this reservation
)

// Plan is the evaluator's verdict for one reservation.
type Plan struct {
	Skip    SkipReason
	Targets []LockTarget
	Faults  []Fault
}

type Planner struct {
	Dir     *directory.Directory
	Horizon time.Duration
	Now     func() time.Time
}

// Plan applies the eligibility rules in order: stale, beyond horizon, unpaid
// platform booking, then per-door need. satisfied reports whether the log
// already holds an authoritative success for a (reference, role) pair.
func (p Planner) Plan(res Reservation, paid paylog.PaidSet, satisfied func(ref string, role Role) bool) Plan {
	now := p.Now()

	if res.CheckOut.Before(now) {
		return Plan{Skip: SkipStale}
	}
	if res.CheckIn.After(now.Add(p.Horizon)) {
		return Plan{Skip: SkipHorizon}
	}
	if res.PlatformBooking && !paid.Contains(res.Reference) {
		return Plan{Skip: SkipUnpaid}
	}

	prop, ok := p.Dir.Property(res.Property)
	if !ok {
		return Plan{Faults: []Fault{{Role: RoleNone, Err: directory.ErrUnknownProperty}}}
	}

	var plan Plan
	if prop.FrontDoorLockID != 0 && !satisfied(res.Reference, RoleFrontDoor) {
		plan.Targets = append(plan.Targets, LockTarget{Reservation: res, Role: RoleFrontDoor, LockID: prop.FrontDoorLockID})
	}
	if res.Room != "" && !satisfied(res.Reference, RoleRoom) {
		lockID, err := p.Dir.RoomLock(res.Property, res.Room)
		switch {
		case err != nil:
			plan.Faults = append(plan.Faults, Fault{Role: RoleRoom, Err: err})
		case lockID != 0:
			plan.Targets = append(plan.Targets, LockTarget{Reservation: res, Role: RoleRoom, LockID: lockID})
		}
	}

	if len(plan.Targets) == 0 && len(plan.Faults) == 0 {
		plan.Skip = SkipDone
	}
	return plan
}
