package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/example/locksync/internal/directory"
	"github.com/example/locksync/internal/paylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDir = &directory.Directory{
	Properties: map[string]directory.Property{
		"Streatham": {
			FrontDoorLockID: 16273050,
			Rooms:           map[string]int64{"Room 3": 16273051, "Room 4": 0},
		},
		"Annex": {
			// rooms only, no front door lock
			Rooms: map[string]int64{"Room 1": 555},
		},
	},
}

func testPlanner(now time.Time) Planner {
	return Planner{
		Dir:     testDir,
		Horizon: 30 * 24 * time.Hour,
		Now:     func() time.Time { return now },
	}
}

func neverSatisfied(string, Role) bool { return false }

func testReservation() Reservation {
	return Reservation{
		Reference: "123-456-789",
		GuestName: "Ann Smith",
		Property:  "Streatham",
		Room:      "Room 3",
		CheckIn:   day("2026-09-02"),
		CheckOut:  day("2026-09-05"),
	}
}

func TestPlan_BothTargets(t *testing.T) {
	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(testReservation(), paylog.PaidSet{}, neverSatisfied)

	require.Equal(t, SkipNone, plan.Skip)
	require.Len(t, plan.Targets, 2)
	assert.Equal(t, RoleFrontDoor, plan.Targets[0].Role)
	assert.Equal(t, int64(16273050), plan.Targets[0].LockID)
	assert.Equal(t, RoleRoom, plan.Targets[1].Role)
	assert.Equal(t, int64(16273051), plan.Targets[1].LockID)
	assert.Empty(t, plan.Faults)
}

func TestPlan_StaleBooking(t *testing.T) {
	p := testPlanner(day("2026-10-01"))
	plan := p.Plan(testReservation(), paylog.PaidSet{}, neverSatisfied)
	assert.Equal(t, SkipStale, plan.Skip)
	assert.Empty(t, plan.Targets)
}

func TestPlan_BeyondHorizon(t *testing.T) {
	p := testPlanner(day("2026-06-01"))
	plan := p.Plan(testReservation(), paylog.PaidSet{}, neverSatisfied)
	assert.Equal(t, SkipHorizon, plan.Skip)
}

func TestPlan_UnpaidPlatformBooking(t *testing.T) {
	res := testReservation()
	res.Reference = "555-555-555"
	res.PlatformBooking = true

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{}, neverSatisfied)
	assert.Equal(t, SkipUnpaid, plan.Skip, "no code before payment confirmation, even with check-in imminent")
	assert.Empty(t, plan.Targets)
}

func TestPlan_PaidPlatformBooking(t *testing.T) {
	res := testReservation()
	res.PlatformBooking = true

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{"123-456-789": true}, neverSatisfied)
	assert.Equal(t, SkipNone, plan.Skip)
	assert.Len(t, plan.Targets, 2)
}

func TestPlan_PartiallySatisfied(t *testing.T) {
	p := testPlanner(day("2026-09-01"))
	frontDone := func(ref string, role Role) bool { return role == RoleFrontDoor }

	plan := p.Plan(testReservation(), paylog.PaidSet{}, frontDone)
	require.Len(t, plan.Targets, 1, "front door already authoritative, only the room is re-attempted")
	assert.Equal(t, RoleRoom, plan.Targets[0].Role)
}

func TestPlan_FullySatisfied(t *testing.T) {
	p := testPlanner(day("2026-09-01"))
	allDone := func(string, Role) bool { return true }

	plan := p.Plan(testReservation(), paylog.PaidSet{}, allDone)
	assert.Equal(t, SkipDone, plan.Skip)
}

func TestPlan_UnknownProperty(t *testing.T) {
	res := testReservation()
	res.Property = "Atlantis"

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{}, neverSatisfied)
	require.Len(t, plan.Faults, 1)
	assert.True(t, errors.Is(plan.Faults[0].Err, directory.ErrUnknownProperty))
	assert.Empty(t, plan.Targets)
}

func TestPlan_UnmappedRoom(t *testing.T) {
	res := testReservation()
	res.Room = "Room 99"

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{}, neverSatisfied)
	require.Len(t, plan.Targets, 1, "front door still eligible")
	assert.Equal(t, RoleFrontDoor, plan.Targets[0].Role)
	require.Len(t, plan.Faults, 1)
	assert.Equal(t, RoleRoom, plan.Faults[0].Role)
	assert.True(t, errors.Is(plan.Faults[0].Err, directory.ErrUnknownRoom))
}

func TestPlan_RoomWithoutLockFitted(t *testing.T) {
	res := testReservation()
	res.Room = "Room 4" // present in the directory with lock id 0

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{}, neverSatisfied)
	require.Len(t, plan.Targets, 1)
	assert.Equal(t, RoleFrontDoor, plan.Targets[0].Role)
	assert.Empty(t, plan.Faults, "an unfitted door is not a fault")
}

func TestPlan_FrontDoorOnlyReservation(t *testing.T) {
	res := testReservation()
	res.Room = ""

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{}, neverSatisfied)
	require.Len(t, plan.Targets, 1)
	assert.Equal(t, RoleFrontDoor, plan.Targets[0].Role)
}

func TestPlan_NoLocksConfigured(t *testing.T) {
	res := testReservation()
	res.Property = "Annex"
	res.Room = "" // Annex has no front door lock and the stay names no room

	p := testPlanner(day("2026-09-01"))
	plan := p.Plan(res, paylog.PaidSet{}, neverSatisfied)
	assert.Equal(t, SkipDone, plan.Skip)
}
