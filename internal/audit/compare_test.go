package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/example/locksync/internal/booking"
	"github.com/example/locksync/internal/codelog"
	"github.com/example/locksync/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var compareDir = &directory.Directory{
	Properties: map[string]directory.Property{
		"Streatham": {
			FrontDoorLockID: 16273050,
			Rooms:           map[string]int64{"Room 3": 16273051},
		},
	},
}

func compareReservation(ref string) booking.Reservation {
	return booking.Reservation{
		Reference: ref,
		GuestName: "Ann Smith",
		Property:  "Streatham",
		Room:      "Room 3",
		CheckIn:   time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		CheckOut:  time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompare(t *testing.T) {
	latest := map[codelog.Key]codelog.Outcome{
		{Reference: "123-456-789", Role: booking.RoleFrontDoor}: codelog.OutcomeCreated,
		{Reference: "123-456-789", Role: booking.RoleRoom}:      codelog.OutcomeFailed,
	}

	rep := Compare([]booking.Reservation{
		compareReservation("123-456-789"),
		compareReservation("222-333-444"), // never attempted
	}, compareDir, latest)

	assert.Equal(t, 1, rep.Correct)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Missing)
	require.Len(t, rep.Lines, 4)
}

func TestCompare_UnknownProperty(t *testing.T) {
	res := compareReservation("123-456-789")
	res.Property = "Atlantis"

	rep := Compare([]booking.Reservation{res}, compareDir, nil)
	require.Len(t, rep.Lines, 1)
	assert.Equal(t, StatusMissing, rep.Lines[0].Status)
	assert.Contains(t, rep.Lines[0].Issue, "directory")
}

func TestReport_WriteCSVAndSummary(t *testing.T) {
	latest := map[codelog.Key]codelog.Outcome{
		{Reference: "123-456-789", Role: booking.RoleFrontDoor}: codelog.OutcomeDuplicate,
		{Reference: "123-456-789", Role: booking.RoleRoom}:      codelog.OutcomeCreated,
	}
	rep := Compare([]booking.Reservation{compareReservation("123-456-789")}, compareDir, latest)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, "header plus one line per desired door")
	assert.Contains(t, lines[0], "reference")
	assert.Contains(t, rep.Summary(), "correct=2")
	assert.Contains(t, rep.Summary(), "rate=100%")
}
