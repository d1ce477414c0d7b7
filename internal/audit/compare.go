package audit

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/example/locksync/internal/booking"
	"github.com/example/locksync/internal/codelog"
	"github.com/example/locksync/internal/directory"
)

type Status string

const (
	StatusCorrect Status = "CORRECT"
	StatusMissing Status = "MISSING"
	StatusFailed  Status = "FAILED"
)

type Line struct {
	Reference string
	Guest     string
	Property  string
	Room      string
	Role      booking.Role
	Status    Status
	Issue     string
}

type Report struct {
	Lines   []Line
	Correct int
	Missing int
	Failed  int
}

// Compare joins the desired state (every configured door of every current
// reservation) against the log's newest outcome per target.
func Compare(reservations []booking.Reservation, dir *directory.Directory, latest map[codelog.Key]codelog.Outcome) Report {
	var rep Report

	add := func(res booking.Reservation, role booking.Role, room string) {
		line := Line{
			Reference: res.Reference,
			Guest:     res.GuestName,
			Property:  res.Property,
			Room:      room,
			Role:      role,
		}
		outcome, ok := latest[codelog.Key{Reference: res.Reference, Role: role}]
		switch {
		case !ok:
			line.Status, line.Issue = StatusMissing, "never attempted"
			rep.Missing++
		case outcome.Authoritative():
			line.Status = StatusCorrect
			rep.Correct++
		default:
			line.Status, line.Issue = StatusFailed, "last attempt failed"
			rep.Failed++
		}
		rep.Lines = append(rep.Lines, line)
	}

	for _, res := range reservations {
		prop, ok := dir.Property(res.Property)
		if !ok {
			rep.Lines = append(rep.Lines, Line{
				Reference: res.Reference,
				Guest:     res.GuestName,
				Property:  res.Property,
				Room:      res.Room,
				Status:    StatusMissing,
				Issue:     "property not in lock directory",
			})
			rep.Missing++
			continue
		}
		if prop.FrontDoorLockID != 0 {
			add(res, booking.RoleFrontDoor, "")
		}
		if res.Room != "" && prop.Rooms[res.Room] != 0 {
			add(res, booking.RoleRoom, res.Room)
		}
	}
	return rep
}

func (r Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"reference", "guest", "property", "room", "role", "status", "issue"}); err != nil {
		return err
	}
	for _, l := range r.Lines {
		if err := cw.Write([]string{l.Reference, l.Guest, l.Property, l.Room, string(l.Role), string(l.Status), l.Issue}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r Report) Summary() string {
	total := r.Correct + r.Missing + r.Failed
	rate := 0
	if total > 0 {
		rate = 100 * r.Correct / total
	}
	return fmt.Sprintf("desired=%d correct=%d missing=%d failed=%d rate=%d%%", total, r.Correct, r.Missing, r.Failed, rate)
}
