// Package booking carries the merged reservation model and the eligibility
// rules that decide which lock codes still need to be created.
package booking

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Role is the door a code targets.
type Role string

const (
	RoleFrontDoor Role = "front_door"
	RoleRoom      Role = "room"

	// RoleNone marks log entries recorded before a door could be resolved
	// (bad reference, property missing from the directory).
	RoleNone Role = "none"
)

// Row is one calendar entry as exported by the ical fetcher. Several rows may
// share a reference when a stay spans rooms or feeds overlap.
type Row struct {
	Reference    string
	GuestName    string
	Property     string
	Room         string
	CheckIn      time.Time
	CheckOut     time.Time
	ChannelEmail string
}

// Reservation is one merged record per distinct reference.
type Reservation struct {
	Reference       string
	GuestName       string
	Property        string
	Room            string // empty means front door only
	CheckIn         time.Time
	CheckOut        time.Time
	PlatformBooking bool
}

var ErrShortCode = errors.New("reference has fewer than 4 digits")

// AccessCode derives the keypad code from the reference: digits only, first
// four. Deterministic, so re-runs program the same code.
func (r Reservation) AccessCode() (string, error) {
	var digits []rune
	for _, c := range r.Reference {
		if unicode.IsDigit(c) {
			digits = append(digits, c)
			if len(digits) == 4 {
				return string(digits), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrShortCode, r.Reference)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, error) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

var bookingCols = []string{"reservation_code", "guest_name", "property_location", "door_number", "check_in", "check_out", "channel_email"}

// LoadCSV reads the bookings file written by the calendar fetcher.
// Rows with a missing reference or unparseable dates are dropped.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, c := range bookingCols[:6] {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("bookings: missing column %q", c)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := Row{
			Reference:    field(rec, "reservation_code"),
			GuestName:    field(rec, "guest_name"),
			Property:     field(rec, "property_location"),
			Room:         field(rec, "door_number"),
			ChannelEmail: field(rec, "channel_email"),
		}
		if row.Reference == "" {
			continue
		}
		ci, err := parseDate(field(rec, "check_in"))
		if err != nil {
			continue
		}
		co, err := parseDate(field(rec, "check_out"))
		if err != nil {
			continue
		}
		row.CheckIn, row.CheckOut = ci, co
		rows = append(rows, row)
	}
	return rows, nil
}

// Merge folds calendar rows into one reservation per reference: earliest
// check-in, latest check-out, first non-empty descriptive fields, and the
// platform flag set when any row carries a recognized channel address.
func Merge(rows []Row, platformDomains []string) []Reservation {
	byRef := map[string]*Reservation{}
	var order []string

	for _, row := range rows {
		res, ok := byRef[row.Reference]
		if !ok {
			res = &Reservation{
				Reference: row.Reference,
				GuestName: row.GuestName,
				Property:  row.Property,
				Room:      row.Room,
				CheckIn:   row.CheckIn,
				CheckOut:  row.CheckOut,
			}
			byRef[row.Reference] = res
			order = append(order, row.Reference)
		} else {
			if row.CheckIn.Before(res.CheckIn) {
				res.CheckIn = row.CheckIn
			}
			if row.CheckOut.After(res.CheckOut) {
				res.CheckOut = row.CheckOut
			}
			if res.GuestName == "" {
				res.GuestName = row.GuestName
			}
			if res.Property == "" {
				res.Property = row.Property
			}
			if res.Room == "" {
				res.Room = row.Room
			}
		}
		if isPlatformAddress(row.ChannelEmail, platformDomains) {
			res.PlatformBooking = true
		}
	}

	sort.Strings(order)
	out := make([]Reservation, 0, len(order))
	for _, ref := range order {
		out = append(out, *byRef[ref])
	}
	return out
}

func isPlatformAddress(email string, domains []string) bool {
	if email == "" {
		return false
	}
	email = strings.ToLower(email)
	for _, d := range domains {
		if strings.Contains(email, d) {
			return true
		}
	}
	return false
}
