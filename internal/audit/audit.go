// Package audit produces the operational reports: a dump of every code
// currently on every configured lock, a desired-vs-actual comparison against
// the reconciliation log, and the unlock-record export.
package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/example/locksync/internal/directory"
	"github.com/example/locksync/internal/ttlock"
)

type Lister interface {
	ListCodes(ctx context.Context, lockID int64) ([]ttlock.Code, error)
}

type RecordFetcher interface {
	UnlockRecords(ctx context.Context, lockID int64) ([]ttlock.UnlockRecord, error)
}

func msToISO(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

type namedLock struct {
	name string
	id   int64
}

// namedLocks flattens a property into its configured locks, front door
// first, rooms in name order, unfitted doors skipped.
func namedLocks(p directory.Property) []namedLock {
	var locks []namedLock
	if p.FrontDoorLockID != 0 {
		locks = append(locks, namedLock{name: "Front Door", id: p.FrontDoorLockID})
	}
	rooms := make([]string, 0, len(p.Rooms))
	for r := range p.Rooms {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	for _, r := range rooms {
		if id := p.Rooms[r]; id != 0 {
			locks = append(locks, namedLock{name: r, id: id})
		}
	}
	return locks
}

func sortedProperties(dir *directory.Directory) []string {
	names := make([]string, 0, len(dir.Properties))
	for n := range dir.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WriteCodes queries every configured lock and writes one CSV row per code
// found. A lock that cannot be queried is logged and skipped; the rest of the
// audit still completes.
func WriteCodes(ctx context.Context, dir *directory.Directory, v Lister, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "property", "lock_name", "lock_id", "code", "code_name", "code_id", "start", "end"}); err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	rows := 0
	for _, prop := range sortedProperties(dir) {
		for _, lk := range namedLocks(dir.Properties[prop]) {
			codes, err := v.ListCodes(ctx, lk.id)
			if err != nil {
				log.Printf("audit: %s / %s (lock %d): %v", prop, lk.name, lk.id, err)
				continue
			}
			for _, c := range codes {
				rec := []string{
					now, prop, lk.name, strconv.FormatInt(lk.id, 10),
					c.Code, c.Name, strconv.FormatInt(c.ID, 10),
					msToISO(c.StartDate), msToISO(c.EndDate),
				}
				if err := cw.Write(rec); err != nil {
					return rows, err
				}
				rows++
			}
		}
	}
	cw.Flush()
	return rows, cw.Error()
}

// WriteUnlockRecords exports recent unlock events for every front door lock.
func WriteUnlockRecords(ctx context.Context, dir *directory.Directory, v RecordFetcher, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"property", "lock_id", "record_id", "record_type", "success", "keyboard_pwd", "username", "lock_time", "server_time"}); err != nil {
		return 0, err
	}

	rows := 0
	for _, prop := range sortedProperties(dir) {
		lockID := dir.Properties[prop].FrontDoorLockID
		if lockID == 0 {
			continue
		}
		records, err := v.UnlockRecords(ctx, lockID)
		if err != nil {
			return rows, fmt.Errorf("unlock records for %s: %w", prop, err)
		}
		for _, r := range records {
			rec := []string{
				prop,
				strconv.FormatInt(lockID, 10),
				strconv.FormatInt(r.RecordID, 10),
				strconv.Itoa(r.RecordType),
				strconv.Itoa(r.Success),
				r.KeyboardPwd,
				r.Username,
				msToISO(r.LockDate),
				msToISO(r.ServerDate),
			}
			if err := cw.Write(rec); err != nil {
				return rows, err
			}
			rows++
		}
	}
	cw.Flush()
	return rows, cw.Error()
}
