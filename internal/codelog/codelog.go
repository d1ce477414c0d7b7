// Package codelog is the append-only record of every code-creation attempt
// and the engine's sole source of truth for idempotency across runs. Rows are
// never mutated; the newest created/duplicate entry per (reference, role)
// permanently satisfies that target.
package codelog

import (
	"context"
	"time"

	"github.com/example/locksync/internal/booking"
	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Authoritative reports whether this outcome permanently satisfies a target.
func (o Outcome) Authoritative() bool {
	return o == OutcomeCreated || o == OutcomeDuplicate
}

type Entry struct {
	Time      time.Time
	RunID     uuid.UUID
	Reference string
	Role      booking.Role
	Outcome   Outcome
	Detail    string // raw vendor response or error text
}

type Key struct {
	Reference string
	Role      booking.Role
}

type Store interface {
	// Append durably adds one entry. Atomic: a crash immediately after leaves
	// the fact visible to the next run.
	Append(ctx context.Context, e Entry) error
	// IsSatisfied reports whether the newest entry for (reference, role) is
	// authoritative.
	IsSatisfied(ctx context.Context, ref string, role booking.Role) (bool, error)
	// Latest returns the newest outcome per (reference, role).
	Latest(ctx context.Context) (map[Key]Outcome, error)
	// Compact drops all but the newest entry per pair and returns the number
	// of rows removed. Offline maintenance only.
	Compact(ctx context.Context) (int64, error)
}

// SatisfiedSet folds a Latest() snapshot into the set of satisfied targets.
func SatisfiedSet(latest map[Key]Outcome) map[Key]bool {
	out := make(map[Key]bool, len(latest))
	for k, o := range latest {
		if o.Authoritative() {
			out[k] = true
		}
	}
	return out
}
