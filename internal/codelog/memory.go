package codelog

import (
	"context"

	"github.com/example/locksync/internal/booking"
)

// Memory is an in-memory Store with the same latest-wins semantics as PG.
type Memory struct {
	entries []Entry
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) IsSatisfied(_ context.Context, ref string, role booking.Role) (bool, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.Reference == ref && e.Role == role {
			return e.Outcome.Authoritative(), nil
		}
	}
	return false, nil
}

func (m *Memory) Latest(_ context.Context) (map[Key]Outcome, error) {
	out := map[Key]Outcome{}
	for _, e := range m.entries {
		out[Key{Reference: e.Reference, Role: e.Role}] = e.Outcome
	}
	return out, nil
}

func (m *Memory) Compact(_ context.Context) (int64, error) {
	seen := map[Key]int{} // key -> index of newest entry
	for i, e := range m.entries {
		seen[Key{Reference: e.Reference, Role: e.Role}] = i
	}
	kept := make([]Entry, 0, len(seen))
	for i, e := range m.entries {
		if seen[Key{Reference: e.Reference, Role: e.Role}] == i {
			kept = append(kept, e)
		}
	}
	removed := int64(len(m.entries) - len(kept))
	m.entries = kept
	return removed, nil
}

// Entries exposes the raw log for assertions.
func (m *Memory) Entries() []Entry { return m.entries }
