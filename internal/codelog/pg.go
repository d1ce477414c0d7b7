package codelog

import (
	"context"

	"github.com/example/locksync/internal/booking"
	"github.com/example/locksync/internal/db"
)

// PG is the postgres-backed log.
type PG struct{ db *db.DB }

func NewPG(d *db.DB) *PG { return &PG{db: d} }

func (p *PG) Append(ctx context.Context, e Entry) error {
	return p.db.Exec(ctx, `
INSERT INTO code_log (logged_at, run_id, reference, lock_role, outcome, detail)
VALUES ($1,$2,$3,$4,$5,$6)`,
		e.Time, e.RunID, e.Reference, string(e.Role), string(e.Outcome), e.Detail)
}

func (p *PG) IsSatisfied(ctx context.Context, ref string, role booking.Role) (bool, error) {
	var outcome string
	err := p.db.QueryRow(ctx, `
SELECT outcome FROM code_log
WHERE reference=$1 AND lock_role=$2
ORDER BY id DESC LIMIT 1`, ref, string(role)).Scan(&outcome)
	if db.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return Outcome(outcome).Authoritative(), nil
}

func (p *PG) Latest(ctx context.Context) (map[Key]Outcome, error) {
	rows, err := p.db.Query(ctx, `
SELECT DISTINCT ON (reference, lock_role) reference, lock_role, outcome
FROM code_log
ORDER BY reference, lock_role, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Key]Outcome{}
	for rows.Next() {
		var ref, role, outcome string
		if err := rows.Scan(&ref, &role, &outcome); err != nil {
			return nil, err
		}
		out[Key{Reference: ref, Role: booking.Role(role)}] = Outcome(outcome)
	}
	return out, rows.Err()
}

func (p *PG) Compact(ctx context.Context) (int64, error) {
	return p.db.ExecRows(ctx, `
DELETE FROM code_log
WHERE id NOT IN (
    SELECT MAX(id) FROM code_log GROUP BY reference, lock_role
)`)
}
