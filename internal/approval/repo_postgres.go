package approval

import (
	"context"
	"database/sql"
)

// PostgresRepo persists approval records in the `approval_records` table.
// The table should carry an INSERT-only policy; there is no code path
// that updates or deletes a row.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO approval_records (id, permit_id, level, approver_id, decision, comments, decided_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.PermitID, rec.Level, rec.ApproverID, rec.Decision, rec.Comments, rec.DecidedAt,
	)
	return err
}

func (r *PostgresRepo) ListByPermit(ctx context.Context, permitID string) ([]Record, error) {
	const q = `
SELECT id, permit_id, level, approver_id, decision, comments, decided_at
FROM approval_records
WHERE permit_id = $1
ORDER BY decided_at
`
	rows, err := r.db.QueryContext(ctx, q, permitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.PermitID, &rec.Level, &rec.ApproverID, &rec.Decision, &rec.Comments, &rec.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
