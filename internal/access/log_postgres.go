package access

import (
	"context"
	"database/sql"
)

// PostgresLog persists access log entries in the `access_log` table.
// INSERT-only; nothing updates or deletes a row.
type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, e LogEntry) error {
	const q = `
INSERT INTO access_log (id, permit_id, type, location, reason, actor_id, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	permitID := sql.NullString{String: e.PermitID, Valid: e.PermitID != ""}
	_, err := l.db.ExecContext(ctx, q, e.ID, permitID, e.Type, e.Location, e.Reason, e.ActorID, e.OccurredAt)
	return err
}

func (l *PostgresLog) ListByPermit(ctx context.Context, permitID string) ([]LogEntry, error) {
	const q = `
SELECT id, permit_id, type, location, reason, actor_id, occurred_at
FROM access_log
WHERE permit_id = $1
ORDER BY occurred_at
`
	rows, err := l.db.QueryContext(ctx, q, permitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var pid sql.NullString
		if err := rows.Scan(&e.ID, &pid, &e.Type, &e.Location, &e.Reason, &e.ActorID, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.PermitID = pid.String
		out = append(out, e)
	}
	return out, rows.Err()
}
