package reporting

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/access"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/permit"
)

// PostgresRepo reads reporting rows straight from the permit and access
// log tables. Reads only; reporting never mutates core state.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListPermits(ctx context.Context, tr TimeRange, dataCenter string) ([]permit.Permit, error) {
	const q = `
SELECT id, permit_number, visitor_id, pic_id, data_center, status, equipment_list, created_at
FROM permits
WHERE created_at >= $1 AND created_at < $2
  AND ($3 = '' OR data_center = $3)
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, tr.From, tr.To, dataCenter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []permit.Permit
	for rows.Next() {
		var p permit.Permit
		var equipment []byte
		if err := rows.Scan(&p.ID, &p.PermitNumber, &p.VisitorID, &p.PICID, &p.DataCenter, &p.Status, &equipment, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(equipment) > 0 {
			if err := json.Unmarshal(equipment, &p.EquipmentList); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListAccessEntries(ctx context.Context, tr TimeRange, location string) ([]access.LogEntry, error) {
	const q = `
SELECT id, COALESCE(permit_id, ''), type, location, reason, actor_id, occurred_at
FROM access_log
WHERE occurred_at >= $1 AND occurred_at < $2
  AND ($3 = '' OR location = $3)
ORDER BY occurred_at
`
	rows, err := r.db.QueryContext(ctx, q, tr.From, tr.To, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []access.LogEntry
	for rows.Next() {
		var e access.LogEntry
		if err := rows.Scan(&e.ID, &e.PermitID, &e.Type, &e.Location, &e.Reason, &e.ActorID, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
