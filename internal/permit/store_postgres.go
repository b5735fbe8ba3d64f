package permit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/isnaaziz/working-permit-dc-sub000/pkg/utils"
)

// PostgresStore persists permits in the `permits` table.
//
// Assumed schema highlights:
// - UNIQUE (permit_number)
// - equipment_list stored as JSONB
// - status stored as text, constrained to the state machine values
//
// Transition uses SELECT ... FOR UPDATE to serialize concurrent status
// changes per permit row. End-to-end behavior is covered by integration
// tests against Postgres; unit tests run on MemoryStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const permitColumns = `
id, permit_number, visitor_id, pic_id, manager_id,
visit_purpose, visit_type, data_center,
scheduled_start, scheduled_end, equipment_list, work_order_doc_ref,
status, qr_code_data, otp_code,
actual_check_in_time, actual_check_out_time, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p Permit) error {
	const q = `
INSERT INTO permits (` + permitColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)
`
	equipment, err := json.Marshal(p.EquipmentList)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q,
		p.ID, p.PermitNumber, p.VisitorID, p.PICID, p.ManagerID,
		p.VisitPurpose, p.VisitType, p.DataCenter,
		p.ScheduledStart, p.ScheduledEnd, equipment, p.WorkOrderDocRef,
		p.Status, p.QRCodeData, p.OTPCode,
		p.ActualCheckInTime, p.ActualCheckOutTime, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Permit, error) {
	const q = `SELECT ` + permitColumns + ` FROM permits WHERE id = $1`
	return scanPermit(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) GetByQRCode(ctx context.Context, qrCodeData string) (Permit, error) {
	if qrCodeData == "" {
		return Permit{}, ErrNotFound
	}
	const q = `SELECT ` + permitColumns + ` FROM permits WHERE qr_code_data = $1`
	return scanPermit(s.db.QueryRowContext(ctx, q, qrCodeData))
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Permit, error) {
	q := `SELECT ` + permitColumns + ` FROM permits WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.VisitorID != "" {
		q += ` AND visitor_id = ` + arg(f.VisitorID)
	}
	if f.PICID != "" {
		q += ` AND pic_id = ` + arg(f.PICID)
	}
	if f.Status != "" {
		q += ` AND status = ` + arg(string(f.Status))
	}
	if f.DataCenter != "" {
		q += ` AND data_center = ` + arg(f.DataCenter)
	}
	if !f.EndBefore.IsZero() {
		q += ` AND scheduled_end < ` + arg(f.EndBefore)
	}
	q += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Permit
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Transition(ctx context.Context, id string, from []Status, mutate func(p *Permit) error) (Permit, error) {
	var out Permit
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `SELECT ` + permitColumns + ` FROM permits WHERE id = $1 FOR UPDATE`
		p, err := scanPermit(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			return err
		}
		if !statusIn(p.Status, from) {
			return &StateError{Op: "transition", Current: p.Status}
		}
		prev := p.Status
		if err := mutate(&p); err != nil {
			return err
		}

		// Equipment/schedule fields are immutable after creation; only
		// decision-time fields are written back.
		const upd = `
UPDATE permits SET
  manager_id = $2, status = $3, qr_code_data = $4, otp_code = $5,
  actual_check_in_time = $6, actual_check_out_time = $7, updated_at = $8
WHERE id = $1 AND status = $9
`
		res, err := tx.ExecContext(ctx, upd,
			p.ID, p.ManagerID, p.Status, p.QRCodeData, p.OTPCode,
			p.ActualCheckInTime, p.ActualCheckOutTime, p.UpdatedAt, prev,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			// Should be unreachable under FOR UPDATE; kept as a guard.
			return &StateError{Op: "transition", Current: p.Status}
		}
		out = p
		return nil
	})
	if err != nil {
		return Permit{}, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermit(row rowScanner) (Permit, error) {
	var p Permit
	var equipment []byte
	var managerID, workOrderRef, qr, otp sql.NullString
	var checkIn, checkOut sql.NullTime
	err := row.Scan(
		&p.ID, &p.PermitNumber, &p.VisitorID, &p.PICID, &managerID,
		&p.VisitPurpose, &p.VisitType, &p.DataCenter,
		&p.ScheduledStart, &p.ScheduledEnd, &equipment, &workOrderRef,
		&p.Status, &qr, &otp,
		&checkIn, &checkOut, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Permit{}, ErrNotFound
		}
		return Permit{}, err
	}
	p.ManagerID = managerID.String
	p.WorkOrderDocRef = workOrderRef.String
	p.QRCodeData = qr.String
	p.OTPCode = otp.String
	if checkIn.Valid {
		t := checkIn.Time
		p.ActualCheckInTime = &t
	}
	if checkOut.Valid {
		t := checkOut.Time
		p.ActualCheckOutTime = &t
	}
	if len(equipment) > 0 {
		if err := json.Unmarshal(equipment, &p.EquipmentList); err != nil {
			return Permit{}, err
		}
	}
	return p, nil
}
