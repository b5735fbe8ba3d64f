package permit

import "time"

// Permit is a time-boxed working permit for physical access to a data center.
//
// Invariants:
// - ScheduledEnd must be after ScheduledStart.
// - QRCodeData/OTPCode are non-empty if and only if Status is APPROVED or ACTIVE.
// - ActualCheckOutTime set implies ActualCheckInTime set, and checkout >= checkin.
// - Permits are never deleted; terminal states are retained for audit.
type Permit struct {
	ID           string `json:"id" db:"id"`
	PermitNumber string `json:"permit_number" db:"permit_number"`

	VisitorID string `json:"visitor_id" db:"visitor_id"`
	// PICID is assigned at submission. The manager is not pre-assigned:
	// ManagerID records whichever manager-role user acted, set at decision time.
	PICID     string `json:"pic_id" db:"pic_id"`
	ManagerID string `json:"manager_id,omitempty" db:"manager_id"`

	VisitPurpose string    `json:"visit_purpose" db:"visit_purpose"`
	VisitType    VisitType `json:"visit_type" db:"visit_type"`
	DataCenter   string    `json:"data_center" db:"data_center"`

	ScheduledStart time.Time `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end" db:"scheduled_end"`

	EquipmentList   []string `json:"equipment_list,omitempty" db:"equipment_list"`
	WorkOrderDocRef string   `json:"work_order_doc_ref,omitempty" db:"work_order_doc_ref"`

	Status Status `json:"status" db:"status"`

	// Credential fields. Opaque to everything but the redemption service.
	QRCodeData string `json:"qr_code_data,omitempty" db:"qr_code_data"`
	OTPCode    string `json:"otp_code,omitempty" db:"otp_code"`

	ActualCheckInTime  *time.Time `json:"actual_check_in_time,omitempty" db:"actual_check_in_time"`
	ActualCheckOutTime *time.Time `json:"actual_check_out_time,omitempty" db:"actual_check_out_time"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPendingPIC     Status = "PENDING_PIC"
	StatusPendingManager Status = "PENDING_MANAGER"
	StatusApproved       Status = "APPROVED"
	StatusActive         Status = "ACTIVE"
	StatusCompleted      Status = "COMPLETED"
	StatusRejected       Status = "REJECTED"
	StatusCancelled      Status = "CANCELLED"
	StatusExpired        Status = "EXPIRED"
)

// transitions is the closed edge set of the permit state machine.
// Any status pair not listed here is an illegal transition.
var transitions = map[Status][]Status{
	StatusPendingPIC:     {StatusPendingManager, StatusRejected, StatusCancelled},
	StatusPendingManager: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:       {StatusActive, StatusCancelled, StatusExpired},
	StatusActive:         {StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing edges.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// HasCredential reports whether a permit in this status carries a live credential.
func (s Status) HasCredential() bool {
	return s == StatusApproved || s == StatusActive
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPIC, StatusPendingManager, StatusApproved, StatusActive,
		StatusCompleted, StatusRejected, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

type VisitType string

const (
	VisitTypeMaintenance  VisitType = "maintenance"
	VisitTypeInstallation VisitType = "installation"
	VisitTypeAudit        VisitType = "audit"
	VisitTypeDelivery     VisitType = "delivery"
	VisitTypeDecommission VisitType = "decommission"
)

func (v VisitType) Valid() bool {
	switch v {
	case VisitTypeMaintenance, VisitTypeInstallation, VisitTypeAudit,
		VisitTypeDelivery, VisitTypeDecommission:
		return true
	default:
		return false
	}
}
