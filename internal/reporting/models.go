package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// PermitSummaryRequest requests aggregated permit lifecycle metrics.

type PermitSummaryRequest struct {
	Range      TimeRange `json:"range"`
	DataCenter string    `json:"data_center,omitempty"`
}

type PermitSummary struct {
	DataCenter string `json:"data_center,omitempty"`

	TotalPermits   int `json:"total_permits"`
	PendingPIC     int `json:"pending_pic"`
	PendingManager int `json:"pending_manager"`
	Approved       int `json:"approved"`
	Active         int `json:"active"`
	Completed      int `json:"completed"`
	Rejected       int `json:"rejected"`
	Cancelled      int `json:"cancelled"`
	Expired        int `json:"expired"`
}

// AccessSummaryRequest requests aggregated gate traffic metrics.
// Derived from the immutable access log.

type AccessSummaryRequest struct {
	Range    TimeRange `json:"range"`
	Location string    `json:"location,omitempty"`
}

type AccessSummary struct {
	Location string `json:"location,omitempty"`

	TotalAttempts int `json:"total_attempts"`
	CheckIns      int `json:"check_ins"`
	CheckOuts     int `json:"check_outs"`
	Denied        int `json:"denied"`
}
