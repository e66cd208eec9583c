package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationStatus string

const (
	OperationStatusOperating OperationStatus = "operating"
	OperationStatusStandby   OperationStatus = "standby"
	OperationStatusBreakdown OperationStatus = "breakdown"
)

type VerificationStatus string

const (
	VerificationStatusSubmitted VerificationStatus = "submitted"
	VerificationStatusVerified  VerificationStatus = "verified"
	VerificationStatusRejected  VerificationStatus = "rejected"
)

// TimesheetRecord is one field-submitted day of usage for a rental. Only
// verified records are billable.
type TimesheetRecord struct {
	ID                 int32              `json:"id"`
	RentalID           int32              `json:"rental_id"`
	WorkDate           time.Time          `json:"work_date"`
	OperatingHours     decimal.Decimal    `json:"operating_hours"`
	StandbyHours       decimal.Decimal    `json:"standby_hours"`
	BreakdownHours     decimal.Decimal    `json:"breakdown_hours"`
	OperationStatus    OperationStatus    `json:"operation_status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	VerifiedBy         *int32             `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

func (r *TimesheetRecord) IsVerified() bool {
	return r.VerificationStatus == VerificationStatusVerified
}
