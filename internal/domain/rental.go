package domain

import "time"

type RentalStatus string

const (
	RentalStatusScheduled RentalStatus = "SCHEDULED"
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusCompleted RentalStatus = "COMPLETED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
)

// Rental is the equipment contract a billing period bills against. It is owned
// by the asset service; billing only reads it.
type Rental struct {
	ID             int32        `json:"id"`
	AssetID        int32        `json:"asset_id"`
	CustomerName   string       `json:"customer_name"`
	RateTemplateID int32        `json:"rate_template_id"`
	Status         RentalStatus `json:"status"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        *time.Time   `json:"end_date,omitempty"`
	CreatedOn      time.Time    `json:"created_on"`
	UpdatedOn      time.Time    `json:"updated_on"`
}

// IsBillable reports whether periods may still be opened for the rental.
func (r *Rental) IsBillable() bool {
	return r.Status == RentalStatusActive || r.Status == RentalStatusCompleted
}
