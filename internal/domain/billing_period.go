package domain

import "time"

type BillingPeriodStatus string

const (
	BillingPeriodStatusDraft      BillingPeriodStatus = "DRAFT"
	BillingPeriodStatusCalculated BillingPeriodStatus = "CALCULATED"
	BillingPeriodStatusApproved   BillingPeriodStatus = "APPROVED"
	BillingPeriodStatusInvoiced   BillingPeriodStatus = "INVOICED"
)

// Rank orders statuses along the lifecycle; statuses never move to a lower rank.
func (s BillingPeriodStatus) Rank() int {
	switch s {
	case BillingPeriodStatusDraft:
		return 0
	case BillingPeriodStatusCalculated:
		return 1
	case BillingPeriodStatusApproved:
		return 2
	case BillingPeriodStatusInvoiced:
		return 3
	}
	return -1
}

func (s BillingPeriodStatus) IsValid() bool {
	return s.Rank() >= 0
}

type BillingPeriod struct {
	ID          int32               `json:"id"`
	RentalID    int32               `json:"rental_id"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	Status      BillingPeriodStatus `json:"status"`
	// Version is bumped on every persisted transition and used for
	// compare-and-swap updates.
	Version int32 `json:"version"`

	RateTemplateSnapshot *RateTemplateSnapshot `json:"rate_template_snapshot,omitempty"`
	Breakdown            *BillingBreakdown     `json:"breakdown,omitempty"`
	// TimesheetIDs are weak references to the aggregated records, kept for
	// audit display only.
	TimesheetIDs []int32 `json:"timesheet_ids,omitempty"`

	CalculatedAt  *time.Time `json:"calculated_at,omitempty"`
	ApprovedBy    *int32     `json:"approved_by,omitempty"`
	ApprovalNote  string     `json:"approval_note"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoicedAt    *time.Time `json:"invoiced_at,omitempty"`

	CreatedBy int32     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlaps reports whether the inclusive date ranges intersect.
func (p *BillingPeriod) Overlaps(start, end time.Time) bool {
	return !p.PeriodEnd.Before(start) && !end.Before(p.PeriodStart)
}

type BillingEventType string

const (
	BillingEventPeriodCreated    BillingEventType = "PERIOD_CREATED"
	BillingEventPeriodCalculated BillingEventType = "PERIOD_CALCULATED"
	BillingEventPeriodApproved   BillingEventType = "PERIOD_APPROVED"
	BillingEventInvoiceGenerated BillingEventType = "INVOICE_GENERATED"
	BillingEventPeriodDeleted    BillingEventType = "PERIOD_DELETED"
)

// BillingEvent is the audit record of one transition.
type BillingEvent struct {
	ID          string              `json:"id"`
	PeriodID    int32               `json:"period_id"`
	Type        BillingEventType    `json:"type"`
	ActorUserID *int32              `json:"actor_user_id"` // nil for system actions
	FromStatus  BillingPeriodStatus `json:"from_status"`
	ToStatus    BillingPeriodStatus `json:"to_status"`
	Details     map[string]string   `json:"details,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}
