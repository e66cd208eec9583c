package domain

import "github.com/shopspring/decimal"

// HourTotals is the raw aggregation of verified timesheets for a period.
// Overtime is not part of it; it depends on the template and is derived by the
// calculator.
type HourTotals struct {
	TotalOperatingHours decimal.Decimal `json:"total_operating_hours"`
	TotalStandbyHours   decimal.Decimal `json:"total_standby_hours"`
	TotalBreakdownHours decimal.Decimal `json:"total_breakdown_hours"`
	RecordCount         int             `json:"record_count"`
	TimesheetIDs        []int32         `json:"timesheet_ids,omitempty"`
}

const (
	WarningSubtotalClamped = "SUBTOTAL_CLAMPED_TO_ZERO"
	WarningMinimumApplied  = "MINIMUM_HOURS_APPLIED"
)

// BillingBreakdown carries every intermediate of a calculation so the audit
// trail can show each component, not just the total.
type BillingBreakdown struct {
	TotalOperatingHours decimal.Decimal `json:"total_operating_hours"`
	TotalStandbyHours   decimal.Decimal `json:"total_standby_hours"`
	TotalBreakdownHours decimal.Decimal `json:"total_breakdown_hours"`

	BillableHours  decimal.Decimal `json:"billable_hours"`
	ShortfallHours decimal.Decimal `json:"shortfall_hours"`
	MinimumApplied bool            `json:"minimum_applied"`

	StandardHoursThreshold decimal.Decimal `json:"standard_hours_threshold"`
	RegularHours           decimal.Decimal `json:"regular_hours"`
	OvertimeHours          decimal.Decimal `json:"overtime_hours"`
	PerHourRate            decimal.Decimal `json:"per_hour_rate"`
	BreakdownDays          decimal.Decimal `json:"breakdown_days"`

	BaseAmount             decimal.Decimal `json:"base_amount"`
	OvertimeAmount         decimal.Decimal `json:"overtime_amount"`
	StandbyAmount          decimal.Decimal `json:"standby_amount"`
	BreakdownPenaltyAmount decimal.Decimal `json:"breakdown_penalty_amount"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	TaxAmount              decimal.Decimal `json:"tax_amount"`
	TotalAmount            decimal.Decimal `json:"total_amount"`

	Warnings []string `json:"warnings,omitempty"`
}
