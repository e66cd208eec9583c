package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateBasis string

const (
	RateBasisHourly  RateBasis = "hourly"
	RateBasisDaily   RateBasis = "daily"
	RateBasisMonthly RateBasis = "monthly"
)

func (b RateBasis) IsValid() bool {
	switch b {
	case RateBasisHourly, RateBasisDaily, RateBasisMonthly:
		return true
	}
	return false
}

// RateTemplate holds the contractual terms of a rental. Amounts are whole
// currency units (no minor units), e.g. Rupiah.
type RateTemplate struct {
	ID                     int32           `json:"id"`
	Name                   string          `json:"name"`
	RateBasis              RateBasis       `json:"rate_basis"`
	RateAmount             decimal.Decimal `json:"rate_amount"`
	MinimumHours           decimal.Decimal `json:"minimum_hours"`
	OvertimeMultiplier     decimal.Decimal `json:"overtime_multiplier"`
	StandbyMultiplier      decimal.Decimal `json:"standby_multiplier"`
	BreakdownPenaltyPerDay decimal.Decimal `json:"breakdown_penalty_per_day"`
	HoursPerDay            decimal.Decimal `json:"hours_per_day"`
	DaysPerMonth           decimal.Decimal `json:"days_per_month"`
	TaxPercentage          decimal.Decimal `json:"tax_percentage"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// StandardHoursThreshold is the overtime boundary of a monthly contract.
func (t *RateTemplate) StandardHoursThreshold() decimal.Decimal {
	return t.HoursPerDay.Mul(t.DaysPerMonth)
}

// Snapshot copies the fields the calculation depends on. A billing period keeps
// the snapshot so later edits of the template never alter it.
func (t *RateTemplate) Snapshot(takenAt time.Time) RateTemplateSnapshot {
	return RateTemplateSnapshot{
		TemplateID:             t.ID,
		RateBasis:              t.RateBasis,
		RateAmount:             t.RateAmount,
		MinimumHours:           t.MinimumHours,
		OvertimeMultiplier:     t.OvertimeMultiplier,
		StandbyMultiplier:      t.StandbyMultiplier,
		BreakdownPenaltyPerDay: t.BreakdownPenaltyPerDay,
		HoursPerDay:            t.HoursPerDay,
		DaysPerMonth:           t.DaysPerMonth,
		TaxPercentage:          t.TaxPercentage,
		TakenAt:                takenAt,
	}
}

type RateTemplateSnapshot struct {
	TemplateID             int32           `json:"template_id"`
	RateBasis              RateBasis       `json:"rate_basis"`
	RateAmount             decimal.Decimal `json:"rate_amount"`
	MinimumHours           decimal.Decimal `json:"minimum_hours"`
	OvertimeMultiplier     decimal.Decimal `json:"overtime_multiplier"`
	StandbyMultiplier      decimal.Decimal `json:"standby_multiplier"`
	BreakdownPenaltyPerDay decimal.Decimal `json:"breakdown_penalty_per_day"`
	HoursPerDay            decimal.Decimal `json:"hours_per_day"`
	DaysPerMonth           decimal.Decimal `json:"days_per_month"`
	TaxPercentage          decimal.Decimal `json:"tax_percentage"`
	TakenAt                time.Time       `json:"taken_at"`
}
