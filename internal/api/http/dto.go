package http

import (
	"github.com/shopspring/decimal"

	"rentbill-backend/internal/domain"
)

type CreatePeriodRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

type ApprovePeriodRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// PreviewTotals mirrors domain.HourTotals; absent fields decode as zero.
type PreviewTotals struct {
	TotalOperatingHours decimal.Decimal `json:"total_operating_hours"`
	TotalStandbyHours   decimal.Decimal `json:"total_standby_hours"`
	TotalBreakdownHours decimal.Decimal `json:"total_breakdown_hours"`
}

type PreviewTemplate struct {
	RateBasis              string          `json:"rate_basis" validate:"required,oneof=hourly daily monthly"`
	RateAmount             decimal.Decimal `json:"rate_amount"`
	MinimumHours           decimal.Decimal `json:"minimum_hours"`
	OvertimeMultiplier     decimal.Decimal `json:"overtime_multiplier"`
	StandbyMultiplier      decimal.Decimal `json:"standby_multiplier"`
	BreakdownPenaltyPerDay decimal.Decimal `json:"breakdown_penalty_per_day"`
	HoursPerDay            decimal.Decimal `json:"hours_per_day"`
	DaysPerMonth           decimal.Decimal `json:"days_per_month"`
	TaxPercentage          decimal.Decimal `json:"tax_percentage"`
}

type PreviewRequest struct {
	Totals   PreviewTotals   `json:"totals"`
	Template PreviewTemplate `json:"template"`
}

func (r PreviewRequest) toDomain() (domain.HourTotals, domain.RateTemplate) {
	return domain.HourTotals{
			TotalOperatingHours: r.Totals.TotalOperatingHours,
			TotalStandbyHours:   r.Totals.TotalStandbyHours,
			TotalBreakdownHours: r.Totals.TotalBreakdownHours,
		}, domain.RateTemplate{
			RateBasis:              domain.RateBasis(r.Template.RateBasis),
			RateAmount:             r.Template.RateAmount,
			MinimumHours:           r.Template.MinimumHours,
			OvertimeMultiplier:     r.Template.OvertimeMultiplier,
			StandbyMultiplier:      r.Template.StandbyMultiplier,
			BreakdownPenaltyPerDay: r.Template.BreakdownPenaltyPerDay,
			HoursPerDay:            r.Template.HoursPerDay,
			DaysPerMonth:           r.Template.DaysPerMonth,
			TaxPercentage:          r.Template.TaxPercentage,
		}
}

type ListPeriodsResponse struct {
	Periods []domain.BillingPeriod `json:"periods"`
}

type ListEventsResponse struct {
	Events []domain.BillingEvent `json:"events"`
}
