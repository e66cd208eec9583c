package billing

import (
	"github.com/shopspring/decimal"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
)

// DefaultAmountPrecision is the number of decimal places monetary components
// are rounded to.
const DefaultAmountPrecision int32 = 2

var hundred = decimal.NewFromInt(100)

// Calculator applies rate template rules to aggregated hours. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	amountPrecision int32
}

// NewCalculator returns a calculator rounding monetary components to the given
// number of decimal places. Negative precision falls back to the default.
func NewCalculator(amountPrecision int32) *Calculator {
	if amountPrecision < 0 {
		amountPrecision = DefaultAmountPrecision
	}
	return &Calculator{amountPrecision: amountPrecision}
}

var defaultCalculator = NewCalculator(DefaultAmountPrecision)

// Calculate runs the default calculator.
func Calculate(totals domain.HourTotals, template domain.RateTemplate) (domain.BillingBreakdown, error) {
	return defaultCalculator.Calculate(totals, template)
}

// Calculate turns hour totals into a financial breakdown. The steps run in a
// fixed order and every intermediate is kept on the result.
func (c *Calculator) Calculate(totals domain.HourTotals, template domain.RateTemplate) (domain.BillingBreakdown, error) {
	if err := ValidateTemplate(template); err != nil {
		return domain.BillingBreakdown{}, err
	}
	if err := ValidateTotals(totals); err != nil {
		return domain.BillingBreakdown{}, err
	}

	b := domain.BillingBreakdown{
		TotalOperatingHours: totals.TotalOperatingHours,
		TotalStandbyHours:   totals.TotalStandbyHours,
		TotalBreakdownHours: totals.TotalBreakdownHours,
		ShortfallHours:      decimal.Zero,
	}

	// 1. take-or-pay floor
	b.BillableHours = decimal.Max(totals.TotalOperatingHours, template.MinimumHours)
	if totals.TotalOperatingHours.LessThan(template.MinimumHours) {
		b.ShortfallHours = template.MinimumHours.Sub(totals.TotalOperatingHours)
		b.MinimumApplied = true
		b.Warnings = append(b.Warnings, domain.WarningMinimumApplied)
	}

	// 2. regular vs overtime, monthly contracts only
	b.StandardHoursThreshold = template.StandardHoursThreshold()
	if template.RateBasis == domain.RateBasisMonthly {
		b.RegularHours = decimal.Min(b.BillableHours, b.StandardHoursThreshold)
		b.OvertimeHours = decimal.Max(b.BillableHours.Sub(b.StandardHoursThreshold), decimal.Zero)
	} else {
		b.RegularHours = b.BillableHours
		b.OvertimeHours = decimal.Zero
	}

	// 3. base amount
	switch template.RateBasis {
	case domain.RateBasisHourly:
		b.PerHourRate = template.RateAmount
		b.BaseAmount = b.RegularHours.Mul(template.RateAmount)
	case domain.RateBasisDaily:
		b.PerHourRate = template.RateAmount.Div(template.HoursPerDay)
		b.BaseAmount = b.RegularHours.Div(template.HoursPerDay).Mul(template.RateAmount)
	case domain.RateBasisMonthly:
		b.PerHourRate = template.RateAmount.Div(b.StandardHoursThreshold)
		b.BaseAmount = template.RateAmount
	}
	b.BaseAmount = c.round(b.BaseAmount)

	// 4. overtime
	b.OvertimeAmount = c.round(b.OvertimeHours.Mul(b.PerHourRate).Mul(template.OvertimeMultiplier))

	// 5. standby
	b.StandbyAmount = c.round(totals.TotalStandbyHours.Mul(b.PerHourRate).Mul(template.StandbyMultiplier))

	// 6. breakdown penalty, fractional days
	b.BreakdownDays = totals.TotalBreakdownHours.Div(template.HoursPerDay)
	b.BreakdownPenaltyAmount = c.round(b.BreakdownDays.Mul(template.BreakdownPenaltyPerDay))

	// 7. subtotal, never below zero
	b.Subtotal = b.BaseAmount.Add(b.OvertimeAmount).Add(b.StandbyAmount).Sub(b.BreakdownPenaltyAmount)
	if b.Subtotal.IsNegative() {
		b.Subtotal = decimal.Zero
		b.Warnings = append(b.Warnings, domain.WarningSubtotalClamped)
	}

	// 8. tax
	b.TaxAmount = c.round(b.Subtotal.Mul(template.TaxPercentage).Div(hundred))

	// 9. total
	b.TotalAmount = b.Subtotal.Add(b.TaxAmount)

	return b, nil
}

func (c *Calculator) round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.amountPrecision)
}

// ValidateTemplate rejects negative rates or multipliers and non-positive day
// parameters, which would otherwise divide by zero.
func ValidateTemplate(t domain.RateTemplate) error {
	if !t.RateBasis.IsValid() {
		return invalidTemplate(t, "rate_basis", "rate basis must be hourly, daily or monthly")
	}
	nonNegative := []struct {
		field string
		value decimal.Decimal
	}{
		{"rate_amount", t.RateAmount},
		{"minimum_hours", t.MinimumHours},
		{"overtime_multiplier", t.OvertimeMultiplier},
		{"standby_multiplier", t.StandbyMultiplier},
		{"breakdown_penalty_per_day", t.BreakdownPenaltyPerDay},
		{"tax_percentage", t.TaxPercentage},
	}
	for _, f := range nonNegative {
		if f.value.IsNegative() {
			return invalidTemplate(t, f.field, f.field+" must not be negative")
		}
	}
	if !t.HoursPerDay.IsPositive() {
		return invalidTemplate(t, "hours_per_day", "hours_per_day must be greater than zero")
	}
	if !t.DaysPerMonth.IsPositive() {
		return invalidTemplate(t, "days_per_month", "days_per_month must be greater than zero")
	}
	return nil
}

// ValidateTotals rejects negative hour aggregates. They indicate upstream data
// corruption and are never corrected here.
func ValidateTotals(totals domain.HourTotals) error {
	fields := []struct {
		field string
		value decimal.Decimal
	}{
		{"total_operating_hours", totals.TotalOperatingHours},
		{"total_standby_hours", totals.TotalStandbyHours},
		{"total_breakdown_hours", totals.TotalBreakdownHours},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return ierr.NewErrorf("%s is negative: %s", f.field, f.value.String()).
				WithHint("Timesheet hours must not be negative").
				WithReportableDetails(map[string]interface{}{
					"field": f.field,
					"value": f.value.String(),
				}).
				Mark(ierr.ErrInvalidTotals)
		}
	}
	return nil
}

func invalidTemplate(t domain.RateTemplate, field, msg string) error {
	return ierr.NewError(msg).
		WithHint("Rate template terms are invalid").
		WithReportableDetails(map[string]interface{}{
			"template_id": t.ID,
			"field":       field,
		}).
		Mark(ierr.ErrInvalidTemplate)
}
