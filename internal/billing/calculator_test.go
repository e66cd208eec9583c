package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, d(expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual.String())
}

func hourlyTemplate() domain.RateTemplate {
	return domain.RateTemplate{
		ID:                     1,
		RateBasis:              domain.RateBasisHourly,
		RateAmount:             d("100000"),
		MinimumHours:           d("200"),
		OvertimeMultiplier:     d("1.25"),
		StandbyMultiplier:      d("0.5"),
		BreakdownPenaltyPerDay: d("50000"),
		HoursPerDay:            d("8"),
		DaysPerMonth:           d("25"),
		TaxPercentage:          d("11"),
	}
}

func totals(operating, standby, breakdown string) domain.HourTotals {
	return domain.HourTotals{
		TotalOperatingHours: d(operating),
		TotalStandbyHours:   d(standby),
		TotalBreakdownHours: d(breakdown),
	}
}

func TestCalculate_HourlyShortfall(t *testing.T) {
	b, err := Calculate(totals("180", "10", "0"), hourlyTemplate())
	require.NoError(t, err)

	assertDecimal(t, "20", b.ShortfallHours, "shortfall")
	assert.True(t, b.MinimumApplied)
	assert.Contains(t, b.Warnings, domain.WarningMinimumApplied)
	assertDecimal(t, "200", b.BillableHours, "billable")
	assertDecimal(t, "200", b.RegularHours, "regular")
	assertDecimal(t, "0", b.OvertimeHours, "overtime hours")
	assertDecimal(t, "20000000", b.BaseAmount, "base")
	assertDecimal(t, "0", b.OvertimeAmount, "overtime")
	assertDecimal(t, "500000", b.StandbyAmount, "standby")
	assertDecimal(t, "0", b.BreakdownPenaltyAmount, "penalty")
	assertDecimal(t, "20500000", b.Subtotal, "subtotal")
	assertDecimal(t, "2255000", b.TaxAmount, "tax")
	assertDecimal(t, "22755000", b.TotalAmount, "total")
}

func TestCalculate_HourlyAboveMinimumHasNoOvertime(t *testing.T) {
	// Hourly contracts bill every hour at the base rate, even past the monthly
	// threshold.
	b, err := Calculate(totals("220", "0", "0"), hourlyTemplate())
	require.NoError(t, err)

	assertDecimal(t, "220", b.BillableHours, "billable")
	assertDecimal(t, "0", b.ShortfallHours, "shortfall")
	assert.False(t, b.MinimumApplied)
	assertDecimal(t, "0", b.OvertimeHours, "overtime hours")
	assertDecimal(t, "22000000", b.BaseAmount, "base")
	assertDecimal(t, "0", b.OvertimeAmount, "overtime")
}

func TestCalculate_BreakdownPenalty(t *testing.T) {
	b, err := Calculate(totals("150", "0", "16"), hourlyTemplate())
	require.NoError(t, err)

	assertDecimal(t, "2", b.BreakdownDays, "breakdown days")
	assertDecimal(t, "100000", b.BreakdownPenaltyAmount, "penalty")
	assertDecimal(t, "20000000", b.BaseAmount, "base")
	assertDecimal(t, "19900000", b.Subtotal, "subtotal")
	assertDecimal(t, "2189000", b.TaxAmount, "tax")
	assertDecimal(t, "22089000", b.TotalAmount, "total")
}

func TestCalculate_PartialBreakdownDayIsFractional(t *testing.T) {
	b, err := Calculate(totals("200", "0", "4"), hourlyTemplate())
	require.NoError(t, err)

	assertDecimal(t, "0.5", b.BreakdownDays, "breakdown days")
	assertDecimal(t, "25000", b.BreakdownPenaltyAmount, "penalty")
}

func TestCalculate_EmptyPeriodStillBillsMinimum(t *testing.T) {
	b, err := Calculate(domain.HourTotals{}, hourlyTemplate())
	require.NoError(t, err)

	assertDecimal(t, "200", b.ShortfallHours, "shortfall")
	assertDecimal(t, "200", b.BillableHours, "billable")
	assertDecimal(t, "20000000", b.BaseAmount, "base")
	assertDecimal(t, "22200000", b.TotalAmount, "total")
}

func TestCalculate_Daily(t *testing.T) {
	tmpl := hourlyTemplate()
	tmpl.RateBasis = domain.RateBasisDaily
	tmpl.RateAmount = d("800000")
	tmpl.MinimumHours = d("0")

	t.Run("Whole days", func(t *testing.T) {
		b, err := Calculate(totals("40", "8", "0"), tmpl)
		require.NoError(t, err)
		assertDecimal(t, "100000", b.PerHourRate, "per hour")
		assertDecimal(t, "4000000", b.BaseAmount, "base")
		assertDecimal(t, "400000", b.StandbyAmount, "standby")
		assertDecimal(t, "0", b.OvertimeHours, "overtime hours")
	})

	t.Run("Fractional days", func(t *testing.T) {
		b, err := Calculate(totals("12", "0", "0"), tmpl)
		require.NoError(t, err)
		assertDecimal(t, "1200000", b.BaseAmount, "base")
	})

	t.Run("Non terminating division rounds to precision", func(t *testing.T) {
		tmpl := tmpl
		tmpl.HoursPerDay = d("3")
		tmpl.RateAmount = d("100")
		b, err := Calculate(totals("7", "0", "0"), tmpl)
		require.NoError(t, err)
		assertDecimal(t, "233.33", b.BaseAmount, "base")
	})
}

func TestCalculate_Monthly(t *testing.T) {
	tmpl := domain.RateTemplate{
		ID:                     2,
		RateBasis:              domain.RateBasisMonthly,
		RateAmount:             d("40000000"),
		MinimumHours:           d("200"),
		OvertimeMultiplier:     d("1.5"),
		StandbyMultiplier:      d("0.5"),
		BreakdownPenaltyPerDay: d("100000"),
		HoursPerDay:            d("8"),
		DaysPerMonth:           d("25"),
		TaxPercentage:          d("11"),
	}

	t.Run("Within threshold", func(t *testing.T) {
		b, err := Calculate(totals("190", "0", "0"), tmpl)
		require.NoError(t, err)
		assertDecimal(t, "200", b.StandardHoursThreshold, "threshold")
		assertDecimal(t, "200", b.BillableHours, "billable")
		assertDecimal(t, "10", b.ShortfallHours, "shortfall")
		assertDecimal(t, "0", b.OvertimeHours, "overtime hours")
		assertDecimal(t, "40000000", b.BaseAmount, "base")
	})

	t.Run("Overtime past threshold", func(t *testing.T) {
		b, err := Calculate(totals("220", "10", "8"), tmpl)
		require.NoError(t, err)
		assertDecimal(t, "200", b.RegularHours, "regular")
		assertDecimal(t, "20", b.OvertimeHours, "overtime hours")
		assertDecimal(t, "200000", b.PerHourRate, "per hour")
		// 20h * 200,000 * 1.5
		assertDecimal(t, "6000000", b.OvertimeAmount, "overtime")
		// 10h * 200,000 * 0.5
		assertDecimal(t, "1000000", b.StandbyAmount, "standby")
		assertDecimal(t, "100000", b.BreakdownPenaltyAmount, "penalty")
		assertDecimal(t, "46900000", b.Subtotal, "subtotal")
		assertDecimal(t, "5159000", b.TaxAmount, "tax")
		assertDecimal(t, "52059000", b.TotalAmount, "total")
	})
}

func TestCalculate_SubtotalClampedAtZero(t *testing.T) {
	tmpl := hourlyTemplate()
	tmpl.MinimumHours = d("0")
	tmpl.BreakdownPenaltyPerDay = d("10000000")

	b, err := Calculate(totals("8", "0", "80"), tmpl)
	require.NoError(t, err)

	assertDecimal(t, "800000", b.BaseAmount, "base")
	assertDecimal(t, "100000000", b.BreakdownPenaltyAmount, "penalty")
	assertDecimal(t, "0", b.Subtotal, "subtotal")
	assertDecimal(t, "0", b.TaxAmount, "tax")
	assertDecimal(t, "0", b.TotalAmount, "total")
	assert.Contains(t, b.Warnings, domain.WarningSubtotalClamped)
}

func TestCalculate_InvalidTemplate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.RateTemplate)
	}{
		{"Negative rate", func(tm *domain.RateTemplate) { tm.RateAmount = d("-1") }},
		{"Negative minimum", func(tm *domain.RateTemplate) { tm.MinimumHours = d("-1") }},
		{"Negative overtime multiplier", func(tm *domain.RateTemplate) { tm.OvertimeMultiplier = d("-1.25") }},
		{"Negative standby multiplier", func(tm *domain.RateTemplate) { tm.StandbyMultiplier = d("-0.5") }},
		{"Negative penalty", func(tm *domain.RateTemplate) { tm.BreakdownPenaltyPerDay = d("-1") }},
		{"Negative tax", func(tm *domain.RateTemplate) { tm.TaxPercentage = d("-11") }},
		{"Zero hours per day", func(tm *domain.RateTemplate) { tm.HoursPerDay = decimal.Zero }},
		{"Negative hours per day", func(tm *domain.RateTemplate) { tm.HoursPerDay = d("-8") }},
		{"Zero days per month", func(tm *domain.RateTemplate) { tm.DaysPerMonth = decimal.Zero }},
		{"Unknown basis", func(tm *domain.RateTemplate) { tm.RateBasis = "weekly" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := hourlyTemplate()
			tt.mutate(&tmpl)
			_, err := Calculate(totals("10", "0", "0"), tmpl)
			require.Error(t, err)
			assert.True(t, ierr.IsInvalidTemplate(err))
			assert.Equal(t, int32(1), ierr.Details(err)["template_id"])
		})
	}
}

func TestCalculate_InvalidTotals(t *testing.T) {
	for _, tt := range []domain.HourTotals{
		totals("-1", "0", "0"),
		totals("0", "-0.5", "0"),
		totals("0", "0", "-8"),
	} {
		_, err := Calculate(tt, hourlyTemplate())
		require.Error(t, err)
		assert.True(t, ierr.IsInvalidTotals(err))
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	tmpl := hourlyTemplate()
	tmpl.RateBasis = domain.RateBasisDaily
	tmpl.HoursPerDay = d("7")

	in := totals("123.45", "6.7", "3.3")
	first, err := Calculate(in, tmpl)
	require.NoError(t, err)
	second, err := Calculate(in, tmpl)
	require.NoError(t, err)

	assert.Equal(t, first.TotalAmount.String(), second.TotalAmount.String())
	assert.Equal(t, first, second)
}

func TestCalculate_Properties(t *testing.T) {
	bases := []domain.RateBasis{domain.RateBasisHourly, domain.RateBasisDaily, domain.RateBasisMonthly}
	hours := []string{"0", "0.5", "8", "150", "199.99", "200", "200.01", "260", "1000"}
	breakdowns := []string{"0", "4", "16", "400"}

	for _, basis := range bases {
		for _, op := range hours {
			for _, bd := range breakdowns {
				tmpl := hourlyTemplate()
				tmpl.RateBasis = basis
				in := totals(op, "5", bd)

				b, err := Calculate(in, tmpl)
				require.NoError(t, err)

				assert.False(t, b.Subtotal.IsNegative(), "subtotal negative for %s/%s/%s", basis, op, bd)
				assert.False(t, b.TotalAmount.IsNegative(), "total negative for %s/%s/%s", basis, op, bd)

				if in.TotalOperatingHours.LessThan(tmpl.MinimumHours) {
					assert.True(t, b.BillableHours.Equal(tmpl.MinimumHours))
					assert.True(t, b.ShortfallHours.Equal(tmpl.MinimumHours.Sub(in.TotalOperatingHours)))
				} else {
					assert.True(t, b.ShortfallHours.IsZero())
				}

				if basis != domain.RateBasisMonthly || b.BillableHours.LessThanOrEqual(tmpl.StandardHoursThreshold()) {
					assert.True(t, b.OvertimeHours.IsZero(), "unexpected overtime for %s/%s", basis, op)
				}

				assert.True(t, b.TotalAmount.Equal(b.Subtotal.Add(b.TaxAmount)))
			}
		}
	}
}

func TestNewCalculator_Precision(t *testing.T) {
	tmpl := hourlyTemplate()
	tmpl.RateBasis = domain.RateBasisDaily
	tmpl.HoursPerDay = d("3")
	tmpl.RateAmount = d("100")
	tmpl.MinimumHours = decimal.Zero

	b, err := NewCalculator(0).Calculate(totals("7", "0", "0"), tmpl)
	require.NoError(t, err)
	assertDecimal(t, "233", b.BaseAmount, "base")

	b, err = NewCalculator(-1).Calculate(totals("7", "0", "0"), tmpl)
	require.NoError(t, err)
	assertDecimal(t, "233.33", b.BaseAmount, "base")
}
