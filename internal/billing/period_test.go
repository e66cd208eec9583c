package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
)

var now = time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)

func draftPeriod(t *testing.T) domain.BillingPeriod {
	t.Helper()
	tr, err := NewPeriod(7, date("2026-09-01"), date("2026-09-30"), 42, now)
	require.NoError(t, err)
	tr.Period.ID = 11
	return tr.Period
}

func calculatedPeriod(t *testing.T, records []domain.TimesheetRecord) domain.BillingPeriod {
	t.Helper()
	tr, err := CalculatePeriod(draftPeriod(t), records, hourlyTemplate(), nil, nil, now)
	require.NoError(t, err)
	return tr.Period
}

func TestNewPeriod(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		tr, err := NewPeriod(7, date("2026-09-01"), date("2026-09-30"), 42, now)
		require.NoError(t, err)
		assert.Equal(t, domain.BillingPeriodStatusDraft, tr.Period.Status)
		assert.Equal(t, int32(1), tr.Period.Version)
		assert.Nil(t, tr.Period.Breakdown)
		require.Len(t, tr.Events, 1)
		assert.Equal(t, domain.BillingEventPeriodCreated, tr.Events[0].Type)
		assert.Equal(t, "30", tr.Events[0].Details["days"])
	})

	t.Run("End before start", func(t *testing.T) {
		_, err := NewPeriod(7, date("2026-09-30"), date("2026-09-01"), 42, now)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("Missing rental", func(t *testing.T) {
		_, err := NewPeriod(0, date("2026-09-01"), date("2026-09-30"), 42, now)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestCalculatePeriod(t *testing.T) {
	records := []domain.TimesheetRecord{
		record(1, "2026-09-01", domain.VerificationStatusVerified, "180", "10", "0"),
		record(2, "2026-09-02", domain.VerificationStatusSubmitted, "8", "0", "0"),
	}

	t.Run("Draft to calculated", func(t *testing.T) {
		p := draftPeriod(t)
		tr, err := CalculatePeriod(p, records, hourlyTemplate(), nil, nil, now)
		require.NoError(t, err)

		assert.Equal(t, domain.BillingPeriodStatusCalculated, tr.Period.Status)
		assert.Equal(t, p.Version+1, tr.Period.Version)
		require.NotNil(t, tr.Period.Breakdown)
		assert.Equal(t, "22755000", tr.Period.Breakdown.TotalAmount.String())
		require.NotNil(t, tr.Period.RateTemplateSnapshot)
		assert.Equal(t, int32(1), tr.Period.RateTemplateSnapshot.TemplateID)
		assert.Equal(t, []int32{1}, tr.Period.TimesheetIDs)
		require.Len(t, tr.Events, 1)
		assert.Equal(t, domain.BillingPeriodStatusDraft, tr.Events[0].FromStatus)
		assert.Equal(t, domain.BillingPeriodStatusCalculated, tr.Events[0].ToStatus)

		// input is left untouched
		assert.Equal(t, domain.BillingPeriodStatusDraft, p.Status)
		assert.Nil(t, p.Breakdown)
	})

	t.Run("Recalculation picks up newly verified records", func(t *testing.T) {
		p := calculatedPeriod(t, records)

		updated := append([]domain.TimesheetRecord{}, records...)
		updated[1].VerificationStatus = domain.VerificationStatusVerified
		updated = append(updated, record(3, "2026-09-03", domain.VerificationStatusVerified, "30", "0", "0"))

		tr, err := CalculatePeriod(p, updated, hourlyTemplate(), nil, nil, now)
		require.NoError(t, err)
		assert.Equal(t, domain.BillingPeriodStatusCalculated, tr.Period.Status)
		assert.Equal(t, "218", tr.Period.Breakdown.BillableHours.String())
		assert.Equal(t, []int32{1, 2, 3}, tr.Period.TimesheetIDs)
	})

	t.Run("Snapshot does not follow later template edits", func(t *testing.T) {
		tmpl := hourlyTemplate()
		tr, err := CalculatePeriod(draftPeriod(t), records, tmpl, nil, nil, now)
		require.NoError(t, err)

		tmpl.RateAmount = d("999")
		assert.Equal(t, "100000", tr.Period.RateTemplateSnapshot.RateAmount.String())
	})

	t.Run("Rejected once approved", func(t *testing.T) {
		approved, err := ApprovePeriod(calculatedPeriod(t, records), 5, "ok", now)
		require.NoError(t, err)

		_, err = CalculatePeriod(approved.Period, records, hourlyTemplate(), nil, nil, now)
		require.Error(t, err)
		assert.True(t, ierr.IsInvalidState(err))
		details := ierr.Details(err)
		assert.Equal(t, "APPROVED", details["current_status"])
		assert.Equal(t, OpCalculate, details["operation"])
	})

	t.Run("Negative record hours", func(t *testing.T) {
		bad := []domain.TimesheetRecord{record(9, "2026-09-05", domain.VerificationStatusVerified, "-3", "0", "0")}
		_, err := CalculatePeriod(draftPeriod(t), bad, hourlyTemplate(), nil, nil, now)
		assert.True(t, ierr.IsInvalidTotals(err))
	})

	t.Run("Invalid template", func(t *testing.T) {
		tmpl := hourlyTemplate()
		tmpl.HoursPerDay = d("0")
		_, err := CalculatePeriod(draftPeriod(t), records, tmpl, nil, nil, now)
		assert.True(t, ierr.IsInvalidTemplate(err))
	})
}

func TestSameCalculation(t *testing.T) {
	records := []domain.TimesheetRecord{
		record(1, "2026-09-01", domain.VerificationStatusVerified, "180", "10", "0"),
	}
	calculated := calculatedPeriod(t, records)

	again, err := CalculatePeriod(calculated, records, hourlyTemplate(), nil, nil, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, SameCalculation(calculated, again.Period))

	t.Run("Exponent does not matter", func(t *testing.T) {
		stored := calculated
		b := *calculated.Breakdown
		b.TotalAmount = decimal.RequireFromString(b.TotalAmount.StringFixed(4))
		stored.Breakdown = &b
		assert.True(t, SameCalculation(stored, again.Period))
	})

	t.Run("New timesheet", func(t *testing.T) {
		more := append(records, record(2, "2026-09-02", domain.VerificationStatusVerified, "8", "0", "0"))
		tr, err := CalculatePeriod(calculated, more, hourlyTemplate(), nil, nil, now)
		require.NoError(t, err)
		assert.False(t, SameCalculation(calculated, tr.Period))
	})

	t.Run("Edited template", func(t *testing.T) {
		tmpl := hourlyTemplate()
		tmpl.StandbyMultiplier = decimal.RequireFromString("0.6")
		tr, err := CalculatePeriod(calculated, records, tmpl, nil, nil, now)
		require.NoError(t, err)
		assert.False(t, SameCalculation(calculated, tr.Period))
	})

	t.Run("Draft never matches", func(t *testing.T) {
		tr, err := CalculatePeriod(draftPeriod(t), records, hourlyTemplate(), nil, nil, now)
		require.NoError(t, err)
		assert.False(t, SameCalculation(draftPeriod(t), tr.Period))
	})
}

func TestApprovePeriod(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		p := calculatedPeriod(t, nil)
		tr, err := ApprovePeriod(p, 5, "checked against site log", now)
		require.NoError(t, err)
		assert.Equal(t, domain.BillingPeriodStatusApproved, tr.Period.Status)
		require.NotNil(t, tr.Period.ApprovedBy)
		assert.Equal(t, int32(5), *tr.Period.ApprovedBy)
		assert.Equal(t, "checked against site log", tr.Period.ApprovalNote)
		assert.Equal(t, domain.BillingEventPeriodApproved, tr.Events[0].Type)
	})

	t.Run("Draft cannot be approved", func(t *testing.T) {
		_, err := ApprovePeriod(draftPeriod(t), 5, "", now)
		require.Error(t, err)
		assert.True(t, ierr.IsInvalidState(err))
		assert.Equal(t, "DRAFT", ierr.Details(err)["current_status"])
	})
}

func TestInvoicePeriod(t *testing.T) {
	approved, err := ApprovePeriod(calculatedPeriod(t, nil), 5, "", now)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		tr, err := InvoicePeriod(approved.Period, "INV-202610-000001", nil, now)
		require.NoError(t, err)
		assert.Equal(t, domain.BillingPeriodStatusInvoiced, tr.Period.Status)
		assert.Equal(t, "INV-202610-000001", tr.Period.InvoiceNumber)
		assert.NotNil(t, tr.Period.InvoicedAt)

		_, err = InvoicePeriod(tr.Period, "INV-202610-000002", nil, now)
		assert.True(t, ierr.IsInvalidState(err))
	})

	t.Run("Calculated period cannot be invoiced", func(t *testing.T) {
		_, err := InvoicePeriod(calculatedPeriod(t, nil), "INV-1", nil, now)
		assert.True(t, ierr.IsInvalidState(err))
	})

	t.Run("Empty number", func(t *testing.T) {
		_, err := InvoicePeriod(approved.Period, "", nil, now)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestDeletePeriod(t *testing.T) {
	_, err := DeletePeriod(draftPeriod(t), nil, now)
	assert.NoError(t, err)

	_, err = DeletePeriod(calculatedPeriod(t, nil), nil, now)
	assert.True(t, ierr.IsInvalidState(err))
}

func TestStatusMonotonicity(t *testing.T) {
	all := []domain.BillingPeriodStatus{
		domain.BillingPeriodStatusDraft,
		domain.BillingPeriodStatusCalculated,
		domain.BillingPeriodStatusApproved,
		domain.BillingPeriodStatusInvoiced,
	}
	for _, from := range all {
		for _, to := range all {
			if !CanTransition(from, to) {
				continue
			}
			if from == to {
				assert.Equal(t, domain.BillingPeriodStatusCalculated, from)
				continue
			}
			assert.Equal(t, from.Rank()+1, to.Rank(), "%s -> %s skips or regresses", from, to)
		}
	}

	// full walk, including a recalculation
	p := draftPeriod(t)
	seen := []domain.BillingPeriodStatus{p.Status}
	tr, err := CalculatePeriod(p, nil, hourlyTemplate(), nil, nil, now)
	require.NoError(t, err)
	seen = append(seen, tr.Period.Status)
	tr, err = CalculatePeriod(tr.Period, nil, hourlyTemplate(), nil, nil, now)
	require.NoError(t, err)
	seen = append(seen, tr.Period.Status)
	tr, err = ApprovePeriod(tr.Period, 1, "", now)
	require.NoError(t, err)
	seen = append(seen, tr.Period.Status)
	tr, err = InvoicePeriod(tr.Period, "INV-1", nil, now)
	require.NoError(t, err)
	seen = append(seen, tr.Period.Status)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Rank(), seen[i-1].Rank())
	}
	assert.Equal(t, int32(5), tr.Period.Version)
}
