package billing

import (
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
)

const (
	OpCalculate       = "calculate"
	OpApprove         = "approve"
	OpGenerateInvoice = "generate invoice"
	OpDelete          = "delete"
)

// Transition is the result of applying one lifecycle operation: the next state
// of the period and the audit events it produced. Persisting both atomically is
// the caller's job.
type Transition struct {
	Period domain.BillingPeriod
	Events []domain.BillingEvent
}

// CanTransition reports whether a period may move from one status to another.
// The only self-loop is recalculation of a calculated period.
func CanTransition(from, to domain.BillingPeriodStatus) bool {
	switch from {
	case domain.BillingPeriodStatusDraft:
		return to == domain.BillingPeriodStatusCalculated
	case domain.BillingPeriodStatusCalculated:
		return to == domain.BillingPeriodStatusCalculated || to == domain.BillingPeriodStatusApproved
	case domain.BillingPeriodStatusApproved:
		return to == domain.BillingPeriodStatusInvoiced
	}
	return false
}

// NewPeriod opens a draft period for a rental. Overlap with existing periods
// is checked by the caller against its store.
func NewPeriod(rentalID int32, periodStart, periodEnd time.Time, createdBy int32, now time.Time) (Transition, error) {
	if rentalID <= 0 {
		return Transition{}, ierr.NewError("rental id is required").
			WithHint("A billing period must belong to a rental").
			Mark(ierr.ErrValidation)
	}
	start, end := DateOnly(periodStart), DateOnly(periodEnd)
	if end.Before(start) {
		return Transition{}, ierr.NewError("period end cannot be before period start").
			WithHint("Period start must be on or before period end").
			WithReportableDetails(map[string]interface{}{
				"rental_id":    rentalID,
				"period_start": start.Format(DateLayout),
				"period_end":   end.Format(DateLayout),
			}).
			Mark(ierr.ErrValidation)
	}

	p := domain.BillingPeriod{
		RentalID:    rentalID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      domain.BillingPeriodStatusDraft,
		Version:     1,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	actor := createdBy
	return Transition{
		Period: p,
		Events: []domain.BillingEvent{newEvent(p, domain.BillingEventPeriodCreated, &actor, "", p.Status, now, map[string]string{
			"period_start": start.Format(DateLayout),
			"period_end":   end.Format(DateLayout),
			"days":         strconv.Itoa(InclusiveDays(start, end)),
		})},
	}, nil
}

// CalculatePeriod aggregates the given timesheets and prices them with the
// template, storing the breakdown and a snapshot of the template. Allowed while
// the period is draft or calculated; the records must be the current verified
// set, never a cached copy.
func CalculatePeriod(
	p domain.BillingPeriod,
	records []domain.TimesheetRecord,
	template domain.RateTemplate,
	calc *Calculator,
	actorID *int32,
	now time.Time,
) (Transition, error) {
	if !CanTransition(p.Status, domain.BillingPeriodStatusCalculated) {
		return Transition{}, ierr.NewInvalidStateError(p.ID, OpCalculate, string(p.Status),
			string(domain.BillingPeriodStatusDraft), string(domain.BillingPeriodStatusCalculated))
	}
	if calc == nil {
		calc = defaultCalculator
	}

	eligible := EligibleRecords(records, p.PeriodStart, p.PeriodEnd)
	for _, r := range eligible {
		if r.OperatingHours.IsNegative() || r.StandbyHours.IsNegative() || r.BreakdownHours.IsNegative() {
			return Transition{}, ierr.NewErrorf("timesheet %d has negative hours", r.ID).
				WithHint("Timesheet hours must not be negative").
				WithReportableDetails(map[string]interface{}{
					"period_id":    p.ID,
					"timesheet_id": r.ID,
					"work_date":    r.WorkDate.Format(DateLayout),
				}).
				Mark(ierr.ErrInvalidTotals)
		}
	}

	totals := Aggregate(eligible, p.PeriodStart, p.PeriodEnd)
	breakdown, err := calc.Calculate(totals, template)
	if err != nil {
		return Transition{}, err
	}

	from := p.Status
	snapshot := template.Snapshot(now)
	calculatedAt := now

	next := p
	next.Status = domain.BillingPeriodStatusCalculated
	next.Version = p.Version + 1
	next.RateTemplateSnapshot = &snapshot
	next.Breakdown = &breakdown
	next.TimesheetIDs = totals.TimesheetIDs
	next.CalculatedAt = &calculatedAt
	next.UpdatedAt = now

	return Transition{
		Period: next,
		Events: []domain.BillingEvent{newEvent(next, domain.BillingEventPeriodCalculated, actorID, from, next.Status, now, map[string]string{
			"record_count": strconv.Itoa(totals.RecordCount),
			"subtotal":     breakdown.Subtotal.String(),
			"total_amount": breakdown.TotalAmount.String(),
			"template_id":  strconv.Itoa(int(template.ID)),
		})},
	}, nil
}

// SameCalculation reports whether next, produced by CalculatePeriod from prev,
// carries the same breakdown, template terms and timesheet set as prev. Only a
// previously calculated period can match.
func SameCalculation(prev, next domain.BillingPeriod) bool {
	if prev.Status != domain.BillingPeriodStatusCalculated {
		return false
	}
	if prev.Breakdown == nil || next.Breakdown == nil || prev.RateTemplateSnapshot == nil || next.RateTemplateSnapshot == nil {
		return false
	}
	return slices.Equal(prev.TimesheetIDs, next.TimesheetIDs) &&
		sameSnapshot(*prev.RateTemplateSnapshot, *next.RateTemplateSnapshot) &&
		sameBreakdown(*prev.Breakdown, *next.Breakdown)
}

// Decimals are compared by value; a breakdown read back from storage may carry
// a different exponent than a freshly computed one.
func sameDecimals(a, b []decimal.Decimal) bool {
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func sameSnapshot(a, b domain.RateTemplateSnapshot) bool {
	return a.TemplateID == b.TemplateID && a.RateBasis == b.RateBasis && sameDecimals(
		[]decimal.Decimal{a.RateAmount, a.MinimumHours, a.OvertimeMultiplier, a.StandbyMultiplier,
			a.BreakdownPenaltyPerDay, a.HoursPerDay, a.DaysPerMonth, a.TaxPercentage},
		[]decimal.Decimal{b.RateAmount, b.MinimumHours, b.OvertimeMultiplier, b.StandbyMultiplier,
			b.BreakdownPenaltyPerDay, b.HoursPerDay, b.DaysPerMonth, b.TaxPercentage},
	)
}

func sameBreakdown(a, b domain.BillingBreakdown) bool {
	return a.MinimumApplied == b.MinimumApplied && slices.Equal(a.Warnings, b.Warnings) && sameDecimals(
		[]decimal.Decimal{a.TotalOperatingHours, a.TotalStandbyHours, a.TotalBreakdownHours, a.BillableHours,
			a.ShortfallHours, a.StandardHoursThreshold, a.RegularHours, a.OvertimeHours, a.PerHourRate,
			a.BreakdownDays, a.BaseAmount, a.OvertimeAmount, a.StandbyAmount, a.BreakdownPenaltyAmount,
			a.Subtotal, a.TaxAmount, a.TotalAmount},
		[]decimal.Decimal{b.TotalOperatingHours, b.TotalStandbyHours, b.TotalBreakdownHours, b.BillableHours,
			b.ShortfallHours, b.StandardHoursThreshold, b.RegularHours, b.OvertimeHours, b.PerHourRate,
			b.BreakdownDays, b.BaseAmount, b.OvertimeAmount, b.StandbyAmount, b.BreakdownPenaltyAmount,
			b.Subtotal, b.TaxAmount, b.TotalAmount},
	)
}

// ApprovePeriod freezes a calculated breakdown.
func ApprovePeriod(p domain.BillingPeriod, approverID int32, note string, now time.Time) (Transition, error) {
	if p.Status != domain.BillingPeriodStatusCalculated {
		return Transition{}, ierr.NewInvalidStateError(p.ID, OpApprove, string(p.Status),
			string(domain.BillingPeriodStatusCalculated))
	}
	if p.Breakdown == nil || p.RateTemplateSnapshot == nil {
		return Transition{}, ierr.NewErrorf("billing period %d is calculated but has no breakdown", p.ID).
			WithReportableDetails(map[string]interface{}{"period_id": p.ID}).
			Mark(ierr.ErrSystem)
	}

	approvedAt := now
	approver := approverID

	next := p
	next.Status = domain.BillingPeriodStatusApproved
	next.Version = p.Version + 1
	next.ApprovedBy = &approver
	next.ApprovalNote = note
	next.ApprovedAt = &approvedAt
	next.UpdatedAt = now

	return Transition{
		Period: next,
		Events: []domain.BillingEvent{newEvent(next, domain.BillingEventPeriodApproved, &approver, p.Status, next.Status, now, map[string]string{
			"note":         note,
			"total_amount": p.Breakdown.TotalAmount.String(),
		})},
	}, nil
}

// InvoicePeriod stamps the invoice number on an approved period. The number is
// opaque and stored verbatim. Terminal.
func InvoicePeriod(p domain.BillingPeriod, invoiceNumber string, actorID *int32, now time.Time) (Transition, error) {
	if p.Status != domain.BillingPeriodStatusApproved {
		return Transition{}, ierr.NewInvalidStateError(p.ID, OpGenerateInvoice, string(p.Status),
			string(domain.BillingPeriodStatusApproved))
	}
	if invoiceNumber == "" {
		return Transition{}, ierr.NewError("invoice number is empty").
			WithReportableDetails(map[string]interface{}{"period_id": p.ID}).
			Mark(ierr.ErrValidation)
	}

	invoicedAt := now

	next := p
	next.Status = domain.BillingPeriodStatusInvoiced
	next.Version = p.Version + 1
	next.InvoiceNumber = invoiceNumber
	next.InvoicedAt = &invoicedAt
	next.UpdatedAt = now

	return Transition{
		Period: next,
		Events: []domain.BillingEvent{newEvent(next, domain.BillingEventInvoiceGenerated, actorID, p.Status, next.Status, now, map[string]string{
			"invoice_number": invoiceNumber,
		})},
	}, nil
}

// DeletePeriod checks that the period is still a draft and returns the audit
// event of its removal.
func DeletePeriod(p domain.BillingPeriod, actorID *int32, now time.Time) (domain.BillingEvent, error) {
	if p.Status != domain.BillingPeriodStatusDraft {
		return domain.BillingEvent{}, ierr.NewInvalidStateError(p.ID, OpDelete, string(p.Status),
			string(domain.BillingPeriodStatusDraft))
	}
	return newEvent(p, domain.BillingEventPeriodDeleted, actorID, p.Status, p.Status, now, nil), nil
}

func newEvent(
	p domain.BillingPeriod,
	eventType domain.BillingEventType,
	actorID *int32,
	from, to domain.BillingPeriodStatus,
	now time.Time,
	details map[string]string,
) domain.BillingEvent {
	return domain.BillingEvent{
		ID:          uuid.NewString(),
		PeriodID:    p.ID,
		Type:        eventType,
		ActorUserID: actorID,
		FromStatus:  from,
		ToStatus:    to,
		Details:     details,
		OccurredAt:  now,
	}
}
