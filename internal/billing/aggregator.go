package billing

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"rentbill-backend/internal/domain"
)

// Aggregate sums the hours of verified timesheets whose work date falls inside
// [periodStart, periodEnd]. An empty input yields zero totals.
func Aggregate(records []domain.TimesheetRecord, periodStart, periodEnd time.Time) domain.HourTotals {
	eligible := EligibleRecords(records, periodStart, periodEnd)

	totals := domain.HourTotals{
		TotalOperatingHours: decimal.Zero,
		TotalStandbyHours:   decimal.Zero,
		TotalBreakdownHours: decimal.Zero,
		RecordCount:         len(eligible),
		TimesheetIDs:        make([]int32, 0, len(eligible)),
	}
	for _, r := range eligible {
		totals.TotalOperatingHours = totals.TotalOperatingHours.Add(r.OperatingHours)
		totals.TotalStandbyHours = totals.TotalStandbyHours.Add(r.StandbyHours)
		totals.TotalBreakdownHours = totals.TotalBreakdownHours.Add(r.BreakdownHours)
		totals.TimesheetIDs = append(totals.TimesheetIDs, r.ID)
	}
	return totals
}

// EligibleRecords returns the verified records dated inside the period, in
// input order.
func EligibleRecords(records []domain.TimesheetRecord, periodStart, periodEnd time.Time) []domain.TimesheetRecord {
	return lo.Filter(records, func(r domain.TimesheetRecord, _ int) bool {
		return r.IsVerified() && WithinInclusive(r.WorkDate, periodStart, periodEnd)
	})
}
