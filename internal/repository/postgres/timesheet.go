package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentbill-backend/internal/domain"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

type timesheetRepository struct {
	db *sql.DB
}

func NewTimesheetRepository(db *sql.DB) repository.TimesheetRepository {
	return &timesheetRepository{db: db}
}

// ListVerified returns verified timesheets of a rental dated inside
// [start, end]. NULL hour columns read as zero.
func (r *timesheetRepository) ListVerified(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.TimesheetRecord, error) {
	logger.EnterMethod("timesheetRepository.ListVerified", "rentalID", rentalID, "start", start, "end", end)

	query := `
		SELECT id, rental_id, work_date,
		       COALESCE(operating_hours, 0), COALESCE(standby_hours, 0), COALESCE(breakdown_hours, 0),
		       operation_status, verification_status, verified_by, verified_at, created_at
		FROM timesheets
		WHERE rental_id = $1
		  AND verification_status = $2
		  AND work_date BETWEEN $3 AND $4
		ORDER BY work_date ASC, id ASC
	`
	logger.DatabaseCall("select", query, "rentalID", rentalID)

	rows, err := r.db.QueryContext(ctx, query, rentalID, domain.VerificationStatusVerified, start, end)
	if err != nil {
		logger.ExitMethodWithError("timesheetRepository.ListVerified", err, "rentalID", rentalID)
		return nil, translateError(err, "timesheet", map[string]interface{}{"rental_id": rentalID})
	}
	defer rows.Close()

	records := []domain.TimesheetRecord{}
	for rows.Next() {
		var ts domain.TimesheetRecord
		if err := rows.Scan(
			&ts.ID, &ts.RentalID, &ts.WorkDate,
			&ts.OperatingHours, &ts.StandbyHours, &ts.BreakdownHours,
			&ts.OperationStatus, &ts.VerificationStatus, &ts.VerifiedBy, &ts.VerifiedAt, &ts.CreatedAt,
		); err != nil {
			logger.ExitMethodWithError("timesheetRepository.ListVerified", err, "rentalID", rentalID)
			return nil, translateError(err, "timesheet", map[string]interface{}{"rental_id": rentalID})
		}
		records = append(records, ts)
	}
	if err := rows.Err(); err != nil {
		logger.ExitMethodWithError("timesheetRepository.ListVerified", err, "rentalID", rentalID)
		return nil, translateError(err, "timesheet", map[string]interface{}{"rental_id": rentalID})
	}

	logger.ExitMethod("timesheetRepository.ListVerified", "rentalID", rentalID, "count", len(records))
	return records, nil
}
