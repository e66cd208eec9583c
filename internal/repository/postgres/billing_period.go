package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

type billingPeriodRepository struct {
	db *sql.DB
}

func NewBillingPeriodRepository(db *sql.DB) repository.BillingPeriodRepository {
	return &billingPeriodRepository{db: db}
}

const billingPeriodColumns = `id, rental_id, period_start, period_end, status, version,
		rate_template_snapshot, breakdown, timesheet_ids, calculated_at,
		approved_by, approval_note, approved_at, invoice_number, invoiced_at,
		created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBillingPeriod(row rowScanner) (*domain.BillingPeriod, error) {
	var (
		p             domain.BillingPeriod
		snapshotJSON  []byte
		breakdownJSON []byte
		timesheetIDs  pq.Int64Array
		invoiceNumber sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.RentalID, &p.PeriodStart, &p.PeriodEnd, &p.Status, &p.Version,
		&snapshotJSON, &breakdownJSON, &timesheetIDs, &p.CalculatedAt,
		&p.ApprovedBy, &p.ApprovalNote, &p.ApprovedAt, &invoiceNumber, &p.InvoicedAt,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(snapshotJSON) > 0 {
		p.RateTemplateSnapshot = &domain.RateTemplateSnapshot{}
		if err := json.Unmarshal(snapshotJSON, p.RateTemplateSnapshot); err != nil {
			return nil, err
		}
	}
	if len(breakdownJSON) > 0 {
		p.Breakdown = &domain.BillingBreakdown{}
		if err := json.Unmarshal(breakdownJSON, p.Breakdown); err != nil {
			return nil, err
		}
	}
	if len(timesheetIDs) > 0 {
		p.TimesheetIDs = lo.Map(timesheetIDs, func(id int64, _ int) int32 { return int32(id) })
	}
	p.InvoiceNumber = invoiceNumber.String
	return &p, nil
}

// periodColumnsValues encodes the mutable columns of a period.
func periodColumnsValues(p *domain.BillingPeriod) (snapshot, breakdown []byte, ids pq.Int64Array, invoiceNumber sql.NullString, err error) {
	if p.RateTemplateSnapshot != nil {
		if snapshot, err = json.Marshal(p.RateTemplateSnapshot); err != nil {
			return
		}
	}
	if p.Breakdown != nil {
		if breakdown, err = json.Marshal(p.Breakdown); err != nil {
			return
		}
	}
	ids = lo.Map(p.TimesheetIDs, func(id int32, _ int) int64 { return int64(id) })
	invoiceNumber = sql.NullString{String: p.InvoiceNumber, Valid: p.InvoiceNumber != ""}
	return
}

func (r *billingPeriodRepository) Create(ctx context.Context, period *domain.BillingPeriod, events []domain.BillingEvent) error {
	logger.EnterMethod("billingPeriodRepository.Create", "rentalID", period.RentalID)

	snapshot, breakdown, ids, invoiceNumber, err := periodColumnsValues(period)
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.Create", err)
		return ierr.WithError(err).WithHint("Failed to encode billing period").Mark(ierr.ErrSystem)
	}

	query := `
		INSERT INTO billing_periods (rental_id, period_start, period_end, status, version,
			rate_template_snapshot, breakdown, timesheet_ids, calculated_at,
			approved_by, approval_note, approved_at, invoice_number, invoiced_at,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		logger.DatabaseCall("insert", query, "rentalID", period.RentalID)
		if err := tx.QueryRowContext(ctx, query,
			period.RentalID, period.PeriodStart, period.PeriodEnd, period.Status, period.Version,
			snapshot, breakdown, ids, period.CalculatedAt,
			period.ApprovedBy, period.ApprovalNote, period.ApprovedAt, invoiceNumber, period.InvoicedAt,
			period.CreatedBy, period.CreatedAt, period.UpdatedAt,
		).Scan(&period.ID); err != nil {
			return err
		}
		for i := range events {
			events[i].PeriodID = period.ID
		}
		return insertEvents(ctx, tx, events)
	})
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.Create", err, "rentalID", period.RentalID)
		return translateError(err, "billing period", map[string]interface{}{
			"rental_id":    period.RentalID,
			"period_start": period.PeriodStart,
			"period_end":   period.PeriodEnd,
		})
	}

	logger.ExitMethod("billingPeriodRepository.Create", "periodID", period.ID)
	return nil
}

func (r *billingPeriodRepository) GetByID(ctx context.Context, id int32) (*domain.BillingPeriod, error) {
	logger.EnterMethod("billingPeriodRepository.GetByID", "periodID", id)

	query := `SELECT ` + billingPeriodColumns + ` FROM billing_periods WHERE id = $1`
	p, err := scanBillingPeriod(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.GetByID", err, "periodID", id)
		return nil, translateError(err, "billing period", map[string]interface{}{"period_id": id})
	}

	logger.ExitMethod("billingPeriodRepository.GetByID", "periodID", id, "status", p.Status)
	return p, nil
}

func (r *billingPeriodRepository) ListByRental(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error) {
	logger.EnterMethod("billingPeriodRepository.ListByRental", "rentalID", rentalID, "statuses", statuses)

	query := `SELECT ` + billingPeriodColumns + `
		FROM billing_periods
		WHERE rental_id = $1 AND ($2::text[] IS NULL OR status = ANY($2))
		ORDER BY period_start ASC, id ASC`
	periods, err := r.list(ctx, query, rentalID, statusArray(statuses))
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.ListByRental", err, "rentalID", rentalID)
		return nil, translateError(err, "billing period", map[string]interface{}{"rental_id": rentalID})
	}

	logger.ExitMethod("billingPeriodRepository.ListByRental", "rentalID", rentalID, "count", len(periods))
	return periods, nil
}

func (r *billingPeriodRepository) ListByStatus(ctx context.Context, statuses []domain.BillingPeriodStatus, limit int32) ([]domain.BillingPeriod, error) {
	logger.EnterMethod("billingPeriodRepository.ListByStatus", "statuses", statuses, "limit", limit)

	query := `SELECT ` + billingPeriodColumns + `
		FROM billing_periods
		WHERE status = ANY($1)
		ORDER BY id ASC
		LIMIT $2`
	periods, err := r.list(ctx, query, statusArray(statuses), limit)
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.ListByStatus", err)
		return nil, translateError(err, "billing period", map[string]interface{}{"statuses": statuses})
	}

	logger.ExitMethod("billingPeriodRepository.ListByStatus", "count", len(periods))
	return periods, nil
}

func (r *billingPeriodRepository) FindOverlapping(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.BillingPeriod, error) {
	logger.EnterMethod("billingPeriodRepository.FindOverlapping", "rentalID", rentalID, "start", start, "end", end)

	query := `SELECT ` + billingPeriodColumns + `
		FROM billing_periods
		WHERE rental_id = $1 AND period_start <= $3 AND period_end >= $2
		ORDER BY period_start ASC`
	periods, err := r.list(ctx, query, rentalID, start, end)
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.FindOverlapping", err, "rentalID", rentalID)
		return nil, translateError(err, "billing period", map[string]interface{}{"rental_id": rentalID})
	}

	logger.ExitMethod("billingPeriodRepository.FindOverlapping", "rentalID", rentalID, "count", len(periods))
	return periods, nil
}

func (r *billingPeriodRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.BillingPeriod, error) {
	logger.DatabaseCall("select", query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := []domain.BillingPeriod{}
	for rows.Next() {
		p, err := scanBillingPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

// Save writes period only if the stored row still carries expectedVersion and
// expectedStatus. The events are inserted in the same transaction.
func (r *billingPeriodRepository) Save(ctx context.Context, period *domain.BillingPeriod, expectedVersion int32, expectedStatus domain.BillingPeriodStatus, events []domain.BillingEvent) error {
	logger.EnterMethod("billingPeriodRepository.Save", "periodID", period.ID, "expectedVersion", expectedVersion, "expectedStatus", expectedStatus)

	snapshot, breakdown, ids, invoiceNumber, err := periodColumnsValues(period)
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.Save", err)
		return ierr.WithError(err).WithHint("Failed to encode billing period").Mark(ierr.ErrSystem)
	}

	query := `
		UPDATE billing_periods
		SET status = $1, version = $2, rate_template_snapshot = $3, breakdown = $4, timesheet_ids = $5,
		    calculated_at = $6, approved_by = $7, approval_note = $8, approved_at = $9,
		    invoice_number = $10, invoiced_at = $11, updated_at = $12
		WHERE id = $13 AND version = $14 AND status = $15
	`
	var casLost bool
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		logger.DatabaseCall("update", query, "periodID", period.ID)
		res, err := tx.ExecContext(ctx, query,
			period.Status, period.Version, snapshot, breakdown, ids,
			period.CalculatedAt, period.ApprovedBy, period.ApprovalNote, period.ApprovedAt,
			invoiceNumber, period.InvoicedAt, period.UpdatedAt,
			period.ID, expectedVersion, expectedStatus,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		logger.DatabaseResult("update", n, err, "periodID", period.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			casLost = true
			return sql.ErrNoRows
		}
		return insertEvents(ctx, tx, events)
	})
	if casLost {
		logger.ExitMethod("billingPeriodRepository.Save", "periodID", period.ID, "result", "version conflict")
		return ierr.NewConcurrentModificationError(period.ID, "save", expectedVersion)
	}
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.Save", err, "periodID", period.ID)
		return translateError(err, "billing period", map[string]interface{}{"period_id": period.ID})
	}

	logger.ExitMethod("billingPeriodRepository.Save", "periodID", period.ID, "version", period.Version)
	return nil
}

// Delete removes a DRAFT period at expectedVersion and records event.
func (r *billingPeriodRepository) Delete(ctx context.Context, id int32, expectedVersion int32, event domain.BillingEvent) error {
	logger.EnterMethod("billingPeriodRepository.Delete", "periodID", id, "expectedVersion", expectedVersion)

	query := `DELETE FROM billing_periods WHERE id = $1 AND version = $2 AND status = $3`
	var casLost, missing bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		logger.DatabaseCall("delete", query, "periodID", id)
		res, err := tx.ExecContext(ctx, query, id, expectedVersion, domain.BillingPeriodStatusDraft)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		logger.DatabaseResult("delete", n, err, "periodID", id)
		if err != nil {
			return err
		}
		if n == 0 {
			// Tell a deleted row apart from a stale version.
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM billing_periods WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			casLost, missing = exists, !exists
			return sql.ErrNoRows
		}
		return insertEvents(ctx, tx, []domain.BillingEvent{event})
	})
	if missing {
		logger.ExitMethod("billingPeriodRepository.Delete", "periodID", id, "result", "not found")
		return translateError(sql.ErrNoRows, "billing period", map[string]interface{}{"period_id": id})
	}
	if casLost {
		logger.ExitMethod("billingPeriodRepository.Delete", "periodID", id, "result", "version conflict")
		return ierr.NewConcurrentModificationError(id, "delete", expectedVersion)
	}
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.Delete", err, "periodID", id)
		return translateError(err, "billing period", map[string]interface{}{"period_id": id})
	}

	logger.ExitMethod("billingPeriodRepository.Delete", "periodID", id)
	return nil
}

func (r *billingPeriodRepository) ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error) {
	logger.EnterMethod("billingPeriodRepository.ListEvents", "periodID", periodID)

	query := `
		SELECT id, period_id, event_type, actor_user_id, from_status, to_status, details, occurred_at
		FROM billing_period_events
		WHERE period_id = $1
		ORDER BY occurred_at ASC, seq ASC
	`
	logger.DatabaseCall("select", query, "periodID", periodID)
	rows, err := r.db.QueryContext(ctx, query, periodID)
	if err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.ListEvents", err, "periodID", periodID)
		return nil, translateError(err, "billing event", map[string]interface{}{"period_id": periodID})
	}
	defer rows.Close()

	events := []domain.BillingEvent{}
	for rows.Next() {
		var (
			ev      domain.BillingEvent
			details []byte
		)
		if err := rows.Scan(&ev.ID, &ev.PeriodID, &ev.Type, &ev.ActorUserID, &ev.FromStatus, &ev.ToStatus, &details, &ev.OccurredAt); err != nil {
			logger.ExitMethodWithError("billingPeriodRepository.ListEvents", err, "periodID", periodID)
			return nil, translateError(err, "billing event", map[string]interface{}{"period_id": periodID})
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				logger.ExitMethodWithError("billingPeriodRepository.ListEvents", err, "periodID", periodID)
				return nil, ierr.WithError(err).WithHint("Failed to decode billing event").Mark(ierr.ErrSystem)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		logger.ExitMethodWithError("billingPeriodRepository.ListEvents", err, "periodID", periodID)
		return nil, translateError(err, "billing event", map[string]interface{}{"period_id": periodID})
	}

	logger.ExitMethod("billingPeriodRepository.ListEvents", "periodID", periodID, "count", len(events))
	return events, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, events []domain.BillingEvent) error {
	query := `
		INSERT INTO billing_period_events (id, period_id, event_type, actor_user_id, from_status, to_status, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, ev := range events {
		details, err := json.Marshal(ev.Details)
		if err != nil {
			return err
		}
		logger.DatabaseCall("insert", query, "periodID", ev.PeriodID, "eventType", ev.Type)
		if _, err := tx.ExecContext(ctx, query,
			ev.ID, ev.PeriodID, ev.Type, ev.ActorUserID, ev.FromStatus, ev.ToStatus, details, ev.OccurredAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// statusArray renders statuses as a text[] parameter; empty means "any".
func statusArray(statuses []domain.BillingPeriodStatus) interface{} {
	if len(statuses) == 0 {
		return pq.StringArray(nil)
	}
	return pq.StringArray(lo.Map(statuses, func(s domain.BillingPeriodStatus, _ int) string { return string(s) }))
}
