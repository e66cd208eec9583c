package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

// Store bundles every Postgres-backed repository.
type Store struct {
	repository.RentalRepository
	repository.RateTemplateRepository
	repository.TimesheetRepository
	repository.BillingPeriodRepository
	repository.InvoiceNumberGenerator
}

func NewStore(db *sql.DB, invoicePrefix string) *Store {
	return &Store{
		RentalRepository:        NewRentalRepository(db),
		RateTemplateRepository:  NewRateTemplateRepository(db),
		TimesheetRepository:     NewTimesheetRepository(db),
		BillingPeriodRepository: NewBillingPeriodRepository(db),
		InvoiceNumberGenerator:  NewInvoiceNumberGenerator(db, invoicePrefix),
	}
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("Failed to roll back transaction", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// PostgreSQL error codes we translate.
const (
	uniqueViolation    = "23505"
	exclusionViolation = "23P01"
)

// translateError maps driver errors onto the error taxonomy.
func translateError(err error, entity string, details map[string]interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case uniqueViolation, exclusionViolation:
			return ierr.WithError(err).
				WithHintf("%s already exists", entity).
				WithReportableDetails(details).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return ierr.WithError(err).
		WithHintf("Failed to access %s", entity).
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}
