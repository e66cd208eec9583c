package repository

import (
	"context"
	"time"

	"rentbill-backend/internal/domain"
)

// RentalRepository reads rentals owned by the asset service.
type RentalRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
}

// RateTemplateRepository reads contractual terms. Templates are edited
// elsewhere; billing never writes them.
type RateTemplateRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.RateTemplate, error)
}

// TimesheetRepository reads field timesheets. Billing never mutates them.
type TimesheetRepository interface {
	ListVerified(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.TimesheetRecord, error)
}

// BillingPeriodRepository persists billing periods together with the audit
// events of each transition. Writes that change an existing period are
// compare-and-swap on (version, status) and fail with
// errors.ErrConcurrentModification when the stored row moved on.
type BillingPeriodRepository interface {
	Create(ctx context.Context, period *domain.BillingPeriod, events []domain.BillingEvent) error
	GetByID(ctx context.Context, id int32) (*domain.BillingPeriod, error)
	ListByRental(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error)
	ListByStatus(ctx context.Context, statuses []domain.BillingPeriodStatus, limit int32) ([]domain.BillingPeriod, error)
	FindOverlapping(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.BillingPeriod, error)
	Save(ctx context.Context, period *domain.BillingPeriod, expectedVersion int32, expectedStatus domain.BillingPeriodStatus, events []domain.BillingEvent) error
	Delete(ctx context.Context, id int32, expectedVersion int32, event domain.BillingEvent) error
	ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error)
}

// InvoiceNumberGenerator issues unique, monotonically increasing invoice
// numbers. The returned value is opaque to billing.
type InvoiceNumberGenerator interface {
	Next(ctx context.Context, issuedAt time.Time) (string, error)
}
