package service

import (
	"context"
	"time"

	"rentbill-backend/internal/domain"
)

// BillingService drives billing periods through their lifecycle. Every
// mutating call loads the period, applies one engine transition and persists
// it with a compare-and-swap on the version it loaded.
type BillingService interface {
	CreatePeriod(ctx context.Context, actorID, rentalID int32, periodStart, periodEnd time.Time) (*domain.BillingPeriod, error)
	CalculatePeriod(ctx context.Context, actorID *int32, periodID int32) (*domain.BillingPeriod, error)
	ApprovePeriod(ctx context.Context, approverID, periodID int32, note string) (*domain.BillingPeriod, error)
	GenerateInvoice(ctx context.Context, actorID *int32, periodID int32) (*domain.BillingPeriod, error)
	DeletePeriod(ctx context.Context, actorID *int32, periodID int32) error

	GetPeriod(ctx context.Context, periodID int32) (*domain.BillingPeriod, error)
	ListPeriods(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error)
	ListOpenPeriods(ctx context.Context, limit int32) ([]domain.BillingPeriod, error)
	ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error)

	// Preview prices totals against a template without touching storage.
	Preview(ctx context.Context, totals domain.HourTotals, template domain.RateTemplate) (*domain.BillingBreakdown, error)
}
