package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentbill-backend/internal/domain"
)

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

// MockRateTemplateRepo
type MockRateTemplateRepo struct {
	mock.Mock
}

func (m *MockRateTemplateRepo) GetByID(ctx context.Context, id int32) (*domain.RateTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateTemplate), args.Error(1)
}

// MockTimesheetRepo
type MockTimesheetRepo struct {
	mock.Mock
}

func (m *MockTimesheetRepo) ListVerified(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.TimesheetRecord, error) {
	args := m.Called(ctx, rentalID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimesheetRecord), args.Error(1)
}

// MockBillingPeriodRepo
type MockBillingPeriodRepo struct {
	mock.Mock
}

func (m *MockBillingPeriodRepo) Create(ctx context.Context, period *domain.BillingPeriod, events []domain.BillingEvent) error {
	args := m.Called(ctx, period, events)
	return args.Error(0)
}

func (m *MockBillingPeriodRepo) GetByID(ctx context.Context, id int32) (*domain.BillingPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingPeriodRepo) ListByRental(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error) {
	args := m.Called(ctx, rentalID, statuses)
	return args.Get(0).([]domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingPeriodRepo) ListByStatus(ctx context.Context, statuses []domain.BillingPeriodStatus, limit int32) ([]domain.BillingPeriod, error) {
	args := m.Called(ctx, statuses, limit)
	return args.Get(0).([]domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingPeriodRepo) FindOverlapping(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.BillingPeriod, error) {
	args := m.Called(ctx, rentalID, start, end)
	return args.Get(0).([]domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingPeriodRepo) Save(ctx context.Context, period *domain.BillingPeriod, expectedVersion int32, expectedStatus domain.BillingPeriodStatus, events []domain.BillingEvent) error {
	args := m.Called(ctx, period, expectedVersion, expectedStatus, events)
	return args.Error(0)
}

func (m *MockBillingPeriodRepo) Delete(ctx context.Context, id int32, expectedVersion int32, event domain.BillingEvent) error {
	args := m.Called(ctx, id, expectedVersion, event)
	return args.Error(0)
}

func (m *MockBillingPeriodRepo) ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error) {
	args := m.Called(ctx, periodID)
	return args.Get(0).([]domain.BillingEvent), args.Error(1)
}

// MockInvoiceNumberGenerator
type MockInvoiceNumberGenerator struct {
	mock.Mock
}

func (m *MockInvoiceNumberGenerator) Next(ctx context.Context, issuedAt time.Time) (string, error) {
	args := m.Called(ctx, issuedAt)
	return args.String(0), args.Error(1)
}

// MockBillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) period(args mock.Arguments) (*domain.BillingPeriod, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingService) CreatePeriod(ctx context.Context, actorID, rentalID int32, periodStart, periodEnd time.Time) (*domain.BillingPeriod, error) {
	return m.period(m.Called(ctx, actorID, rentalID, periodStart, periodEnd))
}

func (m *MockBillingService) CalculatePeriod(ctx context.Context, actorID *int32, periodID int32) (*domain.BillingPeriod, error) {
	return m.period(m.Called(ctx, actorID, periodID))
}

func (m *MockBillingService) ApprovePeriod(ctx context.Context, approverID, periodID int32, note string) (*domain.BillingPeriod, error) {
	return m.period(m.Called(ctx, approverID, periodID, note))
}

func (m *MockBillingService) GenerateInvoice(ctx context.Context, actorID *int32, periodID int32) (*domain.BillingPeriod, error) {
	return m.period(m.Called(ctx, actorID, periodID))
}

func (m *MockBillingService) DeletePeriod(ctx context.Context, actorID *int32, periodID int32) error {
	return m.Called(ctx, actorID, periodID).Error(0)
}

func (m *MockBillingService) GetPeriod(ctx context.Context, periodID int32) (*domain.BillingPeriod, error) {
	return m.period(m.Called(ctx, periodID))
}

func (m *MockBillingService) ListPeriods(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error) {
	args := m.Called(ctx, rentalID, statuses)
	return args.Get(0).([]domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingService) ListOpenPeriods(ctx context.Context, limit int32) ([]domain.BillingPeriod, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingService) ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error) {
	args := m.Called(ctx, periodID)
	return args.Get(0).([]domain.BillingEvent), args.Error(1)
}

func (m *MockBillingService) Preview(ctx context.Context, totals domain.HourTotals, template domain.RateTemplate) (*domain.BillingBreakdown, error) {
	args := m.Called(ctx, totals, template)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingBreakdown), args.Error(1)
}
