package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"rentbill-backend/internal/billing"
	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

type billingService struct {
	rentalRepo     repository.RentalRepository
	templateRepo   repository.RateTemplateRepository
	timesheetRepo  repository.TimesheetRepository
	periodRepo     repository.BillingPeriodRepository
	invoiceNumbers repository.InvoiceNumberGenerator
	calc           *billing.Calculator
	now            func() time.Time
}

// Option customizes a billing service.
type Option func(*billingService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *billingService) { s.now = now }
}

// WithCalculator replaces the default two-decimal calculator.
func WithCalculator(calc *billing.Calculator) Option {
	return func(s *billingService) { s.calc = calc }
}

func NewBillingService(
	rentalRepo repository.RentalRepository,
	templateRepo repository.RateTemplateRepository,
	timesheetRepo repository.TimesheetRepository,
	periodRepo repository.BillingPeriodRepository,
	invoiceNumbers repository.InvoiceNumberGenerator,
	opts ...Option,
) BillingService {
	s := &billingService{
		rentalRepo:     rentalRepo,
		templateRepo:   templateRepo,
		timesheetRepo:  timesheetRepo,
		periodRepo:     periodRepo,
		invoiceNumbers: invoiceNumbers,
		calc:           billing.NewCalculator(billing.DefaultAmountPrecision),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *billingService) CreatePeriod(ctx context.Context, actorID, rentalID int32, periodStart, periodEnd time.Time) (*domain.BillingPeriod, error) {
	logger.EnterMethod("billingService.CreatePeriod", "actorID", actorID, "rentalID", rentalID, "start", periodStart, "end", periodEnd)

	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		logger.ExitMethodWithError("billingService.CreatePeriod", err, "rentalID", rentalID)
		return nil, err
	}
	if !rental.IsBillable() {
		err := ierr.NewErrorf("rental %d is %s", rentalID, rental.Status).
			WithHintf("Billing periods cannot be opened for a %s rental", rental.Status).
			WithReportableDetails(map[string]interface{}{"rental_id": rentalID, "rental_status": rental.Status}).
			Mark(ierr.ErrValidation)
		logger.ExitMethodWithError("billingService.CreatePeriod", err, "rentalID", rentalID)
		return nil, err
	}

	tr, err := billing.NewPeriod(rentalID, periodStart, periodEnd, actorID, s.now().UTC())
	if err != nil {
		logger.ExitMethodWithError("billingService.CreatePeriod", err, "rentalID", rentalID)
		return nil, err
	}

	overlapping, err := s.periodRepo.FindOverlapping(ctx, rentalID, tr.Period.PeriodStart, tr.Period.PeriodEnd)
	if err != nil {
		logger.ExitMethodWithError("billingService.CreatePeriod", err, "rentalID", rentalID)
		return nil, err
	}
	if len(overlapping) > 0 {
		ids := lo.Map(overlapping, func(p domain.BillingPeriod, _ int) int32 { return p.ID })
		err := ierr.NewErrorf("billing period %s..%s overlaps periods %v of rental %d",
			tr.Period.PeriodStart.Format(billing.DateLayout), tr.Period.PeriodEnd.Format(billing.DateLayout), ids, rentalID).
			WithHint("A billing period already covers part of these dates").
			WithReportableDetails(map[string]interface{}{"rental_id": rentalID, "overlapping_period_ids": ids}).
			Mark(ierr.ErrAlreadyExists)
		logger.ExitMethodWithError("billingService.CreatePeriod", err, "rentalID", rentalID)
		return nil, err
	}

	period := tr.Period
	if err := s.periodRepo.Create(ctx, &period, tr.Events); err != nil {
		logger.ExitMethodWithError("billingService.CreatePeriod", err, "rentalID", rentalID)
		return nil, err
	}

	logger.Info("Billing period created", "periodID", period.ID, "rentalID", rentalID)
	logger.ExitMethod("billingService.CreatePeriod", "periodID", period.ID)
	return &period, nil
}

func (s *billingService) CalculatePeriod(ctx context.Context, actorID *int32, periodID int32) (*domain.BillingPeriod, error) {
	logger.EnterMethod("billingService.CalculatePeriod", "periodID", periodID)

	p, err := s.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}
	if !billing.CanTransition(p.Status, domain.BillingPeriodStatusCalculated) {
		err := ierr.NewInvalidStateError(p.ID, billing.OpCalculate, string(p.Status),
			string(domain.BillingPeriodStatusDraft), string(domain.BillingPeriodStatusCalculated))
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}

	rental, err := s.rentalRepo.GetByID(ctx, p.RentalID)
	if err != nil {
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}
	template, err := s.templateRepo.GetByID(ctx, rental.RateTemplateID)
	if err != nil {
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}
	records, err := s.timesheetRepo.ListVerified(ctx, p.RentalID, p.PeriodStart, p.PeriodEnd)
	if err != nil {
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}

	tr, err := billing.CalculatePeriod(*p, records, *template, s.calc, actorID, s.now().UTC())
	if err != nil {
		if ierr.IsInvalidTemplate(err) {
			s.invalidateTemplate(template.ID)
		}
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}
	if billing.SameCalculation(*p, tr.Period) {
		logger.ExitMethod("billingService.CalculatePeriod", "periodID", periodID, "version", p.Version, "result", "unchanged")
		return p, nil
	}
	if err := s.periodRepo.Save(ctx, &tr.Period, p.Version, p.Status, tr.Events); err != nil {
		logger.ExitMethodWithError("billingService.CalculatePeriod", err, "periodID", periodID)
		return nil, err
	}

	for _, w := range tr.Period.Breakdown.Warnings {
		logger.Warn("Billing calculation warning", "periodID", periodID, "warning", w)
	}
	logger.ExitMethod("billingService.CalculatePeriod", "periodID", periodID,
		"version", tr.Period.Version, "total", tr.Period.Breakdown.TotalAmount.String())
	return &tr.Period, nil
}

// invalidateTemplate drops a cached template that failed validation so a
// corrected version is read on the next attempt.
func (s *billingService) invalidateTemplate(id int32) {
	if inv, ok := s.templateRepo.(interface{ Invalidate(id int32) }); ok {
		inv.Invalidate(id)
	}
}

func (s *billingService) ApprovePeriod(ctx context.Context, approverID, periodID int32, note string) (*domain.BillingPeriod, error) {
	logger.EnterMethod("billingService.ApprovePeriod", "approverID", approverID, "periodID", periodID)

	p, err := s.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		logger.ExitMethodWithError("billingService.ApprovePeriod", err, "periodID", periodID)
		return nil, err
	}

	tr, err := billing.ApprovePeriod(*p, approverID, note, s.now().UTC())
	if err != nil {
		logger.ExitMethodWithError("billingService.ApprovePeriod", err, "periodID", periodID)
		return nil, err
	}
	if err := s.periodRepo.Save(ctx, &tr.Period, p.Version, p.Status, tr.Events); err != nil {
		logger.ExitMethodWithError("billingService.ApprovePeriod", err, "periodID", periodID)
		return nil, err
	}

	logger.Info("Billing period approved", "periodID", periodID, "approverID", approverID)
	logger.ExitMethod("billingService.ApprovePeriod", "periodID", periodID)
	return &tr.Period, nil
}

// GenerateInvoice issues exactly one invoice per period. When two callers race,
// the loser's compare-and-swap fails, and after reloading it reports the period
// as already invoiced. Its drawn number is discarded, leaving a gap in the
// sequence.
func (s *billingService) GenerateInvoice(ctx context.Context, actorID *int32, periodID int32) (*domain.BillingPeriod, error) {
	logger.EnterMethod("billingService.GenerateInvoice", "periodID", periodID)

	p, err := s.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		logger.ExitMethodWithError("billingService.GenerateInvoice", err, "periodID", periodID)
		return nil, err
	}
	if !billing.CanTransition(p.Status, domain.BillingPeriodStatusInvoiced) {
		err := ierr.NewInvalidStateError(p.ID, billing.OpGenerateInvoice, string(p.Status),
			string(domain.BillingPeriodStatusApproved))
		logger.ExitMethodWithError("billingService.GenerateInvoice", err, "periodID", periodID)
		return nil, err
	}

	now := s.now().UTC()
	number, err := s.invoiceNumbers.Next(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("billingService.GenerateInvoice", err, "periodID", periodID)
		return nil, err
	}

	tr, err := billing.InvoicePeriod(*p, number, actorID, now)
	if err != nil {
		logger.ExitMethodWithError("billingService.GenerateInvoice", err, "periodID", periodID)
		return nil, err
	}

	if err := s.periodRepo.Save(ctx, &tr.Period, p.Version, p.Status, tr.Events); err != nil {
		if ierr.IsConcurrentModification(err) {
			logger.Warn("Invoice number discarded after lost race", "periodID", periodID, "invoiceNumber", number)
			err = s.resolveInvoiceConflict(ctx, periodID, err)
		}
		logger.ExitMethodWithError("billingService.GenerateInvoice", err, "periodID", periodID)
		return nil, err
	}

	logger.Info("Invoice generated", "periodID", periodID, "invoiceNumber", number)
	logger.ExitMethod("billingService.GenerateInvoice", "periodID", periodID, "invoiceNumber", number)
	return &tr.Period, nil
}

// resolveInvoiceConflict turns a lost invoice CAS into InvalidState when the
// period moved past APPROVED, so the caller sees "already invoiced" rather
// than a retryable conflict.
func (s *billingService) resolveInvoiceConflict(ctx context.Context, periodID int32, casErr error) error {
	current, err := s.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		return casErr
	}
	if current.Status != domain.BillingPeriodStatusApproved {
		return ierr.NewInvalidStateError(periodID, billing.OpGenerateInvoice, string(current.Status),
			string(domain.BillingPeriodStatusApproved))
	}
	return casErr
}

func (s *billingService) DeletePeriod(ctx context.Context, actorID *int32, periodID int32) error {
	logger.EnterMethod("billingService.DeletePeriod", "periodID", periodID)

	p, err := s.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		logger.ExitMethodWithError("billingService.DeletePeriod", err, "periodID", periodID)
		return err
	}
	event, err := billing.DeletePeriod(*p, actorID, s.now().UTC())
	if err != nil {
		logger.ExitMethodWithError("billingService.DeletePeriod", err, "periodID", periodID)
		return err
	}
	if err := s.periodRepo.Delete(ctx, p.ID, p.Version, event); err != nil {
		logger.ExitMethodWithError("billingService.DeletePeriod", err, "periodID", periodID)
		return err
	}

	logger.Info("Billing period deleted", "periodID", periodID)
	logger.ExitMethod("billingService.DeletePeriod", "periodID", periodID)
	return nil
}

func (s *billingService) GetPeriod(ctx context.Context, periodID int32) (*domain.BillingPeriod, error) {
	return s.periodRepo.GetByID(ctx, periodID)
}

func (s *billingService) ListPeriods(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error) {
	logger.EnterMethod("billingService.ListPeriods", "rentalID", rentalID, "statuses", statuses)

	for _, st := range statuses {
		if !st.IsValid() {
			err := ierr.NewErrorf("unknown billing period status %q", st).
				WithHint("Status must be DRAFT, CALCULATED, APPROVED or INVOICED").
				Mark(ierr.ErrValidation)
			logger.ExitMethodWithError("billingService.ListPeriods", err, "rentalID", rentalID)
			return nil, err
		}
	}
	if _, err := s.rentalRepo.GetByID(ctx, rentalID); err != nil {
		logger.ExitMethodWithError("billingService.ListPeriods", err, "rentalID", rentalID)
		return nil, err
	}

	periods, err := s.periodRepo.ListByRental(ctx, rentalID, statuses)
	if err != nil {
		logger.ExitMethodWithError("billingService.ListPeriods", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("billingService.ListPeriods", "rentalID", rentalID, "count", len(periods))
	return periods, nil
}

// ListOpenPeriods returns periods that may still be recalculated.
func (s *billingService) ListOpenPeriods(ctx context.Context, limit int32) ([]domain.BillingPeriod, error) {
	return s.periodRepo.ListByStatus(ctx, []domain.BillingPeriodStatus{
		domain.BillingPeriodStatusDraft,
		domain.BillingPeriodStatusCalculated,
	}, limit)
}

func (s *billingService) ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error) {
	return s.periodRepo.ListEvents(ctx, periodID)
}

func (s *billingService) Preview(ctx context.Context, totals domain.HourTotals, template domain.RateTemplate) (*domain.BillingBreakdown, error) {
	breakdown, err := s.calc.Calculate(totals, template)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}
