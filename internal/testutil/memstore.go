// Package testutil provides in-memory repositories and testify mocks shared by
// the service, api and jobs tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"rentbill-backend/internal/billing"
	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/repository"
)

// MemoryStore implements every repository interface over maps guarded by one
// mutex. Save and Delete are compare-and-swap like the postgres store, so it
// can stand in for the database in concurrency tests.
type MemoryStore struct {
	mu         sync.Mutex
	rentals    map[int32]domain.Rental
	templates  map[int32]domain.RateTemplate
	timesheets []domain.TimesheetRecord
	periods    map[int32]domain.BillingPeriod
	events     []domain.BillingEvent
	nextID     int32
	invoiceSeq int64
	prefix     string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rentals:   map[int32]domain.Rental{},
		templates: map[int32]domain.RateTemplate{},
		periods:   map[int32]domain.BillingPeriod{},
		prefix:    "INV",
	}
}

func (s *MemoryStore) AddRental(r domain.Rental) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rentals[r.ID] = r
}

func (s *MemoryStore) AddTemplate(t domain.RateTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

func (s *MemoryStore) AddTimesheets(records ...domain.TimesheetRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timesheets = append(s.timesheets, records...)
}

// InvoiceNumbersIssued reports how many numbers Next handed out.
func (s *MemoryStore) InvoiceNumbersIssued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoiceSeq
}

func clonePeriod(p domain.BillingPeriod) domain.BillingPeriod {
	if p.Breakdown != nil {
		b := *p.Breakdown
		b.Warnings = append([]string(nil), b.Warnings...)
		p.Breakdown = &b
	}
	if p.RateTemplateSnapshot != nil {
		snap := *p.RateTemplateSnapshot
		p.RateTemplateSnapshot = &snap
	}
	p.TimesheetIDs = append([]int32(nil), p.TimesheetIDs...)
	return p
}

func notFound(entity string, id int32) error {
	return ierr.NewErrorf("%s %d not found", entity, id).
		WithHintf("%s not found", entity).
		Mark(ierr.ErrNotFound)
}

// Rentals returns the store as a RentalRepository, and likewise below.
func (s *MemoryStore) Rentals() repository.RentalRepository { return (*memRentals)(s) }

func (s *MemoryStore) Templates() repository.RateTemplateRepository { return (*memTemplates)(s) }

func (s *MemoryStore) Timesheets() repository.TimesheetRepository { return (*memTimesheets)(s) }

func (s *MemoryStore) Periods() repository.BillingPeriodRepository { return (*memPeriods)(s) }

func (s *MemoryStore) InvoiceNumbers() repository.InvoiceNumberGenerator { return (*memInvoiceNumbers)(s) }

type memRentals MemoryStore

func (m *memRentals) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rentals[id]
	if !ok {
		return nil, notFound("rental", id)
	}
	return &r, nil
}

type memTemplates MemoryStore

func (m *memTemplates) GetByID(ctx context.Context, id int32) (*domain.RateTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, notFound("rate template", id)
	}
	return &t, nil
}

type memTimesheets MemoryStore

func (m *memTimesheets) ListVerified(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.TimesheetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := lo.Filter(m.timesheets, func(r domain.TimesheetRecord, _ int) bool {
		return r.RentalID == rentalID && r.IsVerified() && billing.WithinInclusive(r.WorkDate, start, end)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].WorkDate.Before(out[j].WorkDate)
	})
	return out, nil
}

type memPeriods MemoryStore

func (m *memPeriods) Create(ctx context.Context, period *domain.BillingPeriod, events []domain.BillingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.periods {
		if p.RentalID == period.RentalID && p.Overlaps(period.PeriodStart, period.PeriodEnd) {
			return ierr.NewError("billing period overlaps an existing period").
				WithHint("billing period already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	m.nextID++
	period.ID = m.nextID
	m.periods[period.ID] = clonePeriod(*period)
	for i := range events {
		events[i].PeriodID = period.ID
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *memPeriods) GetByID(ctx context.Context, id int32) (*domain.BillingPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, notFound("billing period", id)
	}
	p = clonePeriod(p)
	return &p, nil
}

func (m *memPeriods) filter(keep func(domain.BillingPeriod) bool) []domain.BillingPeriod {
	out := []domain.BillingPeriod{}
	for _, p := range m.periods {
		if keep(p) {
			out = append(out, clonePeriod(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memPeriods) ListByRental(ctx context.Context, rentalID int32, statuses []domain.BillingPeriodStatus) ([]domain.BillingPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p domain.BillingPeriod) bool {
		return p.RentalID == rentalID && (len(statuses) == 0 || lo.Contains(statuses, p.Status))
	}), nil
}

func (m *memPeriods) ListByStatus(ctx context.Context, statuses []domain.BillingPeriodStatus, limit int32) ([]domain.BillingPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(p domain.BillingPeriod) bool { return lo.Contains(statuses, p.Status) })
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPeriods) FindOverlapping(ctx context.Context, rentalID int32, start, end time.Time) ([]domain.BillingPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p domain.BillingPeriod) bool {
		return p.RentalID == rentalID && p.Overlaps(start, end)
	}), nil
}

func (m *memPeriods) Save(ctx context.Context, period *domain.BillingPeriod, expectedVersion int32, expectedStatus domain.BillingPeriodStatus, events []domain.BillingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.periods[period.ID]
	if !ok || cur.Version != expectedVersion || cur.Status != expectedStatus {
		return ierr.NewConcurrentModificationError(period.ID, "save", expectedVersion)
	}
	if period.InvoiceNumber != "" {
		for id, p := range m.periods {
			if id != period.ID && p.InvoiceNumber == period.InvoiceNumber {
				return ierr.NewErrorf("invoice number %s already used", period.InvoiceNumber).
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}
	m.periods[period.ID] = clonePeriod(*period)
	m.events = append(m.events, events...)
	return nil
}

func (m *memPeriods) Delete(ctx context.Context, id int32, expectedVersion int32, event domain.BillingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.periods[id]
	if !ok {
		return notFound("billing period", id)
	}
	if cur.Version != expectedVersion || cur.Status != domain.BillingPeriodStatusDraft {
		return ierr.NewConcurrentModificationError(id, "delete", expectedVersion)
	}
	delete(m.periods, id)
	m.events = append(m.events, event)
	return nil
}

func (m *memPeriods) ListEvents(ctx context.Context, periodID int32) ([]domain.BillingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Filter(m.events, func(e domain.BillingEvent, _ int) bool { return e.PeriodID == periodID }), nil
}

type memInvoiceNumbers MemoryStore

func (m *memInvoiceNumbers) Next(ctx context.Context, issuedAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoiceSeq++
	return fmt.Sprintf("%s-%s-%06d", m.prefix, issuedAt.UTC().Format("200601"), m.invoiceSeq), nil
}
