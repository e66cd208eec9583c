package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	api "rentbill-backend/internal/api/http"
	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/security"
	"rentbill-backend/internal/service"
	"rentbill-backend/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	router   http.Handler
	tokens   security.TokenManager
	clerk    string
	approver string
	system   string
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewMemoryStore()
	store.AddTemplate(domain.RateTemplate{
		ID: 1, RateBasis: domain.RateBasisHourly, RateAmount: dec("100000"), MinimumHours: dec("200"),
		OvertimeMultiplier: dec("1.25"), StandbyMultiplier: dec("0.5"), BreakdownPenaltyPerDay: dec("50000"),
		HoursPerDay: dec("8"), DaysPerMonth: dec("25"), TaxPercentage: dec("11"),
	})
	store.AddRental(domain.Rental{ID: 7, RateTemplateID: 1, Status: domain.RentalStatusActive})
	store.AddTimesheets(domain.TimesheetRecord{
		ID: 1, RentalID: 7, WorkDate: time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		OperatingHours: dec("180"), StandbyHours: dec("10"), VerificationStatus: domain.VerificationStatusVerified,
	})

	svc := service.NewBillingService(store.Rentals(), store.Templates(), store.Timesheets(), store.Periods(), store.InvoiceNumbers())
	tm := security.NewTokenManager(testSecret, time.Hour)

	clerk, err := tm.GenerateAccessToken(42, "clerk@example.com", []string{security.RoleBillingClerk})
	require.NoError(t, err)
	approver, err := tm.GenerateAccessToken(99, "lead@example.com", []string{security.RoleBillingApprover})
	require.NoError(t, err)
	system, err := tm.GenerateServiceToken("recalc-job", nil)
	require.NoError(t, err)

	return &fixture{router: api.NewRouter(svc, tm), tokens: tm, clerk: clerk, approver: approver, system: system}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		reader = &buf
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

type errorEnvelope struct {
	Error api.ErrorBody `json:"error"`
}

func TestBillingAPI_Lifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rentals/7/billing-periods", f.clerk,
		map[string]string{"period_start": "2026-09-01", "period_end": "2026-09-30"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.BillingPeriod
	decodeInto(t, rec, &created)
	assert.Equal(t, domain.BillingPeriodStatusDraft, created.Status)

	rec = f.do(t, http.MethodPost, "/api/v1/billing-periods/1/calculate", f.system, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var calculated domain.BillingPeriod
	decodeInto(t, rec, &calculated)
	require.NotNil(t, calculated.Breakdown)
	assert.True(t, calculated.Breakdown.TotalAmount.Equal(dec("22755000")))

	rec = f.do(t, http.MethodPost, "/api/v1/billing-periods/1/approve", f.clerk, map[string]string{"note": "ok"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/billing-periods/1/approve", f.approver, map[string]string{"note": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/billing-periods/1/invoice", f.approver, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var invoiced domain.BillingPeriod
	decodeInto(t, rec, &invoiced)
	assert.Equal(t, domain.BillingPeriodStatusInvoiced, invoiced.Status)
	assert.NotEmpty(t, invoiced.InvoiceNumber)

	rec = f.do(t, http.MethodPost, "/api/v1/billing-periods/1/invoice", f.approver, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var env errorEnvelope
	decodeInto(t, rec, &env)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)
	assert.False(t, env.Error.Retryable)
	assert.Equal(t, "INVOICED", env.Error.Details["current_status"])

	rec = f.do(t, http.MethodGet, "/api/v1/billing-periods/1/events", f.clerk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events api.ListEventsResponse
	decodeInto(t, rec, &events)
	assert.Len(t, events.Events, 4)

	rec = f.do(t, http.MethodGet, "/api/v1/rentals/7/billing-periods?status=invoiced", f.clerk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.ListPeriodsResponse
	decodeInto(t, rec, &list)
	assert.Len(t, list.Periods, 1)
}

func TestBillingAPI_Auth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/api/v1/billing-periods/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/billing-periods/1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals/7/billing-periods", f.system,
		map[string]string{"period_start": "2026-09-01", "period_end": "2026-09-30"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBillingAPI_Validation(t *testing.T) {
	f := newFixture(t)

	t.Run("Bad date", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/7/billing-periods", f.clerk,
			map[string]string{"period_start": "01/09/2026", "period_end": "2026-09-30"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var env errorEnvelope
		decodeInto(t, rec, &env)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details["fields"], "PeriodStart")
	})

	t.Run("End before start", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/7/billing-periods", f.clerk,
			map[string]string{"period_start": "2026-09-30", "period_end": "2026-09-01"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unknown rental", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/404/billing-periods", f.clerk,
			map[string]string{"period_start": "2026-09-01", "period_end": "2026-09-30"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Unknown status filter", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/rentals/7/billing-periods?status=paid", f.clerk, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Overlap", func(t *testing.T) {
		body := map[string]string{"period_start": "2026-08-01", "period_end": "2026-08-31"}
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/7/billing-periods", f.clerk, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = f.do(t, http.MethodPost, "/api/v1/rentals/7/billing-periods", f.clerk, body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestBillingAPI_Preview(t *testing.T) {
	f := newFixture(t)

	body := map[string]interface{}{
		"totals": map[string]interface{}{"total_operating_hours": 220},
		"template": map[string]interface{}{
			"rate_basis": "monthly", "rate_amount": "45000000", "minimum_hours": "200",
			"overtime_multiplier": "1.5", "hours_per_day": 8, "days_per_month": 25, "tax_percentage": 11,
		},
	}
	rec := f.do(t, http.MethodPost, "/api/v1/billing/preview", f.clerk, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b domain.BillingBreakdown
	decodeInto(t, rec, &b)
	assert.True(t, b.OvertimeHours.Equal(dec("20")))
	assert.True(t, b.BaseAmount.Equal(dec("45000000")))

	body["template"].(map[string]interface{})["hours_per_day"] = 0
	rec = f.do(t, http.MethodPost, "/api/v1/billing/preview", f.clerk, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env errorEnvelope
	decodeInto(t, rec, &env)
	assert.Equal(t, "INVALID_TEMPLATE", env.Error.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/billing/preview", f.clerk, map[string]interface{}{"template": map[string]string{"rate_basis": "weekly"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingAPI_ConcurrentModificationIsRetryable(t *testing.T) {
	svc := new(testutil.MockBillingService)
	tm := security.NewTokenManager(testSecret, time.Hour)
	token, err := tm.GenerateServiceToken("recalc-job", nil)
	require.NoError(t, err)

	svc.On("CalculatePeriod", mock.Anything, (*int32)(nil), int32(5)).
		Return(nil, ierr.NewConcurrentModificationError(5, "save", 2))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing-periods/5/calculate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.NewRouter(svc, tm).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var env errorEnvelope
	decodeInto(t, rec, &env)
	assert.Equal(t, "CONCURRENT_MODIFICATION", env.Error.Code)
	assert.True(t, env.Error.Retryable)
	svc.AssertExpectations(t)
}
