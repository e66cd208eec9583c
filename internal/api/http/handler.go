package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"rentbill-backend/internal/billing"
	"rentbill-backend/internal/config"
	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/security"
	"rentbill-backend/internal/service"
)

var validate = validator.New()

// BillingHandler exposes the billing-period lifecycle over REST.
type BillingHandler struct {
	svc service.BillingService
}

func NewBillingHandler(svc service.BillingService) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// NewRouter wires the billing routes under /api/v1 behind auth.
func NewRouter(svc service.BillingService, tm security.TokenManager) *mux.Router {
	h := NewBillingHandler(svc)
	auth := NewAuthMiddleware(tm)

	r := mux.NewRouter()
	r.Use(RequestLogger)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Handler)
	api.HandleFunc("/rentals/{rentalID:[0-9]+}/billing-periods", h.CreatePeriod).Methods(http.MethodPost).Name(config.RouteCreatePeriod)
	api.HandleFunc("/rentals/{rentalID:[0-9]+}/billing-periods", h.ListPeriods).Methods(http.MethodGet).Name(config.RouteListPeriods)
	api.HandleFunc("/billing-periods/{id:[0-9]+}", h.GetPeriod).Methods(http.MethodGet).Name(config.RouteGetPeriod)
	api.HandleFunc("/billing-periods/{id:[0-9]+}", h.DeletePeriod).Methods(http.MethodDelete).Name(config.RouteDeletePeriod)
	api.HandleFunc("/billing-periods/{id:[0-9]+}/calculate", h.CalculatePeriod).Methods(http.MethodPost).Name(config.RouteCalculatePeriod)
	api.HandleFunc("/billing-periods/{id:[0-9]+}/approve", h.ApprovePeriod).Methods(http.MethodPost).Name(config.RouteApprovePeriod)
	api.HandleFunc("/billing-periods/{id:[0-9]+}/invoice", h.GenerateInvoice).Methods(http.MethodPost).Name(config.RouteGenerateInvoice)
	api.HandleFunc("/billing-periods/{id:[0-9]+}/events", h.ListEvents).Methods(http.MethodGet).Name(config.RouteListEvents)
	api.HandleFunc("/billing/preview", h.Preview).Methods(http.MethodPost).Name(config.RoutePreview)
	return r
}

func (h *BillingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request, name string) (int32, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 32)
	if err != nil || id <= 0 {
		return 0, ierr.NewErrorf("invalid %s", name).
			WithHintf("Invalid %s", name).
			Mark(ierr.ErrValidation)
	}
	return int32(id), nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return ierr.WithError(err).WithHint("Malformed JSON body").Mark(ierr.ErrValidation)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// userActor is actorID for routes that only accept user access tokens.
func userActor(w http.ResponseWriter, r *http.Request) (int32, bool) {
	actor := actorID(r.Context())
	if actor == nil {
		writeUnauthorized(w, http.StatusForbidden, "access token required")
		return 0, false
	}
	return *actor, true
}

func (h *BillingHandler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CreatePeriodRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := billing.ParseDate(req.PeriodStart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := billing.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, ok := userActor(w, r)
	if !ok {
		return
	}
	period, err := h.svc.CreatePeriod(r.Context(), actor, rentalID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, period)
}

func (h *BillingHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var statuses []domain.BillingPeriodStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses = lo.Map(strings.Split(raw, ","), func(s string, _ int) domain.BillingPeriodStatus {
			return domain.BillingPeriodStatus(strings.ToUpper(strings.TrimSpace(s)))
		})
	}

	periods, err := h.svc.ListPeriods(r.Context(), rentalID, statuses)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListPeriodsResponse{Periods: periods})
}

func (h *BillingHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := h.svc.GetPeriod(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

func (h *BillingHandler) CalculatePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := h.svc.CalculatePeriod(r.Context(), actorID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

func (h *BillingHandler) ApprovePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ApprovePeriodRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	approver, ok := userActor(w, r)
	if !ok {
		return
	}
	period, err := h.svc.ApprovePeriod(r.Context(), approver, id, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

func (h *BillingHandler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := h.svc.GenerateInvoice(r.Context(), actorID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

func (h *BillingHandler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeletePeriod(r.Context(), actorID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BillingHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.svc.ListEvents(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEventsResponse{Events: events})
}

func (h *BillingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	totals, template := req.toDomain()
	breakdown, err := h.svc.Preview(r.Context(), totals, template)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
