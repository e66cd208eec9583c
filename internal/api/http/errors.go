package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case ierr.IsInvalidTemplate(err):
		return http.StatusBadRequest, "INVALID_TEMPLATE"
	case ierr.IsInvalidTotals(err):
		return http.StatusBadRequest, "INVALID_TOTALS"
	case ierr.IsValidation(err):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case ierr.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case ierr.IsInvalidState(err):
		return http.StatusConflict, "INVALID_STATE"
	case ierr.IsConcurrentModification(err):
		return http.StatusConflict, "CONCURRENT_MODIFICATION"
	case ierr.IsAlreadyExists(err):
		return http.StatusConflict, "ALREADY_EXISTS"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := ErrorBody{
		Code:      code,
		Message:   ierr.Hint(err),
		Details:   ierr.Details(err),
		Retryable: ierr.IsConcurrentModification(err),
	}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		// Internal details stay in the logs.
		body.Details = nil
		logger.ErrorContext(r.Context(), "Request failed", "request_id", requestID(r.Context()), "path", r.URL.Path, "error", err)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", "request_id", requestID(r.Context()), "path", r.URL.Path, "code", code, "error", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: body})
}

func writeUnauthorized(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: ErrorBody{Code: http.StatusText(status), Message: message}})
}

// validationError converts validator output into a Validation error listing
// the offending fields.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ierr.WithError(err).WithHint("Invalid request").Mark(ierr.ErrValidation)
	}
	fields := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return ierr.NewError("request validation failed").
		WithHint("Invalid request fields").
		WithReportableDetails(map[string]interface{}{"fields": fields}).
		Mark(ierr.ErrValidation)
}
