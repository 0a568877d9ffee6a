package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"revi-backend/internal/middleware"
	"revi-backend/internal/models"
	"revi-backend/internal/services"
)

const maxJSONBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// decodeJSON reads a size-limited JSON body into dst and, when dst carries
// validate tags, checks them. It writes the 400/413 itself and reports
// whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			writeError(w, http.StatusBadRequest, fieldMessage(invalid[0]))
			return false
		}
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	}
	return field + " is invalid"
}

// caller returns the authenticated identity. Routes behind Authenticate
// always have one; the check guards against mis-wired routes.
func caller(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	id := middleware.GetIdentity(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *services.ValidationError
		notFound    *services.NotFoundError
		unauth      *services.UnauthorizedError
		rateLimited *services.RateLimitError
		media       *services.UnsupportedMediaError
		upstream    *services.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Message)
	case errors.As(err, &unauth):
		writeError(w, http.StatusUnauthorized, unauth.Message)
	case errors.As(err, &rateLimited):
		writeError(w, http.StatusTooManyRequests, rateLimited.Message)
	case errors.As(err, &media):
		writeError(w, http.StatusBadRequest, "Only PDF and DOCX files are supported")
	case errors.As(err, &upstream):
		status := http.StatusInternalServerError
		if upstream.Status >= 400 && upstream.Status < 500 {
			status = upstream.Status
		}
		logFailure(r, err)
		msg := upstream.Message
		if msg == "" {
			msg = "An unexpected error occurred"
		}
		writeError(w, status, msg)
	default:
		logFailure(r, err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func logFailure(r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
}
