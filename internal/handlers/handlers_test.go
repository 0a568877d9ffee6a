package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"revi-backend/internal/middleware"
	"revi-backend/internal/models"
	"revi-backend/internal/services"
	"revi-backend/internal/services/storetest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memScope(mem *storetest.Memory) services.ScopeFunc {
	return func(id *models.Identity) services.Store { return mem.For(id) }
}

func newIdentity() *models.Identity {
	return &models.Identity{ID: uuid.New(), Email: "student@example.com", Token: "user-token"}
}

// newRequest builds an authenticated request with optional chi URL params
// given as key, value pairs.
func newRequest(method, target string, body interface{}, id *models.Identity, params ...string) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if id != nil {
		ctx = middleware.WithIdentity(ctx, id)
	}
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response: %v (body %q)", err, rr.Body.String())
	}
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	decodeBody(t, rr, &resp)
	return resp.Error
}

// ─── Helpers ───

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", &services.ValidationError{Field: "name", Message: "Deck name is required"}, http.StatusBadRequest, "Deck name is required"},
		{"not found", &services.NotFoundError{Message: "Deck not found"}, http.StatusNotFound, "Deck not found"},
		{"unauthorized", &services.UnauthorizedError{Message: "Invalid email or password"}, http.StatusUnauthorized, "Invalid email or password"},
		{"rate limited", &services.RateLimitError{Message: "Slow down"}, http.StatusTooManyRequests, "Slow down"},
		{"media", &services.UnsupportedMediaError{MediaType: "image/png"}, http.StatusBadRequest, "Only PDF and DOCX files are supported"},
		{"upstream 4xx", &services.UpstreamError{Status: 422, Message: "User already registered"}, 422, "User already registered"},
		{"upstream 5xx", &services.UpstreamError{Status: 503, Message: "Service unavailable"}, http.StatusInternalServerError, "Service unavailable"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if got := errorOf(t, rr); got != tc.wantError {
				t.Errorf("Expected error %q, got %q", tc.wantError, got)
			}
		})
	}
}

func TestDecodeJSON_ValidatesTags(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{`, "Invalid request body"},
		{`{"password":"secret1"}`, "email is required"},
		{`{"email":"nope","password":"secret1"}`, "email must be a valid email address"},
		{`{"email":"a@b.co","password":"123"}`, "password must be at least 6 characters"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		var req models.CredentialsRequest
		if decodeJSON(rr, newRequest(http.MethodPost, "/", tc.body, nil), &req) {
			t.Errorf("body %s: expected rejection", tc.body)
			continue
		}
		if got := errorOf(t, rr); got != tc.want {
			t.Errorf("body %s: expected %q, got %q", tc.body, tc.want, got)
		}
	}
}

func TestCaller_MissingIdentity(t *testing.T) {
	rr := httptest.NewRecorder()
	NewDeckHandler(services.NewDeckService(memScope(storetest.NewMemory()))).List(rr, newRequest(http.MethodGet, "/api/decks", nil, nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
}
