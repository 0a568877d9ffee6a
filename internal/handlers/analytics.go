package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"revi-backend/internal/services"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := h.analytics.Overview(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := h.analytics.Dashboard(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Activity accepts optional from/to query dates (YYYY-MM-DD, UTC).
func (h *AnalyticsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := services.ParseDay("from", q.Get("from"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	to, err := services.ParseDay("to", q.Get("to"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	days, err := h.analytics.Activity(r.Context(), id, from, to)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": days})
}

func (h *AnalyticsHandler) DeckPerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := h.analytics.DeckPerformance(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
