package handlers

import (
	"net/http"

	"revi-backend/internal/models"
	"revi-backend/internal/services"
)

type ReviewHandler struct {
	reviews   *services.ReviewService
	analytics *services.AnalyticsService
}

func NewReviewHandler(reviews *services.ReviewService, analytics *services.AnalyticsService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, analytics: analytics}
}

// Record keeps the success/session_id pair older clients read alongside
// the session and improvement.
func (h *ReviewHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req models.RecordReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.reviews.Record(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"session_id":  result.Session.ID,
		"session":     result.Session,
		"improvement": result.Improvement,
	})
}

func (h *ReviewHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	history, err := h.analytics.History(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}
