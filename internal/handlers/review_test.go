package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revi-backend/internal/models"
	"revi-backend/internal/services"
	"revi-backend/internal/services/storetest"
)

func newReviewHandlers(mem *storetest.Memory) (*ReviewHandler, *AnalyticsHandler) {
	scope := memScope(mem)
	analytics := services.NewAnalyticsService(scope)
	return NewReviewHandler(services.NewReviewService(scope, nil, quietLogger()), analytics), NewAnalyticsHandler(analytics)
}

func TestReviewHandler_RecordAndHistory(t *testing.T) {
	mem := storetest.NewMemory()
	user := newIdentity()
	store := mem.For(user)
	deck, _ := store.CreateDeck(t.Context(), "Bio", "")
	card, _ := store.CreateCard(t.Context(), deck.ID, "Q", "A")
	reviews, _ := newReviewHandlers(mem)

	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	body := map[string]interface{}{
		"deck_id":    deck.ID.String(),
		"started_at": started,
		"ended_at":   started.Add(2 * time.Minute),
		"card_ratings": []map[string]string{
			{"card_id": card.ID.String(), "rating": "easy"},
			{"card_id": card.ID.String(), "rating": "hard"},
		},
	}
	rr := httptest.NewRecorder()
	reviews.Record(rr, newRequest(http.MethodPost, "/api/review-sessions", body, user))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Success     bool                 `json:"success"`
		SessionID   string               `json:"session_id"`
		Session     models.ReviewSession `json:"session"`
		Improvement struct {
			Current  models.RatingCounts  `json:"current"`
			Previous *models.RatingCounts `json:"previous"`
			Change   *models.RatingCounts `json:"change"`
		} `json:"improvement"`
	}
	decodeBody(t, rr, &resp)
	if !resp.Success || resp.SessionID != resp.Session.ID.String() {
		t.Errorf("Expected success with matching session id, got %+v", resp)
	}
	if resp.Session.DurationSeconds != 120 || resp.Session.TotalCards != 2 {
		t.Errorf("Unexpected session %+v", resp.Session)
	}
	if resp.Improvement.Current.Easy != 50 || resp.Improvement.Previous != nil || resp.Improvement.Change != nil {
		t.Errorf("Unexpected improvement %+v", resp.Improvement)
	}

	rr = httptest.NewRecorder()
	reviews.History(rr, newRequest(http.MethodGet, "/api/history", nil, user))
	var history []map[string]interface{}
	decodeBody(t, rr, &history)
	if len(history) != 1 || history[0]["deck_name"] != "Bio" {
		t.Errorf("Expected one history entry with deck name, got %v", history)
	}
}

func TestReviewHandler_RecordValidation(t *testing.T) {
	mem := storetest.NewMemory()
	reviews, _ := newReviewHandlers(mem)
	user := newIdentity()

	rr := httptest.NewRecorder()
	reviews.Record(rr, newRequest(http.MethodPost, "/api/review-sessions", map[string]string{}, user))
	if rr.Code != http.StatusBadRequest || errorOf(t, rr) != "deck_id is required" {
		t.Errorf("Expected 400 deck_id is required, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	reviews.Record(rr, newRequest(http.MethodPost, "/api/review-sessions", map[string]string{"deck_id": "7b0c7c4e-4d0e-4c52-9f87-3f4f0f9b6c1a"}, user))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown deck, got %d", rr.Code)
	}
	if mem.SessionCount() != 0 {
		t.Error("Nothing should be written for rejected sessions")
	}
}

func TestReviewHandler_EmptyHistoryIsArray(t *testing.T) {
	reviews, _ := newReviewHandlers(storetest.NewMemory())
	rr := httptest.NewRecorder()
	reviews.History(rr, newRequest(http.MethodGet, "/api/history", nil, newIdentity()))
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty array, got %q", body)
	}
}

func TestAnalyticsHandler_OverviewAndDashboard(t *testing.T) {
	mem := storetest.NewMemory()
	user := newIdentity()
	deck, _ := mem.For(user).CreateDeck(t.Context(), "Bio", "")
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ended := started.Add(150 * time.Second)
	mem.AddSession(models.ReviewSession{
		UserID: user.ID, DeckID: deck.ID, StartedAt: &started, EndedAt: &ended,
		DurationSeconds: 150, TotalCards: 4, EasyCount: 3, MediumCount: 1,
	})
	_, analytics := newReviewHandlers(mem)

	rr := httptest.NewRecorder()
	analytics.Overview(rr, newRequest(http.MethodGet, "/api/analytics/overview", nil, user))
	var overview map[string]interface{}
	decodeBody(t, rr, &overview)
	if overview["totalStudyMinutes"] != float64(3) || overview["totalSessions"] != float64(1) {
		t.Errorf("Unexpected overview %v", overview)
	}

	rr = httptest.NewRecorder()
	analytics.Dashboard(rr, newRequest(http.MethodGet, "/api/analytics/dashboard", nil, user))
	var dashboard models.Dashboard
	decodeBody(t, rr, &dashboard)
	if dashboard.OverallRatings.Easy != 75 || len(dashboard.DeckMastery) != 1 || dashboard.DeckMastery[0].Mastery != 75 {
		t.Errorf("Unexpected dashboard %+v", dashboard)
	}
}

func TestAnalyticsHandler_Activity(t *testing.T) {
	mem := storetest.NewMemory()
	user := newIdentity()
	deck, _ := mem.For(user).CreateDeck(t.Context(), "Bio", "")
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mem.AddSession(models.ReviewSession{UserID: user.ID, DeckID: deck.ID, StartedAt: &started, TotalCards: 1, EasyCount: 1})
	_, analytics := newReviewHandlers(mem)

	rr := httptest.NewRecorder()
	analytics.Activity(rr, newRequest(http.MethodGet, "/api/analytics/activity?from=2024-04-30&to=2024-05-02", nil, user))
	var resp struct {
		Activity []models.ActivityDay `json:"activity"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Activity) != 1 || resp.Activity[0].Date != "2024-05-01" {
		t.Errorf("Unexpected activity %+v", resp.Activity)
	}

	rr = httptest.NewRecorder()
	analytics.Activity(rr, newRequest(http.MethodGet, "/api/analytics/activity?from=May+1", nil, user))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", rr.Code)
	}
}

func TestAnalyticsHandler_DeckPerformanceNotFound(t *testing.T) {
	_, analytics := newReviewHandlers(storetest.NewMemory())
	rr := httptest.NewRecorder()
	analytics.DeckPerformance(rr, newRequest(http.MethodGet, "/api/analytics/decks/x", nil, newIdentity(), "id", "7b0c7c4e-4d0e-4c52-9f87-3f4f0f9b6c1a"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
	var body map[string]json.RawMessage
	decodeBody(t, rr, &body)
	if _, ok := body["error"]; !ok {
		t.Error("Expected error envelope")
	}
}
