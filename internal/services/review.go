package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"revi-backend/internal/metrics"
	"revi-backend/internal/models"
	"revi-backend/internal/repository"
)

type ReviewService struct {
	scope   ScopeFunc
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

func NewReviewService(scope ScopeFunc, rec metrics.Recorder, logger *slog.Logger) *ReviewService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{scope: scope, metrics: rec, logger: logger, now: time.Now}
}

// Record saves one review session and reports how its rating mix compares
// with the previous session for the same deck.
//
// The session row is written first. Card review rows follow as a separate
// write; if that fails the session stays saved, the failure is logged and
// counted, and the call still succeeds.
func (s *ReviewService) Record(ctx context.Context, id *models.Identity, req models.RecordReviewRequest) (*models.RecordReviewResult, error) {
	if req.DeckID == "" {
		return nil, validationErrorf("deck_id", "deck_id is required")
	}
	deckID, err := parseDeckID(req.DeckID)
	if err != nil {
		return nil, err
	}
	ratings, err := decodeRatings(req.CardRatings)
	if err != nil {
		return nil, err
	}

	counts := CountRatings(ratings)
	session := &models.ReviewSession{
		DeckID:          deckID,
		StartedAt:       req.StartedAt,
		EndedAt:         req.EndedAt,
		DurationSeconds: DurationSeconds(req.StartedAt, req.EndedAt),
		TotalCards:      len(ratings),
		EasyCount:       counts.Easy,
		MediumCount:     counts.Medium,
		HardCount:       counts.Hard,
	}

	store := s.scope(id)
	if err := store.InsertSession(ctx, session); err != nil {
		return nil, mapNotFound(err, "Deck not found")
	}
	s.metrics.RecordSessionRecorded()

	log := s.logger.With(
		slog.String("user_id", id.ID.String()),
		slog.String("session_id", session.ID.String()),
	)
	if err := store.InsertCardReviews(ctx, session.ID, ratings, s.now().UTC()); err != nil {
		s.metrics.RecordCardReviewInsertFailure()
		log.Warn("card reviews not saved; keeping session",
			slog.Int("ratings", len(ratings)),
			slog.String("error", err.Error()),
		)
	}

	improvement := models.Improvement{Current: Percentages(session)}
	previous, err := store.PreviousSession(ctx, deckID, session.ID)
	switch {
	case err == nil:
		improvement = ComputeImprovement(session, previous)
	case errors.Is(err, repository.ErrNotFound):
		// first session for this deck
	default:
		// The session is saved; comparison data is a nicety.
		log.Warn("previous session lookup failed", slog.String("error", err.Error()))
	}

	return &models.RecordReviewResult{Session: session, Improvement: improvement}, nil
}

// decodeRatings treats a missing or non-array card_ratings as empty but
// rejects a batch containing an unknown rating before anything is written.
func decodeRatings(raw json.RawMessage) ([]models.CardRating, error) {
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil
	}
	var ratings []models.CardRating
	if err := json.Unmarshal(raw, &ratings); err != nil {
		return nil, validationErrorf("card_ratings", "card_ratings must be a list of {card_id, rating}")
	}
	for i, r := range ratings {
		if !r.Rating.Valid() {
			return nil, validationErrorf("card_ratings", "card_ratings[%d].rating must be easy, medium or hard", i)
		}
	}
	return ratings, nil
}

func CountRatings(ratings []models.CardRating) models.RatingCounts {
	var c models.RatingCounts
	for _, r := range ratings {
		switch r.Rating {
		case models.RatingEasy:
			c.Easy++
		case models.RatingMedium:
			c.Medium++
		case models.RatingHard:
			c.Hard++
		}
	}
	return c
}

// DurationSeconds is whole seconds between the two instants, 0 when either
// is missing or the interval is negative.
func DurationSeconds(started, ended *time.Time) int {
	if started == nil || ended == nil {
		return 0
	}
	d := ended.Sub(*started)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Percentages expresses a session's rating counts against its own total.
func Percentages(s *models.ReviewSession) models.RatingCounts {
	return models.RatingCounts{
		Easy:   percent(s.EasyCount, s.TotalCards),
		Medium: percent(s.MediumCount, s.TotalCards),
		Hard:   percent(s.HardCount, s.TotalCards),
	}
}

func ComputeImprovement(current, previous *models.ReviewSession) models.Improvement {
	cur := Percentages(current)
	if previous == nil {
		return models.Improvement{Current: cur}
	}
	prev := Percentages(previous)
	return models.Improvement{
		Current:  cur,
		Previous: &prev,
		Change: &models.RatingCounts{
			Easy:   cur.Easy - prev.Easy,
			Medium: cur.Medium - prev.Medium,
			Hard:   cur.Hard - prev.Hard,
		},
	}
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return roundHalfUp(float64(part) * 100 / float64(total))
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
