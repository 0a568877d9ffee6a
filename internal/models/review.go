package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Rating string

const (
	RatingEasy   Rating = "easy"
	RatingMedium Rating = "medium"
	RatingHard   Rating = "hard"
)

func (r Rating) Valid() bool {
	switch r {
	case RatingEasy, RatingMedium, RatingHard:
		return true
	}
	return false
}

// CardRating keeps card_id as sent; ids are checked only when review rows are written.
type CardRating struct {
	CardID string `json:"card_id"`
	Rating Rating `json:"rating"`
}

// ReviewSession is immutable once recorded.
type ReviewSession struct {
	ID              uuid.UUID  `json:"id"`
	DeckID          uuid.UUID  `json:"deck_id"`
	UserID          uuid.UUID  `json:"user_id"`
	StartedAt       *time.Time `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds int        `json:"duration_seconds"`
	TotalCards      int        `json:"total_cards"`
	EasyCount       int        `json:"easy_count"`
	MediumCount     int        `json:"medium_count"`
	HardCount       int        `json:"hard_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

type CardReview struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	CardID     uuid.UUID `json:"card_id"`
	Rating     Rating    `json:"rating"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// RecordReviewRequest keeps card_ratings raw; anything other than an array counts as no ratings.
type RecordReviewRequest struct {
	DeckID      string          `json:"deck_id"`
	StartedAt   *time.Time      `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at"`
	CardRatings json.RawMessage `json:"card_ratings"`
}

// RatingCounts holds either raw counts or whole percentages depending on context.
type RatingCounts struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type Improvement struct {
	Current  RatingCounts  `json:"current"`
	Previous *RatingCounts `json:"previous"`
	Change   *RatingCounts `json:"change"`
}

type RecordReviewResult struct {
	Session     *ReviewSession `json:"session"`
	Improvement Improvement    `json:"improvement"`
}

// HistoryEntry is a session joined with the name of its deck.
type HistoryEntry struct {
	ReviewSession
	DeckName string `json:"deck_name"`
}
