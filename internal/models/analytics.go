package models

import (
	"time"

	"github.com/google/uuid"
)

// Overview reports raw rating counts.
type Overview struct {
	TotalDecks        int          `json:"totalDecks"`
	TotalCards        int          `json:"totalCards"`
	TotalSessions     int          `json:"totalSessions"`
	TotalStudyMinutes int          `json:"totalStudyMinutes"`
	OverallRatings    RatingCounts `json:"overallRatings"`
	LastSessionAt     *time.Time   `json:"lastSessionAt"`
	FirstSessionAt    *time.Time   `json:"firstSessionAt"`
	StudyStreak       int          `json:"studyStreak"`
}

// Dashboard reports rating percentages.
type Dashboard struct {
	TotalDecks     int           `json:"totalDecks"`
	TotalCards     int           `json:"totalCards"`
	TotalAttempts  int           `json:"totalAttempts"`
	TotalStudyTime int           `json:"totalStudyTime"`
	DeckMastery    []DeckMastery `json:"deckMastery"`
	OverallRatings RatingCounts  `json:"overallRatings"`
}

type DeckMastery struct {
	DeckID   uuid.UUID `json:"deck_id"`
	DeckName string    `json:"deck_name"`
	Mastery  int       `json:"mastery"`
}

type ActivityDay struct {
	Date         string `json:"date"`
	Sessions     int    `json:"sessions"`
	CardsStudied int    `json:"cardsStudied"`
	Easy         int    `json:"easy"`
	Medium       int    `json:"medium"`
	Hard         int    `json:"hard"`
	StudySeconds int    `json:"studySeconds"`
}

type DeckPerformance struct {
	DeckID             uuid.UUID  `json:"deck_id"`
	DeckName           string     `json:"deck_name"`
	TotalSessions      int        `json:"totalSessions"`
	TotalCardsReviewed int        `json:"totalCardsReviewed"`
	EasyRate           int        `json:"easyRate"`
	Mastery            int        `json:"mastery"`
	LastStudiedAt      *time.Time `json:"lastStudiedAt"`
}
