package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"revi-backend/internal/models"
	"revi-backend/internal/repository"
)

var _ Store = (*repository.UserScope)(nil)

// Store is the per-request data handle. Every method is implicitly scoped
// to the identity the handle was created for; repository.UserScope is the
// Postgres implementation.
type Store interface {
	CreateDeck(ctx context.Context, name, description string) (*models.Deck, error)
	ListDecks(ctx context.Context) ([]models.Deck, error)
	GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error)
	DeleteDecks(ctx context.Context, ids []uuid.UUID) (int, error)

	CreateCard(ctx context.Context, deckID uuid.UUID, question, answer string) (*models.Card, error)
	ListCards(ctx context.Context, deckID uuid.UUID) ([]models.Card, error)
	UpdateCard(ctx context.Context, id uuid.UUID, question, answer string) (*models.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	CountCards(ctx context.Context) (int, error)

	InsertSession(ctx context.Context, s *models.ReviewSession) error
	InsertCardReviews(ctx context.Context, sessionID uuid.UUID, ratings []models.CardRating, reviewedAt time.Time) error
	PreviousSession(ctx context.Context, deckID, excludeID uuid.UUID) (*models.ReviewSession, error)
	ListSessions(ctx context.Context) ([]models.HistoryEntry, error)

	PurgeAccount(ctx context.Context) error
}

// ScopeFunc builds a fresh Store for one caller. It is called once per
// request; handles are never cached or shared.
type ScopeFunc func(identity *models.Identity) Store
