package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"revi-backend/internal/models"
	"revi-backend/internal/repository"
)

type DeckService struct {
	scope ScopeFunc
}

func NewDeckService(scope ScopeFunc) *DeckService {
	return &DeckService{scope: scope}
}

func (s *DeckService) Create(ctx context.Context, id *models.Identity, req models.CreateDeckRequest) (*models.Deck, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErrorf("name", "Deck name is required")
	}
	return s.scope(id).CreateDeck(ctx, name, strings.TrimSpace(req.Description))
}

func (s *DeckService) List(ctx context.Context, id *models.Identity) ([]models.Deck, error) {
	return s.scope(id).ListDecks(ctx)
}

// Get returns the deck with its cards, oldest card first.
func (s *DeckService) Get(ctx context.Context, id *models.Identity, rawID string) (*models.Deck, []models.Card, error) {
	deckID, err := parseDeckID(rawID)
	if err != nil {
		return nil, nil, err
	}

	store := s.scope(id)
	deck, err := store.GetDeck(ctx, deckID)
	if err != nil {
		return nil, nil, mapNotFound(err, "Deck not found")
	}
	cards, err := store.ListCards(ctx, deckID)
	if err != nil {
		return nil, nil, err
	}
	return deck, cards, nil
}

func (s *DeckService) Delete(ctx context.Context, id *models.Identity, rawID string) error {
	deckID, err := parseDeckID(rawID)
	if err != nil {
		return err
	}
	n, err := s.scope(id).DeleteDecks(ctx, []uuid.UUID{deckID})
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Message: "Deck not found"}
	}
	return nil
}

// DeleteMany ignores ids the caller does not own and reports how many
// decks were removed.
func (s *DeckService) DeleteMany(ctx context.Context, id *models.Identity, rawIDs []string) (int, error) {
	if len(rawIDs) == 0 {
		return 0, validationErrorf("deckIds", "deckIds must be a non-empty array")
	}
	ids := make([]uuid.UUID, 0, len(rawIDs))
	seen := make(map[uuid.UUID]bool, len(rawIDs))
	for _, raw := range rawIDs {
		deckID, err := parseDeckID(raw)
		if err != nil {
			return 0, err
		}
		if !seen[deckID] {
			seen[deckID] = true
			ids = append(ids, deckID)
		}
	}
	return s.scope(id).DeleteDecks(ctx, ids)
}

func (s *DeckService) CreateCard(ctx context.Context, id *models.Identity, req models.CreateCardRequest) (*models.Card, error) {
	rawDeckID := strings.TrimSpace(req.ResolvedDeckID())
	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if rawDeckID == "" || question == "" || answer == "" {
		return nil, validationErrorf("deck_id", "deckId/deck_id, question, and answer are required")
	}
	deckID, err := parseDeckID(rawDeckID)
	if err != nil {
		return nil, err
	}

	card, err := s.scope(id).CreateCard(ctx, deckID, question, answer)
	if err != nil {
		return nil, mapNotFound(err, "Deck not found")
	}
	return card, nil
}

func (s *DeckService) UpdateCard(ctx context.Context, id *models.Identity, rawID string, req models.UpdateCardRequest) (*models.Card, error) {
	cardID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, validationErrorf("id", "Invalid card id")
	}
	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		return nil, validationErrorf("question", "question and answer are required")
	}

	card, err := s.scope(id).UpdateCard(ctx, cardID, question, answer)
	if err != nil {
		return nil, mapNotFound(err, "Card not found")
	}
	return card, nil
}

func (s *DeckService) DeleteCard(ctx context.Context, id *models.Identity, rawID string) error {
	cardID, err := uuid.Parse(rawID)
	if err != nil {
		return validationErrorf("id", "Invalid card id")
	}
	return mapNotFound(s.scope(id).DeleteCard(ctx, cardID), "Card not found")
}

// parseDeckID rejects the "new" placeholder some client routes send as well
// as anything that is not a UUID.
func parseDeckID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "new" {
		return uuid.Nil, validationErrorf("id", "Invalid deck id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validationErrorf("id", "Invalid deck id")
	}
	return id, nil
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Message: message}
	}
	return err
}
