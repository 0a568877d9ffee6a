package models

import (
	"time"

	"github.com/google/uuid"
)

type Deck struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Card struct {
	ID        uuid.UUID `json:"id"`
	DeckID    uuid.UUID `json:"deck_id"`
	UserID    uuid.UUID `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeneratedCard is an unsaved question/answer pair produced from source text.
type GeneratedCard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type CreateDeckRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type BulkDeleteDecksRequest struct {
	DeckIDs []string `json:"deckIds"`
}

// CreateCardRequest accepts both deck_id and deckId; clients have sent either.
type CreateCardRequest struct {
	DeckID      string `json:"deck_id"`
	DeckIDCamel string `json:"deckId"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
}

func (r CreateCardRequest) ResolvedDeckID() string {
	if r.DeckID != "" {
		return r.DeckID
	}
	return r.DeckIDCamel
}

type UpdateCardRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type GenerateCardsRequest struct {
	Text     string `json:"text"`
	NumCards int    `json:"numCards"`
}
