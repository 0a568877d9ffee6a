package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revi-backend/internal/models"
	"revi-backend/internal/services/storetest"
)

func TestDeckService_CreateRequiresName(t *testing.T) {
	svc := NewDeckService(memScope(storetest.NewMemory()))

	_, err := svc.Create(context.Background(), newUser(), models.CreateDeckRequest{Name: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Deck name is required", verr.Message)

	deck, err := svc.Create(context.Background(), newUser(), models.CreateDeckRequest{Name: " Bio ", Description: "cells"})
	require.NoError(t, err)
	assert.Equal(t, "Bio", deck.Name)
}

func TestDeckService_ListNewestFirstAndScoped(t *testing.T) {
	mem := storetest.NewMemory()
	svc := NewDeckService(memScope(mem))
	user := newUser()
	ctx := context.Background()

	_, err := svc.Create(ctx, user, models.CreateDeckRequest{Name: "first"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, user, models.CreateDeckRequest{Name: "second"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, newUser(), models.CreateDeckRequest{Name: "someone else"})
	require.NoError(t, err)

	decks, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "second", decks[0].Name)
	assert.Equal(t, "first", decks[1].Name)
}

func TestDeckService_GetRejectsPlaceholderID(t *testing.T) {
	svc := NewDeckService(memScope(storetest.NewMemory()))
	for _, raw := range []string{"", "new", "not-a-uuid"} {
		_, _, err := svc.Get(context.Background(), newUser(), raw)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "id=%q", raw)
		assert.Equal(t, "Invalid deck id", verr.Message)
	}
}

func TestDeckService_GetOtherUsersDeck(t *testing.T) {
	mem := storetest.NewMemory()
	deck, _ := seedDeck(t, mem, newUser(), "Bio", 1)
	svc := NewDeckService(memScope(mem))

	_, _, err := svc.Get(context.Background(), newUser(), deck.ID.String())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Deck not found", nf.Message)
}

func TestDeckService_GetReturnsCardsOldestFirst(t *testing.T) {
	mem := storetest.NewMemory()
	user := newUser()
	deck, cards := seedDeck(t, mem, user, "Bio", 3)
	svc := NewDeckService(memScope(mem))

	got, gotCards, err := svc.Get(context.Background(), user, deck.ID.String())
	require.NoError(t, err)
	assert.Equal(t, deck.ID, got.ID)
	require.Len(t, gotCards, 3)
	assert.Equal(t, cards[0].ID, gotCards[0].ID)
	assert.Equal(t, cards[2].ID, gotCards[2].ID)
}

func TestDeckService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory()
	user := newUser()
	deck, cards := seedDeck(t, mem, user, "Bio", 2)
	review := NewReviewService(memScope(mem), nil, nil)
	_, err := review.Record(ctx, user, models.RecordReviewRequest{
		DeckID:      deck.ID.String(),
		CardRatings: ratingsJSON(t, cards, models.RatingEasy, models.RatingHard),
	})
	require.NoError(t, err)

	svc := NewDeckService(memScope(mem))
	require.NoError(t, svc.Delete(ctx, user, deck.ID.String()))

	assert.Zero(t, mem.CardCount())
	assert.Zero(t, mem.SessionCount())
	assert.Empty(t, mem.Reviews())

	err = svc.Delete(ctx, user, deck.ID.String())
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeckService_DeleteMany(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory()
	user := newUser()
	a, _ := seedDeck(t, mem, user, "A", 1)
	b, _ := seedDeck(t, mem, user, "B", 1)
	foreign, _ := seedDeck(t, mem, newUser(), "C", 1)
	svc := NewDeckService(memScope(mem))

	_, err := svc.DeleteMany(ctx, user, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	n, err := svc.DeleteMany(ctx, user, []string{a.ID.String(), a.ID.String(), b.ID.String(), foreign.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, mem.CardCount(), "the other user's card survives")
}

func TestDeckService_CreateCard(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory()
	user := newUser()
	deck, _ := seedDeck(t, mem, user, "Bio", 0)
	svc := NewDeckService(memScope(mem))

	_, err := svc.CreateCard(ctx, user, models.CreateCardRequest{DeckID: deck.ID.String(), Question: "Q"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "deckId/deck_id, question, and answer are required", verr.Message)

	card, err := svc.CreateCard(ctx, user, models.CreateCardRequest{DeckIDCamel: deck.ID.String(), Question: "Q", Answer: "A"})
	require.NoError(t, err)
	assert.Equal(t, deck.ID, card.DeckID)
	assert.Equal(t, user.ID, card.UserID)

	_, err = svc.CreateCard(ctx, newUser(), models.CreateCardRequest{DeckID: deck.ID.String(), Question: "Q", Answer: "A"})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeckService_UpdateAndDeleteCard(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory()
	user := newUser()
	_, cards := seedDeck(t, mem, user, "Bio", 1)
	svc := NewDeckService(memScope(mem))
	id := cards[0].ID.String()

	_, err := svc.UpdateCard(ctx, user, "bogus", models.UpdateCardRequest{Question: "Q", Answer: "A"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.UpdateCard(ctx, user, id, models.UpdateCardRequest{Question: "Q2"})
	require.ErrorAs(t, err, &verr)

	_, err = svc.UpdateCard(ctx, newUser(), id, models.UpdateCardRequest{Question: "Q2", Answer: "A2"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	updated, err := svc.UpdateCard(ctx, user, id, models.UpdateCardRequest{Question: "Q2", Answer: "A2"})
	require.NoError(t, err)
	assert.Equal(t, "Q2", updated.Question)
	assert.True(t, updated.UpdatedAt.After(cards[0].UpdatedAt.Add(-time.Nanosecond)))

	require.ErrorAs(t, svc.DeleteCard(ctx, newUser(), id), &nf)
	require.NoError(t, svc.DeleteCard(ctx, user, id))
	assert.ErrorAs(t, svc.DeleteCard(ctx, user, id), &nf)
	assert.ErrorAs(t, svc.DeleteCard(ctx, user, uuid.NewString()), &nf)
}
