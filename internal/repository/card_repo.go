package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"revi-backend/internal/models"
)

const cardColumns = `id, deck_id, user_id, question, answer, created_at, updated_at`

func scanCard(row pgx.Row) (*models.Card, error) {
	c := &models.Card{}
	if err := row.Scan(&c.ID, &c.DeckID, &c.UserID, &c.Question, &c.Answer, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCard inserts into a deck the caller owns; any other deck is ErrNotFound.
func (u *UserScope) CreateCard(ctx context.Context, deckID uuid.UUID, question, answer string) (*models.Card, error) {
	var card *models.Card
	err := u.run(ctx, func(tx pgx.Tx) error {
		var err error
		card, err = scanCard(tx.QueryRow(ctx, `
			INSERT INTO cards (deck_id, user_id, question, answer)
			SELECT $1, $2, $3, $4
			WHERE EXISTS (SELECT 1 FROM decks WHERE id = $1 AND user_id = $2)
			RETURNING `+cardColumns,
			deckID, u.identity.ID, question, answer,
		))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return card, nil
}

// ListCards returns a deck's cards, oldest first.
func (u *UserScope) ListCards(ctx context.Context, deckID uuid.UUID) ([]models.Card, error) {
	cards := []models.Card{}
	err := u.run(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+cardColumns+` FROM cards WHERE deck_id = $1 AND user_id = $2 ORDER BY created_at ASC`,
			deckID, u.identity.ID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCard(rows)
			if err != nil {
				return err
			}
			cards = append(cards, *c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (u *UserScope) UpdateCard(ctx context.Context, id uuid.UUID, question, answer string) (*models.Card, error) {
	var card *models.Card
	err := u.run(ctx, func(tx pgx.Tx) error {
		var err error
		card, err = scanCard(tx.QueryRow(ctx, `
			UPDATE cards SET question = $1, answer = $2, updated_at = NOW()
			WHERE id = $3 AND user_id = $4
			RETURNING `+cardColumns,
			question, answer, id, u.identity.ID,
		))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

// DeleteCard relies on the card_reviews foreign key to cascade.
func (u *UserScope) DeleteCard(ctx context.Context, id uuid.UUID) error {
	err := u.run(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, u.identity.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// CountCards counts cards across every deck the caller owns.
func (u *UserScope) CountCards(ctx context.Context) (int, error) {
	var n int
	err := u.run(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM cards c
			JOIN decks d ON d.id = c.deck_id
			WHERE d.user_id = $1`, u.identity.ID,
		).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}
