package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"revi-backend/internal/models"
)

const deckColumns = `id, user_id, name, description, created_at`

func scanDeck(row pgx.Row) (*models.Deck, error) {
	d := &models.Deck{}
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func (u *UserScope) CreateDeck(ctx context.Context, name, description string) (*models.Deck, error) {
	var deck *models.Deck
	err := u.run(ctx, func(tx pgx.Tx) error {
		var err error
		deck, err = scanDeck(tx.QueryRow(ctx,
			`INSERT INTO decks (user_id, name, description) VALUES ($1, $2, $3) RETURNING `+deckColumns,
			u.identity.ID, name, description,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create deck: %w", err)
	}
	return deck, nil
}

// ListDecks returns the caller's decks, newest first.
func (u *UserScope) ListDecks(ctx context.Context) ([]models.Deck, error) {
	decks := []models.Deck{}
	err := u.run(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+deckColumns+` FROM decks WHERE user_id = $1 ORDER BY created_at DESC`,
			u.identity.ID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDeck(rows)
			if err != nil {
				return err
			}
			decks = append(decks, *d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	return decks, nil
}

func (u *UserScope) GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	var deck *models.Deck
	err := u.run(ctx, func(tx pgx.Tx) error {
		var err error
		deck, err = scanDeck(tx.QueryRow(ctx,
			`SELECT `+deckColumns+` FROM decks WHERE id = $1 AND user_id = $2`,
			id, u.identity.ID,
		))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("get deck: %w", err)
	}
	return deck, nil
}

// DeleteDecks removes the decks and everything that references them in one
// transaction: card reviews, review sessions, cards, then the decks. Ids
// the caller does not own are ignored. Returns the number of decks removed.
func (u *UserScope) DeleteDecks(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int
	err := u.run(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM card_reviews
			WHERE session_id IN (
				SELECT id FROM review_sessions WHERE deck_id = ANY($1) AND user_id = $2
			)`, ids, u.identity.ID); err != nil {
			return fmt.Errorf("card reviews: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM review_sessions WHERE deck_id = ANY($1) AND user_id = $2`,
			ids, u.identity.ID,
		); err != nil {
			return fmt.Errorf("review sessions: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM cards WHERE deck_id = ANY($1) AND user_id = $2`,
			ids, u.identity.ID,
		); err != nil {
			return fmt.Errorf("cards: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`DELETE FROM decks WHERE id = ANY($1) AND user_id = $2`,
			ids, u.identity.ID,
		)
		if err != nil {
			return fmt.Errorf("decks: %w", err)
		}
		deleted = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete decks: %w", err)
	}
	return deleted, nil
}
