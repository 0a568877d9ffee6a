package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"revi-backend/internal/models"
)

const sessionColumns = `s.id, s.deck_id, s.user_id, s.started_at, s.ended_at, s.duration_seconds,
	s.total_cards, s.easy_count, s.medium_count, s.hard_count, s.created_at`

func scanSession(row pgx.Row, extra ...any) (*models.ReviewSession, error) {
	s := &models.ReviewSession{}
	dest := []any{
		&s.ID, &s.DeckID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.DurationSeconds,
		&s.TotalCards, &s.EasyCount, &s.MediumCount, &s.HardCount, &s.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return s, nil
}

// InsertSession persists s and fills in ID, UserID and CreatedAt. The deck
// must belong to the caller, otherwise ErrNotFound.
func (u *UserScope) InsertSession(ctx context.Context, s *models.ReviewSession) error {
	err := u.run(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO review_sessions
				(deck_id, user_id, started_at, ended_at, duration_seconds,
				 total_cards, easy_count, medium_count, hard_count)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
			WHERE EXISTS (SELECT 1 FROM decks WHERE id = $1 AND user_id = $2)
			RETURNING id, created_at`,
			s.DeckID, u.identity.ID, s.StartedAt, s.EndedAt, s.DurationSeconds,
			s.TotalCards, s.EasyCount, s.MediumCount, s.HardCount,
		).Scan(&s.ID, &s.CreatedAt)
		return notFound(err)
	})
	if err != nil {
		return fmt.Errorf("insert review session: %w", err)
	}
	s.UserID = u.identity.ID
	return nil
}

// InsertCardReviews writes all ratings for a session in a single statement.
func (u *UserScope) InsertCardReviews(ctx context.Context, sessionID uuid.UUID, ratings []models.CardRating, reviewedAt time.Time) error {
	if len(ratings) == 0 {
		return nil
	}

	cardIDs := make([]string, len(ratings))
	levels := make([]string, len(ratings))
	for i, r := range ratings {
		cardIDs[i] = r.CardID
		levels[i] = string(r.Rating)
	}

	err := u.run(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO card_reviews (session_id, card_id, rating, reviewed_at)
			SELECT $1, r.card_id::uuid, r.rating, $4
			FROM unnest($2::text[], $3::text[]) AS r(card_id, rating)`,
			sessionID, cardIDs, levels, reviewedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert card reviews: %w", err)
	}
	return nil
}

// PreviousSession returns the most recent session for the deck other than
// excludeID, or ErrNotFound.
func (u *UserScope) PreviousSession(ctx context.Context, deckID, excludeID uuid.UUID) (*models.ReviewSession, error) {
	var session *models.ReviewSession
	err := u.run(ctx, func(tx pgx.Tx) error {
		var err error
		session, err = scanSession(tx.QueryRow(ctx, `
			SELECT `+sessionColumns+`
			FROM review_sessions s
			WHERE s.deck_id = $1 AND s.user_id = $2 AND s.id <> $3
			ORDER BY s.started_at DESC NULLS LAST, s.created_at DESC
			LIMIT 1`,
			deckID, u.identity.ID, excludeID,
		))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("previous review session: %w", err)
	}
	return session, nil
}

// ListSessions returns every session of the caller joined with its deck
// name, most recently started first.
func (u *UserScope) ListSessions(ctx context.Context) ([]models.HistoryEntry, error) {
	entries := []models.HistoryEntry{}
	err := u.run(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+sessionColumns+`, d.name
			FROM review_sessions s
			JOIN decks d ON d.id = s.deck_id
			WHERE s.user_id = $1
			ORDER BY s.started_at DESC NULLS LAST, s.created_at DESC`,
			u.identity.ID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			s, err := scanSession(rows, &name)
			if err != nil {
				return err
			}
			entries = append(entries, models.HistoryEntry{ReviewSession: *s, DeckName: name})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list review sessions: %w", err)
	}
	return entries, nil
}
