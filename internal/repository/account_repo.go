package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PurgeAccount deletes every row owned by the caller, children first.
func (u *UserScope) PurgeAccount(ctx context.Context) error {
	steps := []struct {
		name  string
		query string
	}{
		{"card reviews", `DELETE FROM card_reviews WHERE session_id IN (SELECT id FROM review_sessions WHERE user_id = $1)`},
		{"review sessions", `DELETE FROM review_sessions WHERE user_id = $1`},
		{"cards", `DELETE FROM cards WHERE user_id = $1`},
		{"decks", `DELETE FROM decks WHERE user_id = $1`},
	}

	err := u.run(ctx, func(tx pgx.Tx) error {
		for _, step := range steps {
			if _, err := tx.Exec(ctx, step.query, u.identity.ID); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("purge account: %w", err)
	}
	return nil
}
