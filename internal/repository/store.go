package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"revi-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store owns the pool. It never runs queries itself; callers obtain a
// UserScope per request with ForUser.
type Store struct {
	pool *pgxpool.Pool
	rls  bool
}

func NewStore(pool *pgxpool.Pool, rls bool) *Store {
	return &Store{pool: pool, rls: rls}
}

// ForUser returns a handle bound to one caller's identity. Handles are
// cheap and must not be shared across requests.
func (s *Store) ForUser(identity *models.Identity) *UserScope {
	return &UserScope{
		pool:     s.pool,
		rls:      s.rls,
		identity: *identity,
	}
}

type UserScope struct {
	pool     *pgxpool.Pool
	rls      bool
	identity models.Identity
}

func (u *UserScope) UserID() string {
	return u.identity.ID.String()
}

// run executes fn in a transaction carrying the caller's claims so that
// row-level security policies see the same user as the explicit filters.
func (u *UserScope) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if u.rls {
		claims, err := claimsJSON(u.identity)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`SELECT set_config('role', 'authenticated', true), set_config('request.jwt.claims', $1, true)`,
			claims,
		); err != nil {
			return fmt.Errorf("apply request claims: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func claimsJSON(identity models.Identity) (string, error) {
	role := identity.Role
	if role == "" {
		role = "authenticated"
	}
	b, err := json.Marshal(map[string]string{
		"sub":   identity.ID.String(),
		"role":  role,
		"email": identity.Email,
	})
	if err != nil {
		return "", fmt.Errorf("encode request claims: %w", err)
	}
	return string(b), nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
