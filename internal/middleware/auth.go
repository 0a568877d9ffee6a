package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"revi-backend/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenResolver turns a bearer token into the identity that owns it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.Identity, error)
}

// JWTResolver verifies Supabase access tokens locally with the project's
// JWT secret instead of asking the auth API on every request.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (j *JWTResolver) ResolveToken(ctx context.Context, tokenStr string) (*models.Identity, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("verify token: invalid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return &models.Identity{ID: userID, Email: claims.Email, Role: claims.Role, Token: tokenStr}, nil
}

// Authenticate rejects requests without a resolvable bearer token and
// attaches the caller's identity to the request context.
func Authenticate(resolver TokenResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "No authorization token provided")
				return
			}

			identity, err := resolveSafely(r.Context(), resolver, token)
			if err != nil {
				var p *resolverPanic
				if errors.As(err, &p) {
					logger.Error("token resolution panicked",
						slog.Any("panic", p.value),
						slog.String("path", r.URL.Path),
					)
					writeError(w, http.StatusUnauthorized, "Authentication failed")
					return
				}
				logger.Debug("token rejected", slog.String("error", err.Error()))
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			noteRequestUser(r.Context(), identity.ID.String())
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

type resolverPanic struct {
	value any
}

func (p *resolverPanic) Error() string { return fmt.Sprintf("resolver panic: %v", p.value) }

func resolveSafely(ctx context.Context, resolver TokenResolver, token string) (identity *models.Identity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			identity, err = nil, &resolverPanic{value: rec}
		}
	}()
	return resolver.ResolveToken(ctx, token)
}

func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity returns the authenticated caller, or nil outside Authenticate.
func GetIdentity(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityKey).(*models.Identity)
	return id
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
