package services

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"revi-backend/internal/models"
)

const deleteConfirmation = "DELETE"

const minPasswordLength = 6

// AuthProvider is the subset of the identity provider the account flows use.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (models.AuthSession, error)
	Login(ctx context.Context, email, password string) (models.AuthSession, error)
	UpdatePassword(ctx context.Context, token, password string) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	// CanDeleteUsers is false when DeleteUser is bound to fail, e.g. no
	// service role key is configured.
	CanDeleteUsers() bool
}

type AccountService struct {
	scope  ScopeFunc
	auth   AuthProvider
	logger *slog.Logger
}

func NewAccountService(scope ScopeFunc, auth AuthProvider, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{scope: scope, auth: auth, logger: logger}
}

func (s *AccountService) SignUp(ctx context.Context, req models.CredentialsRequest) (models.AuthSession, error) {
	return s.auth.SignUp(ctx, req.Email, req.Password)
}

func (s *AccountService) Login(ctx context.Context, req models.CredentialsRequest) (models.AuthSession, error) {
	return s.auth.Login(ctx, req.Email, req.Password)
}

func (s *AccountService) ChangePassword(ctx context.Context, id *models.Identity, password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return validationErrorf("password", "Password must be at least %d characters", minPasswordLength)
	}
	return s.auth.UpdatePassword(ctx, id.Token, password)
}

// Delete requires the exact confirmation text. Nothing is touched unless the
// provider can remove the auth user; then the study data is purged first and
// the auth user removed last.
func (s *AccountService) Delete(ctx context.Context, id *models.Identity, confirmText string) error {
	if confirmText != deleteConfirmation {
		return validationErrorf("confirmText", `Confirmation text must be "DELETE"`)
	}
	if !s.auth.CanDeleteUsers() {
		s.logger.Warn("account deletion refused: provider cannot delete users",
			slog.String("user_id", id.ID.String()),
		)
		return errDeletionNotConfigured
	}

	if err := s.scope(id).PurgeAccount(ctx); err != nil {
		return err
	}
	if err := s.auth.DeleteUser(ctx, id.ID); err != nil {
		s.logger.Error("study data purged but auth user not deleted",
			slog.String("user_id", id.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.Info("account deleted", slog.String("user_id", id.ID.String()))
	return nil
}
