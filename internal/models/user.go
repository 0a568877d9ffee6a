package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Identity is the caller as resolved from a bearer token.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Token string    `json:"-"`
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type DeleteAccountRequest struct {
	ConfirmText string `json:"confirmText"`
}

// AuthSession is the auth provider's response passed through unchanged.
type AuthSession = json.RawMessage

type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}
