package handlers

import (
	"net/http"

	"revi-backend/internal/models"
	"revi-backend/internal/services"
)

type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// SignUp and Login relay the provider's session payload untouched.
func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.accounts.SignUp(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), id, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req models.DeleteAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.Delete(r.Context(), id, req.ConfirmText); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
