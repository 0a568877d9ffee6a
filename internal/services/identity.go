package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"revi-backend/internal/models"
)

const identityService = "auth provider"

// IdentityProvider talks to Supabase Auth (GoTrue). Token resolution and
// password changes run as the caller; user deletion runs with the service
// role key and is disabled when none is configured.
//
// gotrue-go calls take no context, so cancellation is only checked before
// each call; the HTTP client timeout bounds the rest.
type IdentityProvider struct {
	public gotrue.Client
	admin  gotrue.Client
}

func NewIdentityProvider(baseURL, anonKey, serviceKey string, timeout time.Duration) *IdentityProvider {
	authURL := baseURL + "/auth/v1"
	httpClient := http.Client{Timeout: timeout}

	p := &IdentityProvider{
		public: gotrue.New("", anonKey).WithCustomGoTrueURL(authURL).WithClient(httpClient),
	}
	if serviceKey != "" {
		p.admin = gotrue.New("", serviceKey).
			WithCustomGoTrueURL(authURL).
			WithClient(httpClient).
			WithToken(serviceKey)
	}
	return p
}

// ResolveToken asks the provider who owns token. A rejected token is an
// UnauthorizedError; anything else that goes wrong is an UpstreamError.
func (p *IdentityProvider) ResolveToken(ctx context.Context, token string) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Service: identityService, Err: err}
	}
	user, err := p.public.WithToken(token).GetUser()
	if err != nil {
		up := providerError(err)
		if up.Status == http.StatusUnauthorized || up.Status == http.StatusForbidden {
			return nil, &UnauthorizedError{Message: "Invalid or expired token"}
		}
		return nil, up
	}
	if user.ID == uuid.Nil {
		return nil, &UnauthorizedError{Message: "Invalid or expired token"}
	}
	return &models.Identity{ID: user.ID, Email: user.Email, Role: user.Role, Token: token}, nil
}

func (p *IdentityProvider) SignUp(ctx context.Context, email, password string) (models.AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Service: identityService, Err: err}
	}
	resp, err := p.public.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		return nil, providerError(err)
	}
	return encodeSession(resp)
}

func (p *IdentityProvider) Login(ctx context.Context, email, password string) (models.AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Service: identityService, Err: err}
	}
	resp, err := p.public.SignInWithEmailPassword(email, password)
	if err != nil {
		up := providerError(err)
		if up.Status == http.StatusBadRequest {
			return nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, up
	}
	return encodeSession(resp)
}

func (p *IdentityProvider) UpdatePassword(ctx context.Context, token, password string) error {
	if err := ctx.Err(); err != nil {
		return &UpstreamError{Service: identityService, Err: err}
	}
	if _, err := p.public.WithToken(token).UpdateUser(types.UpdateUserRequest{Password: &password}); err != nil {
		return providerError(err)
	}
	return nil
}

// CanDeleteUsers reports whether a service role key is configured.
func (p *IdentityProvider) CanDeleteUsers() bool {
	return p.admin != nil
}

// DeleteUser removes the auth user. Requires the service role key.
func (p *IdentityProvider) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if !p.CanDeleteUsers() {
		return errDeletionNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return &UpstreamError{Service: identityService, Err: err}
	}
	if err := p.admin.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: userID}); err != nil {
		return providerError(err)
	}
	return nil
}

var errDeletionNotConfigured = &UpstreamError{Service: identityService, Message: "Account deletion is not configured"}

func encodeSession(v any) (models.AuthSession, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &UpstreamError{Service: identityService, Err: fmt.Errorf("encode session: %w", err)}
	}
	return b, nil
}

// gotrue-go reports non-2xx replies as "response status code N: <body>".
var statusPattern = regexp.MustCompile(`(?s)response status code (\d+)(?::\s*(.*))?`)

func providerError(err error) *UpstreamError {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return &UpstreamError{Service: identityService, Err: err}
	}
	status, _ := strconv.Atoi(m[1])
	return &UpstreamError{
		Service: identityService,
		Status:  status,
		Message: providerMessage([]byte(m[2])),
		Err:     err,
	}
}

// providerMessage picks the human-readable field out of a GoTrue error body.
func providerMessage(body []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}
