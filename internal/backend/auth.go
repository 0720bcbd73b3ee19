package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/iqautojobs/jobboard-bff/internal/apierror"
	"github.com/iqautojobs/jobboard-bff/internal/ioutil"
	"github.com/iqautojobs/jobboard-bff/internal/log"
	"github.com/iqautojobs/jobboard-bff/internal/session"
	"github.com/iqautojobs/jobboard-bff/internal/validation"
)

const maxAuthBody = 1 << 20

// Backend cookie names that may carry tokens instead of the JSON body.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// LoginRequest is the credential pair forwarded to the backend.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates an account and signs it in.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,role"`
}

// AuthResult is a successful credential exchange. Token.AccessToken is empty
// when the backend sent no tokens in either the body or cookies.
type AuthResult struct {
	User  session.UserIdentity
	Token *oauth2.Token
}

// authResponse is the backend's success schema for login and register.
type authResponse struct {
	User         *authUser `json:"user" validate:"required"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
}

type authUser struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"required,role"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds LoginRequest) (*AuthResult, error) {
	return c.exchange(ctx, "login", "/api/auth/login", creds, "Login failed")
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, reg RegisterRequest) (*AuthResult, error) {
	return c.exchange(ctx, "register", "/api/auth/register", reg, "Registration failed")
}

func (c *Client) exchange(ctx context.Context, op, path string, payload any, defaultMessage string) (*AuthResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", op, err)
	}

	resp, err := c.Do(ctx, Request{
		Operation:   op,
		Method:      http.MethodPost,
		Path:        path,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadBody(resp.Body, maxAuthBody)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DomainError{Status: resp.StatusCode, Message: apierror.Message(raw, defaultMessage)}
	}

	var parsed authResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, invalidResponse(op, err)
	}
	if err := validation.Struct(&parsed); err != nil {
		return nil, invalidResponse(op, err)
	}

	role, err := session.ParseRole(parsed.User.Role)
	if err != nil {
		return nil, invalidResponse(op, err)
	}

	return &AuthResult{
		User: session.UserIdentity{
			Email:     parsed.User.Email,
			FirstName: parsed.User.FirstName,
			LastName:  parsed.User.LastName,
			Role:      role,
		},
		Token: tokenFrom(resp, parsed.AccessToken, parsed.RefreshToken, parsed.TokenType),
	}, nil
}

// Refresh trades a refresh token for a new access token. The returned
// token carries a refresh token only when the backend rotated it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	const op = "refresh"

	resp, err := c.Do(ctx, Request{
		Operation: op,
		Method:    http.MethodPost,
		Path:      "/api/auth/refresh",
		RawQuery:  url.Values{"refresh_token": {refreshToken}}.Encode(),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadBody(resp.Body, maxAuthBody)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DomainError{Status: resp.StatusCode, Message: apierror.Message(raw, "Session expired")}
	}

	var parsed refreshResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, invalidResponse(op, err)
	}
	token := tokenFrom(resp, parsed.AccessToken, parsed.RefreshToken, parsed.TokenType)
	parsed.AccessToken = token.AccessToken
	if err := validation.Struct(&parsed); err != nil {
		return nil, invalidResponse(op, err)
	}
	return token, nil
}

// Logout revokes the refresh token on the backend.
func (c *Client) Logout(ctx context.Context, token *oauth2.Token) error {
	const op = "logout"

	resp, err := c.Do(ctx, Request{
		Operation: op,
		Method:    http.MethodPost,
		Path:      "/api/auth/logout",
		RawQuery:  url.Values{"refresh_token": {token.RefreshToken}}.Encode(),
		Token:     token,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DomainError{Status: resp.StatusCode, Message: apierror.FromResponse(resp, "Logout failed")}
	}
	return nil
}

// tokenFrom prefers tokens from the JSON body and falls back to cookies
// the backend set on its response.
func tokenFrom(resp *http.Response, access, refresh, tokenType string) *oauth2.Token {
	for _, c := range resp.Cookies() {
		switch c.Name {
		case accessTokenCookie:
			if access == "" {
				access = c.Value
			}
		case refreshTokenCookie:
			if refresh == "" {
				refresh = c.Value
			}
		}
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenType,
	}
}

func invalidResponse(op string, cause error) error {
	log.LogErrorWithFields("backend", "Backend returned an invalid success payload", map[string]any{
		"operation": op,
		"error":     cause.Error(),
	})
	return fmt.Errorf("%s: %w", op, ErrInvalidServerResponse)
}
