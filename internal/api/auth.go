package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/alaincodes24/taskdeck/internal/models"
)

// AuthResult is what login and registration hand back
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// authEnvelope accepts both `{"payload": {"token", "user"}}` (login) and a
// flat `{"token", "user"}` (register)
type authEnvelope struct {
	Payload *AuthResult `json:"payload"`
	AuthResult
}

func (e authEnvelope) result() AuthResult {
	if e.Payload != nil {
		return *e.Payload
	}
	return e.AuthResult
}

// userEnvelope accepts `{"payload": user}`, `{"user": user}` or a bare user
type userEnvelope struct {
	Payload *models.User `json:"payload"`
	Wrapped *models.User `json:"user"`
	models.User
}

func (e userEnvelope) user() models.User {
	switch {
	case e.Payload != nil:
		return *e.Payload
	case e.Wrapped != nil:
		return *e.Wrapped
	}
	return e.User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errMissingToken = errors.New("response carried no token")

// Login exchanges credentials for a token and the user profile
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/login", loginRequest{Email: email, Password: password})
}

// Register creates an account; the response is equivalent to a login
func (c *Client) Register(ctx context.Context, in models.RegisterInput) (AuthResult, error) {
	return c.authenticate(ctx, "/register", in)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (AuthResult, error) {
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, &env); err != nil {
		return AuthResult{}, err
	}
	res := env.result()
	if res.Token == "" {
		return AuthResult{}, &Error{Kind: KindDecode, Op: http.MethodPost + " " + path, Status: http.StatusOK, Err: errMissingToken}
	}
	return res, nil
}

// Logout invalidates the current token server side
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Me fetches the profile of the token's owner
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/user", nil, &env); err != nil {
		return models.User{}, err
	}
	return env.user(), nil
}
