package client

import (
	"context"
	"net/http"

	"github.com/gennadis/facultydash/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is what the backend returns for valid credentials
type LoginResponse struct {
	Token        string               `json:"token"`
	FacultyEmail string               `json:"faculty_email"`
	Courses      []session.Assignment `json:"courses"`
}

// Login exchanges credentials for a bearer token. It must be called on a
// client without bearer auth.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	r, err := jsonRequest("login", http.MethodPost, "/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp := LoginResponse{}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify checks that the current token is still accepted
func (c *Client) Verify(ctx context.Context) error {
	return c.do(ctx, request{op: "verify", method: http.MethodGet, path: "/"}, nil)
}

// ClearAll purges every context of the faculty member
func (c *Client) ClearAll(ctx context.Context) error {
	return c.do(ctx, request{op: "clear-all", method: http.MethodPost, path: "/clear-all"}, nil)
}
