package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AuthUser is the identity returned by the auth endpoints.
type AuthUser struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Role returns the role stored in the sign-up metadata.
func (u *AuthUser) Role() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	role, _ := u.Metadata["role"].(string)
	return role
}

// AuthResponse is the successful result of sign in and sign up.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	User         *AuthUser `json:"user"`
}

// SignIn exchanges email and password for an access token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("grant_type", "password")

	var resp AuthResponse
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	if err := c.auth(ctx, http.MethodPost, "/token", q, body, &resp); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	return &resp, nil
}

// SignUp registers a new identity. Metadata is stored with the user (role, names).
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResponse, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}

	body := map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
		"data":     metadata,
	}

	// Depending on confirmation settings the backend answers with a session or with the bare user.
	var raw map[string]any
	if err := c.auth(ctx, http.MethodPost, "/signup", nil, body, &raw); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	var resp AuthResponse
	if _, ok := raw["access_token"]; ok {
		if err := Decode(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode sign up session: %w", err)
		}
		return &resp, nil
	}

	var user AuthUser
	if err := Decode(raw, &user); err != nil {
		return nil, fmt.Errorf("decode sign up user: %w", err)
	}
	resp.User = &user

	return &resp, nil
}

// ResetPassword sends a recovery email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	if err := c.auth(ctx, http.MethodPost, "/recover", nil, map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	return nil
}

// UpdatePassword changes the password of the signed in user.
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	c.mu.RLock()
	signedIn := c.token != ""
	c.mu.RUnlock()
	if !signedIn {
		return errors.New("update password: access token is required")
	}

	if err := c.auth(ctx, http.MethodPut, "/user", nil, map[string]string{"password": password}, nil); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

func (c *Client) auth(ctx context.Context, method, path string, q url.Values, body any, target any) error {
	req, err := c.newRequest(ctx, method, c.APIURL+authPath+path, q, body)
	if err != nil {
		return err
	}

	return c.do(req, target)
}

func requireCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}
