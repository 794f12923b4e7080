package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/guidelinehq/guidectl/internal/session"
)

// loginResponse is the token payload returned by login and refresh.
type loginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         session.User `json:"user"`
}

// Login authenticates and stores the returned credentials. The remember
// flag selects durable vs session-scoped storage. Login presents its own
// failures, so it is exempt from the transient notification channel.
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (*session.User, error) {
	body, err := marshalBody(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        body,
		contentType: "application/json",
		authExempt:  true,
		out:         &resp,
	})
	if err != nil {
		return nil, err
	}

	creds := &session.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}
	if err := c.session.Set(creds, remember); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	c.logger.Info("logged in", "user", resp.User.Email, "remember", remember)
	return &resp.User, nil
}

// Logout clears all local credential state.
func (c *Client) Logout() error {
	if err := c.session.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

// CurrentUser returns the stored user record without a network call.
func (c *Client) CurrentUser() (*session.User, error) {
	creds, err := c.session.Get()
	if err != nil {
		return nil, err
	}
	return &creds.User, nil
}

// refresh exchanges the refresh token for a new token pair and rewrites
// the stored credentials in place. Called at most once per original
// request, from do.
func (c *Client) refresh(ctx context.Context) error {
	creds, err := c.session.Get()
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		return fmt.Errorf("no refresh token held")
	}

	body, err := marshalBody(map[string]string{"refresh_token": creds.RefreshToken})
	if err != nil {
		return err
	}

	var resp loginResponse
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/auth/refresh",
		body:        body,
		contentType: "application/json",
		authExempt:  true,
		out:         &resp,
	})
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}

	next := &session.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         creds.User,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}
	if err := c.session.Set(next, c.session.Remembered()); err != nil {
		return fmt.Errorf("store refreshed credentials: %w", err)
	}

	c.logger.Debug("access token refreshed")
	return nil
}
