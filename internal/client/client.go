// Package client is the sole point of contact with the guideline backend.
// Every other component issues its REST calls and progress subscriptions
// through it rather than talking to the network directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/guidelinehq/guidectl/internal/metrics"
	"github.com/guidelinehq/guidectl/internal/session"
)

// refreshWindow is how close to expiry the access token may get before a
// call refreshes it up front instead of waiting for the 401.
const refreshWindow = 30 * time.Second

// ErrSessionExpired is returned when the access token was rejected and the
// refresh attempt failed. Credential state has been cleared by then.
var ErrSessionExpired = errors.New("session expired, log in again")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
}

// Notifier receives human-readable error messages for display outside the
// normal return path (the transient notification channel).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

// Options configures a Client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Session  *session.Store
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Collector
}

// Client talks to the guideline backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; progress streams stay open for
	// the lifetime of a job.
	streamClient *http.Client
	session      *session.Store
	notifier     Notifier
	logger       *slog.Logger
	metrics      *metrics.Collector
}

// New creates a new backend client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8000"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string) {})
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}

	return &Client{
		baseURL:      opts.BaseURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		streamClient: &http.Client{},
		session:      opts.Session,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
}

// call describes one backend request. The body is held as bytes so the
// single refresh-and-retry can replay it.
type call struct {
	method      string
	path        string
	body        []byte
	contentType string
	// authExempt marks the login/refresh endpoints: no bearer retry and no
	// transient notification, they present their own failures.
	authExempt bool
	out        any
}

// do executes a call with bearer attachment, one proactive or reactive
// token refresh, error notification, and JSON decoding of the response.
func (c *Client) do(ctx context.Context, cl call) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpRequest, time.Since(start))
	}()

	creds := c.credentials()

	// Refresh up front when the token is about to lapse, so long uploads
	// do not fail halfway with a 401.
	if !cl.authExempt && creds != nil && creds.RefreshToken != "" && creds.ExpiresWithin(refreshWindow) {
		if err := c.refresh(ctx); err != nil {
			c.logger.Debug("proactive token refresh failed", "error", err)
		} else {
			creds = c.credentials()
		}
	}

	resp, err := c.send(ctx, cl, creds)
	if err != nil {
		if !cl.authExempt {
			c.notifier.Notify("Could not reach the server. Check your connection and try again.")
		}
		return fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !cl.authExempt {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			if clearErr := c.session.Clear(); clearErr != nil {
				c.logger.Warn("failed to clear credentials", "error", clearErr)
			}
			c.notifier.Notify("Your session has expired. Please log in again.")
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		resp, err = c.send(ctx, cl, c.credentials())
		if err != nil {
			c.notifier.Notify("Could not reach the server. Check your connection and try again.")
			return fmt.Errorf("retry request: %w", err)
		}
	}

	return c.decode(resp, cl)
}

// send issues the HTTP request once. The caller owns retry policy.
func (c *Client) send(ctx context.Context, cl call, creds *session.Credentials) (*http.Response, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if creds != nil && creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}

	return c.httpClient.Do(req)
}

// decode maps the response to either cl.out or an APIError.
func (c *Client) decode(resp *http.Response, cl call) error {
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.StatusCode),
		}
		if !cl.authExempt {
			c.notifier.Notify(apiErr.Message)
		}
		c.logger.Warn("backend call failed",
			"method", cl.method, "path", cl.path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if cl.out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, cl.out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts a human-readable message from an error body.
// Backends disagree about the field name, so a few are tried.
func errorMessage(body []byte, statusCode int) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Detail, payload.Message, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return http.StatusText(statusCode)
}

// credentials returns stored credentials or nil when not logged in.
func (c *Client) credentials() *session.Credentials {
	if c.session == nil {
		return nil
	}
	creds, err := c.session.Get()
	if err != nil {
		if !errors.Is(err, session.ErrNotLoggedIn) {
			c.logger.Warn("failed to read credentials", "error", err)
		}
		return nil
	}
	return creds
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func marshalBody(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return data, nil
}
