package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/guidelinehq/guidectl/internal/metrics"
)

// ProgressEvent is one frame of a job's progress stream.
type ProgressEvent struct {
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Status   string  `json:"status,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Completed reports terminal success. Backends signal completion either
// with an explicit status or by reaching 100 percent; both must be
// honored, some send only one of the two.
func (e ProgressEvent) Completed() bool {
	return e.Status == "completed" || e.Progress >= 100
}

// Failed reports terminal failure.
func (e ProgressEvent) Failed() bool {
	return e.Status == "failed"
}

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Completed() || e.Failed()
}

// ProgressStream is one live server-sent-event connection for a job.
// The caller owns its lifecycle and must call Close; Close is safe to
// call more than once and from the reader's consumer.
type ProgressStream struct {
	events chan ProgressEvent
	body   io.ReadCloser
	cancel context.CancelFunc

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// OpenProgress opens exactly one new progress connection for the given
// job. Each call creates a fresh connection; the gateway does not track
// or multiplex them.
func (c *Client) OpenProgress(ctx context.Context, kind Kind, sessionID string) (*ProgressStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	resp, err := c.openStream(ctx, kind.pathPrefix()+"/progress/"+sessionID)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &ProgressStream{
		events: make(chan ProgressEvent),
		body:   resp.Body,
		cancel: cancel,
	}
	go s.read(ctx, c)
	return s, nil
}

// openStream issues the SSE request, with the same one-shot refresh on a
// rejected token as any other call.
func (c *Client) openStream(ctx context.Context, path string) (*http.Response, error) {
	request := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
		if creds := c.credentials(); creds != nil && creds.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
		return c.streamClient.Do(req)
	}

	resp, err := request()
	if err != nil {
		c.notifier.Notify("Could not open the progress stream.")
		return nil, fmt.Errorf("open progress stream: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			c.notifier.Notify("Your session has expired. Please log in again.")
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		resp, err = request()
		if err != nil {
			return nil, fmt.Errorf("reopen progress stream: %w", err)
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
		c.notifier.Notify(apiErr.Message)
		return nil, apiErr
	}

	return resp, nil
}

// read consumes SSE frames until the body ends or the context is
// canceled. Malformed frames are logged and skipped so one bad frame
// cannot abort the job.
func (s *ProgressStream) read(ctx context.Context, c *Client) {
	defer close(s.events)

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		// An SSE frame is one or more "data:" lines terminated by a
		// blank line. Other field names (event, id, retry) and comment
		// lines are not part of this backend's contract.
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(payload, " "))
			continue
		}
		if line != "" {
			continue
		}
		if data.Len() == 0 {
			continue
		}

		frame := data.String()
		data.Reset()

		var event ProgressEvent
		if err := json.Unmarshal([]byte(frame), &event); err != nil {
			c.logger.Warn("skipping malformed progress event", "error", err, "frame", frame)
			continue
		}

		c.metrics.RecordTiming(metrics.OpStreamEvent, 0)
		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.setErr(fmt.Errorf("progress stream: %w", err))
	}
}

// Events returns the event channel. It is closed when the stream ends
// for any reason; Err reports whether that end was a transport failure.
func (s *ProgressStream) Events() <-chan ProgressEvent {
	return s.events
}

// Err returns the transport error that ended the stream, if any. Valid
// once Events is closed.
func (s *ProgressStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ProgressStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Close tears the connection down. Exactly one close takes effect no
// matter how many exit paths reach it.
func (s *ProgressStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close()
	})
}
