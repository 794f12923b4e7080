package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseHandler writes the given frames as an SSE response and then closes.
func sseHandler(t *testing.T, frames ...string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, frame := range frames {
			_, err := w.Write([]byte("data: " + frame + "\n\n"))
			require.NoError(t, err)
			flusher.Flush()
		}
	})
}

func collect(t *testing.T, s *ProgressStream) []ProgressEvent {
	t.Helper()
	var events []ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream events")
		}
	}
}

func TestProgressStreamDeliversEventsInOrder(t *testing.T) {
	c, _, store := newTestClient(t, sseHandler(t,
		`{"progress": 10, "message": "Starting"}`,
		`{"progress": 60, "message": "Extracting rules"}`,
		`{"progress": 100, "message": "Done", "status": "completed"}`,
	))
	loggedIn(t, store)

	s, err := c.OpenProgress(context.Background(), KindIngest, "abc123")
	require.NoError(t, err)
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 3)
	assert.Equal(t, 10.0, events[0].Progress)
	assert.Equal(t, "Starting", events[0].Message)
	assert.False(t, events[0].Terminal())
	assert.True(t, events[2].Completed())
	assert.NoError(t, s.Err())
}

func TestProgressStreamSkipsMalformedFrames(t *testing.T) {
	c, _, store := newTestClient(t, sseHandler(t,
		`{"progress": 5, "message": "ok"}`,
		`{not json at all`,
		`{"progress": 100, "status": "completed", "message": "done"}`,
	))
	loggedIn(t, store)

	s, err := c.OpenProgress(context.Background(), KindIngest, "abc123")
	require.NoError(t, err)
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 2, "the malformed frame is swallowed, not fatal")
	assert.Equal(t, 5.0, events[0].Progress)
	assert.True(t, events[1].Completed())
}

func TestProgressStreamFailureEvent(t *testing.T) {
	c, _, store := newTestClient(t, sseHandler(t,
		`{"progress": 40, "message": "Parsing"}`,
		`{"status": "failed", "error": "model quota exhausted", "message": "failed"}`,
	))
	loggedIn(t, store)

	s, err := c.OpenProgress(context.Background(), KindCompare, "cmp-9")
	require.NoError(t, err)
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 2)
	assert.True(t, events[1].Failed())
	assert.True(t, events[1].Terminal())
	assert.False(t, events[1].Completed())
	assert.Equal(t, "model quota exhausted", events[1].Error)
}

func TestProgressStreamCloseIsIdempotent(t *testing.T) {
	c, _, store := newTestClient(t, sseHandler(t,
		`{"progress": 10, "message": "Starting"}`,
	))
	loggedIn(t, store)

	s, err := c.OpenProgress(context.Background(), KindIngest, "abc123")
	require.NoError(t, err)

	s.Close()
	s.Close()
	collect(t, s)
}

func TestProgressStreamSessionExpired(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, notifier, store := newTestClient(t, handler)
	loggedIn(t, store)

	_, err := c.OpenProgress(context.Background(), KindIngest, "abc123")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NotEmpty(t, notifier.messages)
}

func TestTerminalPredicate(t *testing.T) {
	tests := []struct {
		name      string
		event     ProgressEvent
		completed bool
		failed    bool
	}{
		{"explicit completed", ProgressEvent{Status: "completed", Progress: 80}, true, false},
		{"progress 100 alone", ProgressEvent{Progress: 100}, true, false},
		{"both signals", ProgressEvent{Status: "completed", Progress: 100}, true, false},
		{"failed", ProgressEvent{Status: "failed", Error: "boom"}, false, true},
		{"mid-flight", ProgressEvent{Progress: 50, Message: "working"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.completed, tt.event.Completed())
			assert.Equal(t, tt.failed, tt.event.Failed())
			assert.Equal(t, tt.completed || tt.failed, tt.event.Terminal())
		})
	}
}
