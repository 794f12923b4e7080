package client

import (
	"context"
	"net/http"
	"time"

	"github.com/guidelinehq/guidectl/internal/metrics"
)

// Chat modes select what the assistant reasons over.
const (
	ChatModeDocument       = "document"
	ChatModeStructuredData = "structured_data"
)

// ChatTurn is one message of the conversational context sent with a
// chat request.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks the assistant a question scoped to a job's dataset or
// source document.
type ChatRequest struct {
	Message    string     `json:"message"`
	History    []ChatTurn `json:"history"`
	Mode       string     `json:"mode"`
	ContextIDs []string   `json:"context_ids"`
}

// SendChatMessage posts one chat message with its conversational context
// and returns the assistant reply.
func (c *Client) SendChatMessage(ctx context.Context, sessionID string, req ChatRequest) (string, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpChatSend, time.Since(start))
	}()

	body, err := marshalBody(req)
	if err != nil {
		return "", err
	}

	var resp struct {
		Reply string `json:"reply"`
	}
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/chat/session/" + sessionID + "/message",
		body:        body,
		contentType: "application/json",
		out:         &resp,
	})
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}
