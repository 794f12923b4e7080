// Package chat holds the conversation state for the assistant panel
// attached to a job session.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/guidelinehq/guidectl/internal/client"
)

// Greeting opens every conversation locally; it is never sent to the
// backend.
const Greeting = "Hi! Ask me anything about this guideline data, or pick one of the suggestions below."

// FallbackReply is shown in place of an answer when the backend call
// fails. The underlying error goes to the log, not the transcript.
const FallbackReply = "Sorry, I couldn't process that. Please try again."

// ErrBusy means a reply is still pending; input stays disabled until it
// arrives.
var ErrBusy = errors.New("a reply is still pending")

// SuggestedPrompts seed the empty conversation.
var SuggestedPrompts = []string{
	"Summarize the key guideline requirements",
	"What are the credit score thresholds?",
	"Which rules changed between the two documents?",
	"List all LTV limits mentioned",
}

// Roles in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    string
	Content string
}

type messenger interface {
	SendChatMessage(ctx context.Context, sessionID string, req client.ChatRequest) (string, error)
}

// Conversation is the state behind one chat panel. It is bound to a job
// session and discarded with it. Not safe for concurrent use; the panel
// owns it from a single goroutine.
type Conversation struct {
	client    messenger
	logger    *slog.Logger
	sessionID string
	mode      string
	ctxIDs    []string

	messages []Message
	busy     bool
}

// Option configures a new conversation.
type Option func(*Conversation)

// WithStructuredData scopes answers to the structured rows of the given
// ingest records instead of the raw document text.
func WithStructuredData(contextIDs []string) Option {
	return func(c *Conversation) {
		c.mode = client.ChatModeStructuredData
		c.ctxIDs = contextIDs
	}
}

// New creates a conversation for a job session, opened with the local
// greeting.
func New(mc messenger, logger *slog.Logger, sessionID string, opts ...Option) *Conversation {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Conversation{
		client:    mc,
		logger:    logger,
		sessionID: sessionID,
		mode:      client.ChatModeDocument,
		messages:  []Message{{Role: RoleAssistant, Content: Greeting}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Messages returns the transcript, greeting first.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Busy reports whether a reply is still pending.
func (c *Conversation) Busy() bool {
	return c.busy
}

// Mode returns the answer scope, document or structured_data.
func (c *Conversation) Mode() string {
	return c.mode
}

// Send appends the user's message, asks the backend for a reply, and
// appends it. A failed call appends the fallback reply instead and
// reports the error; the transcript keeps moving either way. Empty
// messages are ignored.
func (c *Conversation) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	defer func() { c.busy = false }()

	history := c.history()
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text})

	reply, err := c.client.SendChatMessage(ctx, c.sessionID, client.ChatRequest{
		Message:    text,
		History:    history,
		Mode:       c.mode,
		ContextIDs: c.ctxIDs,
	})
	if err != nil {
		c.logger.Error("chat message failed", "session_id", c.sessionID, "error", err)
		c.messages = append(c.messages, Message{Role: RoleAssistant, Content: FallbackReply})
		return err
	}

	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: reply})
	return nil
}

// history converts the transcript to wire turns, dropping the local
// greeting.
func (c *Conversation) history() []client.ChatTurn {
	turns := make([]client.ChatTurn, 0, len(c.messages))
	for i, m := range c.messages {
		if i == 0 && m.Role == RoleAssistant && m.Content == Greeting {
			continue
		}
		turns = append(turns, client.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns
}
