package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Session is one conversation's state. It is owned by exactly one
// conversation and passed explicitly into every turn.
type Session struct {
	ID          string           `json:"id"`
	Condition   Condition        `json:"condition"`
	Pending     *PendingQuestion `json:"pending,omitempty"`
	LastPickIDs []string         `json:"last_pick_ids,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type SessionRepository interface {
	// LoadSession returns the stored session, or (nil, nil) when none exists.
	LoadSession(ctx context.Context, sessionID string) (*Session, error)

	// SaveSession stores the session snapshot.
	SaveSession(ctx context.Context, session *Session) error

	// DeleteSession drops the snapshot and its transcript.
	DeleteSession(ctx context.Context, sessionID string) error

	// AddMessage appends a transcript message for the session.
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the transcript for the session.
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)
}

// ConversationHistory represents a loaded transcript.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}
