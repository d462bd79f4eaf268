package entities

import (
	"errors"
	"time"

	"relay-backend/domain/core/valueobjects"
)

// Conversation is a named container for an ordered message history and a
// membership set. The metadata blob is carried opaquely and never parsed.
type Conversation struct {
	id        valueobjects.ConversationID
	title     string
	ctype     valueobjects.ConversationType
	metadata  string
	createdAt time.Time
	updatedAt time.Time
}

// NewConversation creates a conversation. Title and metadata are optional;
// the type tag is required.
func NewConversation(title string, ctype valueobjects.ConversationType, metadata string) (*Conversation, error) {
	if ctype == "" {
		return nil, errors.New("conversation type is required")
	}

	now := time.Now().UTC()
	return &Conversation{
		id:        valueobjects.NewConversationID(),
		title:     title,
		ctype:     ctype,
		metadata:  metadata,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructConversation rebuilds a conversation from stored state
func ReconstructConversation(
	id valueobjects.ConversationID,
	title string,
	ctype valueobjects.ConversationType,
	metadata string,
	createdAt time.Time,
	updatedAt time.Time,
) *Conversation {
	return &Conversation{
		id:        id,
		title:     title,
		ctype:     ctype,
		metadata:  metadata,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the conversation identifier
func (c *Conversation) ID() valueobjects.ConversationID {
	return c.id
}

// Title returns the optional display title
func (c *Conversation) Title() string {
	return c.title
}

// Type returns the conversation type tag
func (c *Conversation) Type() valueobjects.ConversationType {
	return c.ctype
}

// Metadata returns the opaque metadata blob
func (c *Conversation) Metadata() string {
	return c.metadata
}

// CreatedAt returns the creation timestamp
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns the last-activity timestamp
func (c *Conversation) UpdatedAt() time.Time {
	return c.updatedAt
}

// RecordActivity bumps the last-activity timestamp. The timestamp is
// monotonically non-decreasing: a stale clock reading never moves it
// backwards.
func (c *Conversation) RecordActivity(at time.Time) {
	at = at.UTC()
	if at.After(c.updatedAt) {
		c.updatedAt = at
	}
}
