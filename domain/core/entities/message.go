package entities

import (
	"errors"
	"time"

	"relay-backend/domain/core/valueobjects"
)

// Message is one unit of communication within a conversation. It is
// immutable after append except for the one-way soft-delete flag.
type Message struct {
	key            valueobjects.MessageKey
	conversationID valueobjects.ConversationID
	senderEmail    string
	mtype          valueobjects.MessageType
	content        string
	deleted        bool
}

// NewMessage creates a message appended now. Content may be empty for
// non-text types.
func NewMessage(
	conversationID valueobjects.ConversationID,
	senderEmail string,
	mtype valueobjects.MessageType,
	content string,
) (*Message, error) {
	if conversationID.IsZero() {
		return nil, errors.New("conversation ID is required")
	}
	if senderEmail == "" {
		return nil, errors.New("sender email is required")
	}
	if mtype == "" {
		mtype = valueobjects.MessageTypeText
	}
	if mtype == valueobjects.MessageTypeText && content == "" {
		return nil, errors.New("text messages require content")
	}

	return &Message{
		key:            valueobjects.NewMessageKey(time.Now()),
		conversationID: conversationID,
		senderEmail:    senderEmail,
		mtype:          mtype,
		content:        content,
	}, nil
}

// ReconstructMessage rebuilds a message from stored state
func ReconstructMessage(
	key valueobjects.MessageKey,
	conversationID valueobjects.ConversationID,
	senderEmail string,
	mtype valueobjects.MessageType,
	content string,
	deleted bool,
) *Message {
	return &Message{
		key:            key,
		conversationID: conversationID,
		senderEmail:    senderEmail,
		mtype:          mtype,
		content:        content,
		deleted:        deleted,
	}
}

// Key returns the composite (id, createdAt) identity
func (m *Message) Key() valueobjects.MessageKey {
	return m.key
}

// ConversationID returns the owning conversation
func (m *Message) ConversationID() valueobjects.ConversationID {
	return m.conversationID
}

// SenderEmail returns the sender's user key
func (m *Message) SenderEmail() string {
	return m.senderEmail
}

// Type returns the media kind tag
func (m *Message) Type() valueobjects.MessageType {
	return m.mtype
}

// Content returns the message text, empty for non-text types
func (m *Message) Content() string {
	return m.content
}

// CreatedAt returns the timestamp half of the composite key
func (m *Message) CreatedAt() time.Time {
	return m.key.CreatedAt()
}

// IsDeleted reports whether the message is hidden from history
func (m *Message) IsDeleted() bool {
	return m.deleted
}

// SoftDelete hides the message from default history queries. The transition
// is one-way; the row itself is never removed.
func (m *Message) SoftDelete() {
	m.deleted = true
}
