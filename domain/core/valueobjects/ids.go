package valueobjects

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ConversationID is a value object representing a unique conversation identifier
// Value objects are immutable and have no identity beyond their value
type ConversationID struct {
	value string
}

// NewConversationID creates a new random ConversationID
func NewConversationID() ConversationID {
	return ConversationID{value: uuid.New().String()}
}

// NewConversationIDFromString creates a ConversationID from an existing string
func NewConversationIDFromString(id string) (ConversationID, error) {
	if id == "" {
		return ConversationID{}, errors.New("conversation ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ConversationID{}, errors.New("conversation ID must be a valid UUID")
	}
	return ConversationID{value: id}, nil
}

// String returns the string representation of the ConversationID
func (id ConversationID) String() string {
	return id.value
}

// Equals checks if two ConversationIDs are equal
func (id ConversationID) Equals(other ConversationID) bool {
	return id.value == other.value
}

// IsZero checks if the ConversationID is the zero value
func (id ConversationID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ConversationID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ConversationID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ConversationID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// MessageKey is the composite identity of a message: a generated UUID plus
// the creation timestamp. Ordering and identity are deliberately coupled so
// two messages created in the same instant still have distinct keys and
// history ordering stays deterministic.
type MessageKey struct {
	id        string
	createdAt time.Time
}

// NewMessageKey mints a key for a message created now
func NewMessageKey(now time.Time) MessageKey {
	return MessageKey{id: uuid.New().String(), createdAt: now.UTC()}
}

// NewMessageKeyFrom reconstructs a key from its stored parts
func NewMessageKeyFrom(id string, createdAt time.Time) (MessageKey, error) {
	if id == "" {
		return MessageKey{}, errors.New("message ID cannot be empty")
	}
	if !isValidUUID(id) {
		return MessageKey{}, errors.New("message ID must be a valid UUID")
	}
	if createdAt.IsZero() {
		return MessageKey{}, errors.New("message creation time cannot be zero")
	}
	return MessageKey{id: id, createdAt: createdAt.UTC()}, nil
}

// ID returns the generated identifier half of the key
func (k MessageKey) ID() string {
	return k.id
}

// CreatedAt returns the timestamp half of the key
func (k MessageKey) CreatedAt() time.Time {
	return k.createdAt
}

// Equals checks if two MessageKeys identify the same message
func (k MessageKey) Equals(other MessageKey) bool {
	return k.id == other.id && k.createdAt.Equal(other.createdAt)
}

// IsZero checks if the MessageKey is the zero value
func (k MessageKey) IsZero() bool {
	return k.id == ""
}

// Before reports whether k sorts before other in chronological order.
// Creation time decides; the identifier breaks timestamp ties so the
// ordering is total.
func (k MessageKey) Before(other MessageKey) bool {
	if !k.createdAt.Equal(other.createdAt) {
		return k.createdAt.Before(other.createdAt)
	}
	return k.id < other.id
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
