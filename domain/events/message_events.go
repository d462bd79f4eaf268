package events

import (
	"time"

	"relay-backend/domain/core/valueobjects"
)

// Event type tags for message lifecycle
const (
	TypeMessageCreated     = "message.created"
	TypeMessageSoftDeleted = "message.soft_deleted"
)

// MessageCreated is raised after a message has been durably appended and
// the conversation's activity timestamp bumped
type MessageCreated struct {
	BaseEvent
	MessageID      string                      `json:"message_id"`
	ConversationID valueobjects.ConversationID `json:"conversation_id"`
	SenderEmail    string                      `json:"sender_email"`
	MessageType    valueobjects.MessageType    `json:"message_type"`
}

// NewMessageCreated creates a MessageCreated event
func NewMessageCreated(key valueobjects.MessageKey, conversationID valueobjects.ConversationID, senderEmail string, mtype valueobjects.MessageType) MessageCreated {
	return MessageCreated{
		BaseEvent: BaseEvent{
			AggregateID: conversationID.String(),
			EventType:   TypeMessageCreated,
			Timestamp:   key.CreatedAt(),
			Version:     1,
		},
		MessageID:      key.ID(),
		ConversationID: conversationID,
		SenderEmail:    senderEmail,
		MessageType:    mtype,
	}
}

// MessageSoftDeleted is raised when a message is hidden from history
type MessageSoftDeleted struct {
	BaseEvent
	MessageID      string                      `json:"message_id"`
	ConversationID valueobjects.ConversationID `json:"conversation_id"`
}

// NewMessageSoftDeleted creates a MessageSoftDeleted event
func NewMessageSoftDeleted(key valueobjects.MessageKey, conversationID valueobjects.ConversationID, timestamp time.Time) MessageSoftDeleted {
	return MessageSoftDeleted{
		BaseEvent: BaseEvent{
			AggregateID: conversationID.String(),
			EventType:   TypeMessageSoftDeleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		MessageID:      key.ID(),
		ConversationID: conversationID,
	}
}
