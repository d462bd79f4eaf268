package events

import (
	"time"

	"relay-backend/domain/core/valueobjects"
)

// Event type tags as they appear on the bus
const (
	TypeConversationCreated = "conversation.created"
	TypeConversationDeleted = "conversation.deleted"
	TypeParticipantAdded    = "conversation.participant_added"
	TypeParticipantRemoved  = "conversation.participant_removed"
	TypeUserCreated         = "user.created"
)

// ConversationCreated is raised when a conversation is created
type ConversationCreated struct {
	BaseEvent
	ConversationID    valueobjects.ConversationID   `json:"conversation_id"`
	ConversationType  valueobjects.ConversationType `json:"conversation_type"`
	ParticipantEmails []string                      `json:"participant_emails"`
}

// NewConversationCreated creates a ConversationCreated event
func NewConversationCreated(id valueobjects.ConversationID, ctype valueobjects.ConversationType, participants []string, timestamp time.Time) ConversationCreated {
	return ConversationCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConversationCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConversationID:    id,
		ConversationType:  ctype,
		ParticipantEmails: participants,
	}
}

// ConversationDeleted is raised after a conversation and its memberships
// are removed. Message rows are intentionally left in place; downstream
// consumers decide what to do with the orphaned history.
type ConversationDeleted struct {
	BaseEvent
	ConversationID valueobjects.ConversationID `json:"conversation_id"`
}

// NewConversationDeleted creates a ConversationDeleted event
func NewConversationDeleted(id valueobjects.ConversationID, timestamp time.Time) ConversationDeleted {
	return ConversationDeleted{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeConversationDeleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConversationID: id,
	}
}

// ParticipantAdded is raised when a user joins a conversation
type ParticipantAdded struct {
	BaseEvent
	ConversationID valueobjects.ConversationID `json:"conversation_id"`
	Email          string                      `json:"email"`
}

// NewParticipantAdded creates a ParticipantAdded event
func NewParticipantAdded(id valueobjects.ConversationID, email string, timestamp time.Time) ParticipantAdded {
	return ParticipantAdded{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeParticipantAdded,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConversationID: id,
		Email:          email,
	}
}

// ParticipantRemoved is raised when a user leaves a conversation
type ParticipantRemoved struct {
	BaseEvent
	ConversationID valueobjects.ConversationID `json:"conversation_id"`
	Email          string                      `json:"email"`
}

// NewParticipantRemoved creates a ParticipantRemoved event
func NewParticipantRemoved(id valueobjects.ConversationID, email string, timestamp time.Time) ParticipantRemoved {
	return ParticipantRemoved{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeParticipantRemoved,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConversationID: id,
		Email:          email,
	}
}

// UserCreated is the inbound shape consumed from the identity pipeline;
// this service upserts the referenced user when it arrives.
type UserCreated struct {
	BaseEvent
	Email string `json:"email"`
}
