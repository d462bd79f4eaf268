package entities

import (
	"errors"
	"time"

	"relay-backend/domain/core/valueobjects"
)

// Participant is the fact that a user belongs to a conversation. The
// (conversation, email) pair is unique; the row carries only the join time.
type Participant struct {
	conversationID valueobjects.ConversationID
	email          string
	joinedAt       time.Time
}

// NewParticipant records a user joining a conversation now
func NewParticipant(conversationID valueobjects.ConversationID, email string) (*Participant, error) {
	if conversationID.IsZero() {
		return nil, errors.New("conversation ID is required")
	}
	if email == "" {
		return nil, errors.New("email is required")
	}

	return &Participant{
		conversationID: conversationID,
		email:          email,
		joinedAt:       time.Now().UTC(),
	}, nil
}

// ReconstructParticipant rebuilds a membership fact from stored state
func ReconstructParticipant(conversationID valueobjects.ConversationID, email string, joinedAt time.Time) *Participant {
	return &Participant{
		conversationID: conversationID,
		email:          email,
		joinedAt:       joinedAt,
	}
}

// ConversationID returns the owning conversation
func (p *Participant) ConversationID() valueobjects.ConversationID {
	return p.conversationID
}

// Email returns the member's user key
func (p *Participant) Email() string {
	return p.email
}

// JoinedAt returns when the membership was created
func (p *Participant) JoinedAt() time.Time {
	return p.joinedAt
}
