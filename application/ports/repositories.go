package ports

import (
	"context"

	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	"relay-backend/domain/events"
)

// UserRepository defines the interface for user persistence
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation
type UserRepository interface {
	// FindByEmail retrieves a user; a NotFound error when absent
	FindByEmail(ctx context.Context, email string) (*entities.User, error)

	// FindOrCreate returns the existing user or atomically creates one.
	// The creation path must be idempotent under concurrent first
	// reference: unique constraint, then read-on-conflict.
	FindOrCreate(ctx context.Context, email string) (*entities.User, error)
}

// ConversationRepository defines the interface for conversation reads.
// Conversation writes go through the UnitOfWork so membership and
// activity-timestamp changes stay atomic.
type ConversationRepository interface {
	// GetByID retrieves a conversation; a NotFound error when absent
	GetByID(ctx context.Context, id valueobjects.ConversationID) (*entities.Conversation, error)

	// ListByParticipant retrieves every conversation the user belongs to,
	// ordered by last-activity timestamp descending
	ListByParticipant(ctx context.Context, email string) ([]*entities.Conversation, error)
}

// ParticipantRepository defines the interface for membership facts.
// It is the sole writer of participant rows outside conversation
// creation/deletion.
type ParticipantRepository interface {
	// Add creates the membership; an AlreadyMember error if the
	// (conversation, email) pair exists. Concurrent adds of the same pair
	// have exactly one winner.
	Add(ctx context.Context, participant *entities.Participant) error

	// Remove deletes the membership; a NotMember error if absent
	Remove(ctx context.Context, id valueobjects.ConversationID, email string) error

	// ListByConversation returns all memberships for a conversation,
	// empty slice (not an error) when there are none
	ListByConversation(ctx context.Context, id valueobjects.ConversationID) ([]*entities.Participant, error)

	// IsMember reports whether the pair exists; used to gate sends
	IsMember(ctx context.Context, id valueobjects.ConversationID, email string) (bool, error)
}

// MessageRepository defines the interface for message history reads and the
// soft-delete flag. Appends go through the UnitOfWork.
type MessageRepository interface {
	// Page returns one zero-based page ordered by (createdAt, id)
	// descending, soft-deleted rows excluded. Past-the-end pages are
	// empty, not an error.
	Page(ctx context.Context, id valueobjects.ConversationID, page, size int) ([]*entities.Message, error)

	// History returns the full ordered sequence with the same ordering
	// and filter as Page
	History(ctx context.Context, id valueobjects.ConversationID) ([]*entities.Message, error)

	// Get retrieves one message by its composite key; NotFound when absent
	Get(ctx context.Context, id valueobjects.ConversationID, key valueobjects.MessageKey) (*entities.Message, error)

	// MarkDeleted sets the soft-delete flag; the row is never removed
	MarkDeleted(ctx context.Context, id valueobjects.ConversationID, key valueobjects.MessageKey) error
}

// UnitOfWork defines a transaction boundary for multi-row writes. All
// registered operations commit atomically or not at all.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// RegisterConversationCreate stages the conversation row plus all of
	// its initial membership rows
	RegisterConversationCreate(conv *entities.Conversation, participants []*entities.Participant) error

	// RegisterConversationDelete stages removal of the membership rows and
	// then the conversation row. Message rows are left untouched.
	RegisterConversationDelete(conv *entities.Conversation, participants []*entities.Participant) error

	// RegisterMessageAppend stages the message insert together with the
	// owning conversation's activity-timestamp bump
	RegisterMessageAppend(msg *entities.Message, conv *entities.Conversation) error

	// RegisterEvent stages a domain event for publication after commit
	RegisterEvent(event events.DomainEvent) error

	// Commit executes all registered operations atomically
	Commit(ctx context.Context) error

	// Rollback cancels the current transaction
	Rollback() error

	// Events returns the staged events of the last committed transaction
	Events() []events.DomainEvent
}

// UnitOfWorkFactory mints a fresh UnitOfWork per operation; instances are
// not safe for concurrent use
type UnitOfWorkFactory interface {
	New() UnitOfWork
}

// EventPublisher defines the interface for publishing domain events to the
// cross-service pipeline. Publication is fire-and-forget: failures are
// logged, never propagated into the triggering operation.
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
