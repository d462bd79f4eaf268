package memory

import (
	"context"
	"errors"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	domainevents "relay-backend/domain/events"
	apperrors "relay-backend/pkg/errors"
)

type stagedOp func(s *Store) error

// UnitOfWork batches writes and applies them under one store lock, so a
// commit is atomic with respect to every repository read. Instances are
// single-use; mint one per operation via the factory.
type UnitOfWork struct {
	store  *Store
	active bool
	ops    []stagedOp
	checks []stagedOp
	events []domainevents.DomainEvent
}

// UnitOfWorkFactory mints memory-backed units of work
type UnitOfWorkFactory struct {
	store *Store
}

// NewUnitOfWorkFactory creates the factory
func NewUnitOfWorkFactory(store *Store) ports.UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

// New mints a fresh unit of work
func (f *UnitOfWorkFactory) New() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return errors.New("transaction already active")
	}
	u.active = true
	u.ops = nil
	u.checks = nil
	u.events = nil
	return nil
}

// RegisterConversationCreate stages the conversation row and its initial
// membership rows
func (u *UnitOfWork) RegisterConversationCreate(conv *entities.Conversation, participants []*entities.Participant) error {
	if !u.active {
		return errors.New("no active transaction")
	}

	convRec := snapshotConversation(conv)
	memberRecs := make([]participantRecord, 0, len(participants))
	for _, p := range participants {
		memberRecs = append(memberRecs, snapshotParticipant(p))
	}

	u.checks = append(u.checks, func(s *Store) error {
		if _, exists := s.conversations[convRec.id]; exists {
			return apperrors.NewInternal("conversation already exists: "+convRec.id, nil)
		}
		return nil
	})
	u.ops = append(u.ops, func(s *Store) error {
		s.conversations[convRec.id] = convRec
		members := make(map[string]participantRecord, len(memberRecs))
		for _, rec := range memberRecs {
			members[rec.email] = rec
		}
		s.participants[convRec.id] = members
		return nil
	})
	return nil
}

// RegisterConversationDelete stages removal of the membership rows and the
// conversation row. Message rows are untouched.
func (u *UnitOfWork) RegisterConversationDelete(conv *entities.Conversation, participants []*entities.Participant) error {
	if !u.active {
		return errors.New("no active transaction")
	}

	convID := conv.ID().String()
	u.checks = append(u.checks, func(s *Store) error {
		if _, exists := s.conversations[convID]; !exists {
			return apperrors.NewNotFound("conversation not found: " + convID)
		}
		return nil
	})
	u.ops = append(u.ops, func(s *Store) error {
		delete(s.participants, convID)
		delete(s.conversations, convID)
		return nil
	})
	return nil
}

// RegisterMessageAppend stages the message insert together with the owning
// conversation's activity bump
func (u *UnitOfWork) RegisterMessageAppend(msg *entities.Message, conv *entities.Conversation) error {
	if !u.active {
		return errors.New("no active transaction")
	}

	msgRec := snapshotMessage(msg)
	bumpedAt := conv.UpdatedAt()

	u.checks = append(u.checks, func(s *Store) error {
		if _, exists := s.conversations[msgRec.conversationID]; !exists {
			return apperrors.NewNotFound("conversation not found: " + msgRec.conversationID)
		}
		for _, existing := range s.messages[msgRec.conversationID] {
			if existing.id == msgRec.id {
				return apperrors.NewInternal("duplicate message id: "+msgRec.id, nil)
			}
		}
		return nil
	})
	u.ops = append(u.ops, func(s *Store) error {
		s.messages[msgRec.conversationID] = append(s.messages[msgRec.conversationID], msgRec)
		convRec := s.conversations[msgRec.conversationID]
		if bumpedAt.After(convRec.updatedAt) {
			convRec.updatedAt = bumpedAt
			s.conversations[msgRec.conversationID] = convRec
		}
		return nil
	})
	return nil
}

// RegisterEvent stages a domain event for publication after commit
func (u *UnitOfWork) RegisterEvent(event domainevents.DomainEvent) error {
	if !u.active {
		return errors.New("no active transaction")
	}
	u.events = append(u.events, event)
	return nil
}

// Commit runs all checks and then all mutations under a single store lock
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if !u.active {
		return errors.New("no active transaction")
	}
	u.active = false

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, check := range u.checks {
		if err := check(u.store); err != nil {
			u.events = nil
			return err
		}
	}
	for _, op := range u.ops {
		if err := op(u.store); err != nil {
			return err
		}
	}
	return nil
}

// Rollback discards all staged work
func (u *UnitOfWork) Rollback() error {
	u.active = false
	u.ops = nil
	u.checks = nil
	u.events = nil
	return nil
}

// Events returns the staged events of the last committed transaction
func (u *UnitOfWork) Events() []domainevents.DomainEvent {
	return u.events
}
