package services

import (
	"context"
	"time"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	"relay-backend/domain/events"
	apperrors "relay-backend/pkg/errors"

	"go.uber.org/zap"
)

// ConversationView is the enriched read shape returned to callers: the
// conversation row plus its current member list.
type ConversationView struct {
	ID                string    `json:"id"`
	Title             string    `json:"title,omitempty"`
	Type              string    `json:"type"`
	Metadata          string    `json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ParticipantEmails []string  `json:"participant_emails"`
}

// CreateConversationInput carries the create request
type CreateConversationInput struct {
	Title             string
	Type              string
	Metadata          string
	ParticipantEmails []string
}

// ConversationService owns the conversation registry: conversation rows and
// their membership sets. It is the only writer of both.
type ConversationService struct {
	conversations ports.ConversationRepository
	participants  ports.ParticipantRepository
	identity      *IdentityService
	uowFactory    ports.UnitOfWorkFactory
	publisher     ports.EventPublisher
	logger        *zap.Logger
}

// NewConversationService creates the conversation service
func NewConversationService(
	conversations ports.ConversationRepository,
	participants ports.ParticipantRepository,
	identity *IdentityService,
	uowFactory ports.UnitOfWorkFactory,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		identity:      identity,
		uowFactory:    uowFactory,
		publisher:     publisher,
		logger:        logger,
	}
}

// Create creates a conversation and registers every participant in one
// transaction. Duplicate emails in the input are deduplicated, so they
// cannot trip the membership uniqueness constraint.
func (s *ConversationService) Create(ctx context.Context, input CreateConversationInput) (*ConversationView, error) {
	ctype, err := valueobjects.ParseConversationType(input.Type)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	emails := dedupeEmails(input.ParticipantEmails)
	if len(emails) == 0 {
		return nil, apperrors.NewValidation("participant emails are required")
	}

	conv, err := entities.NewConversation(input.Title, ctype, input.Metadata)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	members := make([]*entities.Participant, 0, len(emails))
	for _, email := range emails {
		if _, err := s.identity.ResolveOrCreate(ctx, email); err != nil {
			return nil, apperrors.Wrap(err, "resolve participant "+email)
		}

		participant, err := entities.NewParticipant(conv.ID(), email)
		if err != nil {
			return nil, apperrors.NewValidation(err.Error())
		}
		members = append(members, participant)
	}

	uow := s.uowFactory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, apperrors.NewTransient("begin transaction", err)
	}
	if err := uow.RegisterConversationCreate(conv, members); err != nil {
		uow.Rollback()
		return nil, apperrors.Wrap(err, "stage conversation create")
	}
	uow.RegisterEvent(events.NewConversationCreated(conv.ID(), conv.Type(), emails, conv.CreatedAt()))
	if err := uow.Commit(ctx); err != nil {
		return nil, transientUnlessTyped(err, "create conversation")
	}

	s.publishAsync(uow.Events())

	s.logger.Info("conversation created",
		zap.String("conversationID", conv.ID().String()),
		zap.String("type", string(conv.Type())),
		zap.Int("participants", len(members)),
	)

	return s.toView(conv, emails), nil
}

// GetByID returns a conversation enriched with its current member list
func (s *ConversationService) GetByID(ctx context.Context, id string) (*ConversationView, error) {
	convID, err := valueobjects.NewConversationIDFromString(id)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	emails, err := s.memberEmails(ctx, convID)
	if err != nil {
		return nil, err
	}

	return s.toView(conv, emails), nil
}

// ListForUser returns every conversation the user belongs to, most recently
// active first. A user with no conversations gets an empty list.
func (s *ConversationService) ListForUser(ctx context.Context, email string) ([]*ConversationView, error) {
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}

	conversations, err := s.conversations.ListByParticipant(ctx, email)
	if err != nil {
		return nil, err
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		emails, err := s.memberEmails(ctx, conv.ID())
		if err != nil {
			return nil, err
		}
		views = append(views, s.toView(conv, emails))
	}

	return views, nil
}

// Delete removes the conversation and cascades to its membership rows.
// Message rows are deliberately left in place; the emitted event lets a
// downstream janitor decide their fate.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	convID, err := valueobjects.NewConversationIDFromString(id)
	if err != nil {
		return apperrors.NewValidation(err.Error())
	}

	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return err
	}

	members, err := s.participants.ListByConversation(ctx, convID)
	if err != nil {
		return err
	}

	uow := s.uowFactory.New()
	if err := uow.Begin(ctx); err != nil {
		return apperrors.NewTransient("begin transaction", err)
	}
	if err := uow.RegisterConversationDelete(conv, members); err != nil {
		uow.Rollback()
		return apperrors.Wrap(err, "stage conversation delete")
	}
	uow.RegisterEvent(events.NewConversationDeleted(convID, time.Now().UTC()))
	if err := uow.Commit(ctx); err != nil {
		return transientUnlessTyped(err, "delete conversation")
	}

	s.publishAsync(uow.Events())

	s.logger.Info("conversation deleted",
		zap.String("conversationID", convID.String()),
		zap.Int("membersRemoved", len(members)),
	)

	return nil
}

// AddParticipant resolves (or creates) the user, then registers the
// membership. A second add of the same pair fails with AlreadyMember.
func (s *ConversationService) AddParticipant(ctx context.Context, id, email string) (*ConversationView, error) {
	convID, err := valueobjects.NewConversationIDFromString(id)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	if _, err := s.identity.ResolveOrCreate(ctx, email); err != nil {
		return nil, apperrors.Wrap(err, "resolve participant "+email)
	}

	participant, err := entities.NewParticipant(convID, email)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	if err := s.participants.Add(ctx, participant); err != nil {
		return nil, err
	}

	s.publishAsync([]events.DomainEvent{
		events.NewParticipantAdded(convID, email, participant.JoinedAt()),
	})

	s.logger.Info("participant added",
		zap.String("conversationID", convID.String()),
		zap.String("email", email),
	)

	emails, err := s.memberEmails(ctx, convID)
	if err != nil {
		return nil, err
	}
	return s.toView(conv, emails), nil
}

// RemoveParticipant removes the membership; removing a non-member fails
// with NotMember.
func (s *ConversationService) RemoveParticipant(ctx context.Context, id, email string) (*ConversationView, error) {
	convID, err := valueobjects.NewConversationIDFromString(id)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	if err := s.participants.Remove(ctx, convID, email); err != nil {
		return nil, err
	}

	s.publishAsync([]events.DomainEvent{
		events.NewParticipantRemoved(convID, email, time.Now().UTC()),
	})

	s.logger.Info("participant removed",
		zap.String("conversationID", convID.String()),
		zap.String("email", email),
	)

	emails, err := s.memberEmails(ctx, convID)
	if err != nil {
		return nil, err
	}
	return s.toView(conv, emails), nil
}

func (s *ConversationService) memberEmails(ctx context.Context, id valueobjects.ConversationID) ([]string, error) {
	members, err := s.participants.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(members))
	for _, m := range members {
		emails = append(emails, m.Email())
	}
	return emails, nil
}

func (s *ConversationService) toView(conv *entities.Conversation, emails []string) *ConversationView {
	return &ConversationView{
		ID:                conv.ID().String(),
		Title:             conv.Title(),
		Type:              string(conv.Type()),
		Metadata:          conv.Metadata(),
		CreatedAt:         conv.CreatedAt(),
		UpdatedAt:         conv.UpdatedAt(),
		ParticipantEmails: emails,
	}
}

// publishAsync hands events to the pipeline without blocking the caller.
// Failures are logged; they never affect the committed operation.
func (s *ConversationService) publishAsync(batch []events.DomainEvent) {
	if s.publisher == nil || len(batch) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.publisher.PublishBatch(ctx, batch); err != nil {
			s.logger.Warn("event publish failed", zap.Error(err))
		}
	}()
}

// dedupeEmails removes duplicates while preserving first-seen order
func dedupeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// transientUnlessTyped keeps typed application errors intact and treats
// anything else from the storage layer as retryable
func transientUnlessTyped(err error, op string) error {
	if _, ok := err.(*apperrors.AppError); ok {
		return err
	}
	return apperrors.NewTransient(op, err)
}
