package services

import (
	"context"
	"time"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	"relay-backend/domain/events"
	apperrors "relay-backend/pkg/errors"
	"relay-backend/pkg/observability"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// PageLimitProvider supplies the paging defaults. Implementations may back
// this with a reloadable config file so operators can tune limits without a
// restart; a nil provider means the compile-time constants apply.
type PageLimitProvider interface {
	PageSizeLimits() (defaultSize, maxSize int)
}

// SendMessageInput carries a send request from any transport
type SendMessageInput struct {
	ConversationID string
	SenderEmail    string
	Type           string
	Content        string
}

// MessageService owns the append-only message sequence of each conversation.
// A send is durable first, fan-out second: once the append commits, nothing
// on the delivery path can undo it.
type MessageService struct {
	conversations ports.ConversationRepository
	participants  ports.ParticipantRepository
	users         ports.UserRepository
	messages      ports.MessageRepository
	uowFactory    ports.UnitOfWorkFactory
	publisher     ports.EventPublisher
	broadcaster   ports.Broadcaster
	limits        PageLimitProvider
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewMessageService creates the message service
func NewMessageService(
	conversations ports.ConversationRepository,
	participants ports.ParticipantRepository,
	users ports.UserRepository,
	messages ports.MessageRepository,
	uowFactory ports.UnitOfWorkFactory,
	publisher ports.EventPublisher,
	broadcaster ports.Broadcaster,
	limits PageLimitProvider,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		participants:  participants,
		users:         users,
		messages:      messages,
		uowFactory:    uowFactory,
		publisher:     publisher,
		broadcaster:   broadcaster,
		limits:        limits,
		metrics:       metrics,
		logger:        logger,
	}
}

// pageSizeLimits resolves the effective paging defaults, falling back to the
// compile-time constants when no provider is wired or it returns nonsense
func (s *MessageService) pageSizeLimits() (int, int) {
	defaultSize, maxSize := defaultPageSize, maxPageSize
	if s.limits != nil {
		if d, m := s.limits.PageSizeLimits(); d > 0 && m > 0 {
			defaultSize, maxSize = d, m
		}
	}
	return defaultSize, maxSize
}

// Send validates the gate order (conversation exists, sender exists, sender
// is a member), appends the message atomically with the conversation's
// activity bump, then fans out to live subscribers.
func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*ports.MessagePayload, error) {
	convID, err := valueobjects.NewConversationIDFromString(input.ConversationID)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, input.SenderEmail); err != nil {
		return nil, err
	}

	member, err := s.participants.IsMember(ctx, convID, input.SenderEmail)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.NewNotParticipant("user " + input.SenderEmail + " is not a participant of conversation " + convID.String())
	}

	mtype, err := valueobjects.ParseMessageType(input.Type)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	msg, err := entities.NewMessage(convID, input.SenderEmail, mtype, input.Content)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	conv.RecordActivity(msg.CreatedAt())

	uow := s.uowFactory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, apperrors.NewTransient("begin transaction", err)
	}
	if err := uow.RegisterMessageAppend(msg, conv); err != nil {
		uow.Rollback()
		return nil, apperrors.Wrap(err, "stage message append")
	}
	uow.RegisterEvent(events.NewMessageCreated(msg.Key(), convID, msg.SenderEmail(), msg.Type()))
	if err := uow.Commit(ctx); err != nil {
		return nil, transientUnlessTyped(err, "append message")
	}

	s.metrics.MessagesAppended.Inc()
	s.publishEvents(uow.Events())

	payload := ports.NewMessagePayload(msg)
	s.deliver(ctx, payload)

	s.logger.Info("message appended",
		zap.String("conversationID", convID.String()),
		zap.String("messageID", msg.Key().ID()),
		zap.String("sender", msg.SenderEmail()),
	)

	return &payload, nil
}

// Page returns one page of history, newest first, soft-deleted rows hidden
func (s *MessageService) Page(ctx context.Context, conversationID string, page, size int) ([]*ports.MessagePayload, error) {
	convID, err := valueobjects.NewConversationIDFromString(conversationID)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if page < 0 {
		return nil, apperrors.NewValidation("page must not be negative")
	}
	defaultSize, maxSize := s.pageSizeLimits()
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	if _, err := s.conversations.GetByID(ctx, convID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.Page(ctx, convID, page, size)
	if err != nil {
		return nil, err
	}
	return toPayloads(msgs), nil
}

// History returns the full ordered history, newest first
func (s *MessageService) History(ctx context.Context, conversationID string) ([]*ports.MessagePayload, error) {
	convID, err := valueobjects.NewConversationIDFromString(conversationID)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	if _, err := s.conversations.GetByID(ctx, convID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.History(ctx, convID)
	if err != nil {
		return nil, err
	}
	return toPayloads(msgs), nil
}

// SoftDelete hides a message from history. The row survives; only the flag
// flips, and flipping it twice is a no-op.
func (s *MessageService) SoftDelete(ctx context.Context, conversationID, messageID string, createdAt time.Time) error {
	convID, err := valueobjects.NewConversationIDFromString(conversationID)
	if err != nil {
		return apperrors.NewValidation(err.Error())
	}

	key, err := valueobjects.NewMessageKeyFrom(messageID, createdAt)
	if err != nil {
		return apperrors.NewValidation(err.Error())
	}

	if err := s.messages.MarkDeleted(ctx, convID, key); err != nil {
		return err
	}

	s.publishEvents([]events.DomainEvent{
		events.NewMessageSoftDeleted(key, convID, time.Now().UTC()),
	})

	s.logger.Info("message soft-deleted",
		zap.String("conversationID", convID.String()),
		zap.String("messageID", key.ID()),
	)

	return nil
}

// Typing relays a typing indicator. Pure fan-out, nothing persisted, so a
// delivery failure is only worth a log line.
func (s *MessageService) Typing(ctx context.Context, conversationID, userEmail string, isTyping bool) error {
	convID, err := valueobjects.NewConversationIDFromString(conversationID)
	if err != nil {
		return apperrors.NewValidation(err.Error())
	}

	payload := ports.TypingPayload{
		ConversationID: convID.String(),
		UserEmail:      userEmail,
		IsTyping:       isTyping,
	}
	if err := s.broadcaster.PublishTyping(ctx, payload); err != nil {
		s.logger.Warn("typing broadcast failed",
			zap.String("conversationID", convID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// deliver fans the committed message out to live subscribers. A delivery
// failure is reported back on the sender's private error channel and never
// surfaces to the caller; the append has already committed.
func (s *MessageService) deliver(ctx context.Context, payload ports.MessagePayload) {
	if s.broadcaster == nil {
		return
	}

	if err := s.broadcaster.PublishMessage(ctx, payload); err != nil {
		s.metrics.BroadcastFailed.Inc()
		s.logger.Warn("message broadcast failed",
			zap.String("conversationID", payload.ConversationID),
			zap.String("messageID", payload.ID),
			zap.Error(err),
		)
		s.broadcaster.ReportSendError(ctx, payload.SenderEmail, "message delivery failed: "+err.Error())
	}
}

func (s *MessageService) publishEvents(batch []events.DomainEvent) {
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

func toPayloads(msgs []*entities.Message) []*ports.MessagePayload {
	out := make([]*ports.MessagePayload, 0, len(msgs))
	for _, msg := range msgs {
		payload := ports.NewMessagePayload(msg)
		out = append(out, &payload)
	}
	return out
}
