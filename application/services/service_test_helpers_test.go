package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"relay-backend/application/ports"
	domainevents "relay-backend/domain/events"
	"relay-backend/infrastructure/persistence/memory"
	"relay-backend/pkg/observability"

	"go.uber.org/zap"
)

// fakeBroadcaster records everything published and can be told to fail
// message delivery
type fakeBroadcaster struct {
	mu        sync.Mutex
	failSends bool
	messages  []ports.MessagePayload
	typing    []ports.TypingPayload
	// errorReports maps sender email to the messages routed to them
	errorReports map[string][]string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{errorReports: make(map[string][]string)}
}

func (b *fakeBroadcaster) PublishMessage(ctx context.Context, payload ports.MessagePayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSends {
		return errors.New("subscriber gone")
	}
	b.messages = append(b.messages, payload)
	return nil
}

func (b *fakeBroadcaster) PublishTyping(ctx context.Context, payload ports.TypingPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typing = append(b.typing, payload)
	return nil
}

func (b *fakeBroadcaster) ReportSendError(ctx context.Context, senderEmail, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorReports[senderEmail] = append(b.errorReports[senderEmail], message)
}

// capturingPublisher collects published events synchronously
type capturingPublisher struct {
	mu     sync.Mutex
	events []domainevents.DomainEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event domainevents.DomainEvent) error {
	return p.PublishBatch(ctx, []domainevents.DomainEvent{event})
}

func (p *capturingPublisher) PublishBatch(ctx context.Context, batch []domainevents.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	return nil
}

type testEnv struct {
	store         *memory.Store
	users         ports.UserRepository
	conversations ports.ConversationRepository
	participants  ports.ParticipantRepository
	messages      ports.MessageRepository
	broadcaster   *fakeBroadcaster
	publisher     *capturingPublisher
	identity      *IdentityService
	convService   *ConversationService
	msgService    *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	conversations := memory.NewConversationRepository(store)
	participants := memory.NewParticipantRepository(store)
	messages := memory.NewMessageRepository(store)
	uowFactory := memory.NewUnitOfWorkFactory(store)

	broadcaster := newFakeBroadcaster()
	publisher := &capturingPublisher{}
	logger := zap.NewNop()
	metrics := observability.NewMetrics("test")

	identity := NewIdentityService(users, logger)
	convService := NewConversationService(conversations, participants, identity, uowFactory, publisher, logger)
	msgService := NewMessageService(conversations, participants, users, messages, uowFactory, publisher, broadcaster, nil, metrics, logger)

	return &testEnv{
		store:         store,
		users:         users,
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		broadcaster:   broadcaster,
		publisher:     publisher,
		identity:      identity,
		convService:   convService,
		msgService:    msgService,
	}
}
