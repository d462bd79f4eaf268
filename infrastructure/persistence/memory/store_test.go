package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	apperrors "relay-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConversation(t *testing.T) *entities.Conversation {
	t.Helper()
	conv, err := entities.NewConversation("test", valueobjects.ConversationTypeGroup, "")
	require.NoError(t, err)
	return conv
}

func seedConversation(t *testing.T, store *Store, conv *entities.Conversation, emails ...string) {
	t.Helper()
	members := make([]*entities.Participant, 0, len(emails))
	for _, email := range emails {
		p, err := entities.NewParticipant(conv.ID(), email)
		require.NoError(t, err)
		members = append(members, p)
	}
	uow := NewUnitOfWorkFactory(store).New()
	require.NoError(t, uow.Begin(context.Background()))
	require.NoError(t, uow.RegisterConversationCreate(conv, members))
	require.NoError(t, uow.Commit(context.Background()))
}

func appendMessage(t *testing.T, store *Store, conv *entities.Conversation, sender, content string) *entities.Message {
	t.Helper()
	msg, err := entities.NewMessage(conv.ID(), sender, valueobjects.MessageTypeText, content)
	require.NoError(t, err)
	conv.RecordActivity(msg.CreatedAt())
	uow := NewUnitOfWorkFactory(store).New()
	require.NoError(t, uow.Begin(context.Background()))
	require.NoError(t, uow.RegisterMessageAppend(msg, conv))
	require.NoError(t, uow.Commit(context.Background()))
	return msg
}

func TestUserRepository_FindOrCreate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewUserRepository(store)

	_, err := repo.FindByEmail(ctx, "alice@example.com")
	assert.True(t, apperrors.IsNotFound(err))

	created, err := repo.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)

	again, err := repo.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.Email(), again.Email())
	assert.True(t, created.CreatedAt().Equal(again.CreatedAt()))
}

func TestUserRepository_ConcurrentFirstReference(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewUserRepository(store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.FindOrCreate(ctx, "racer@example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Len(t, store.users, 1)
}

func TestParticipantRepository_AddIsUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewParticipantRepository(store)

	conv := mustConversation(t)
	seedConversation(t, store, conv, "alice@example.com")

	p, err := entities.NewParticipant(conv.ID(), "bob@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, p))

	err = repo.Add(ctx, p)
	assert.True(t, apperrors.IsAlreadyMember(err))

	member, err := repo.IsMember(ctx, conv.ID(), "bob@example.com")
	require.NoError(t, err)
	assert.True(t, member)
}

func TestParticipantRepository_ConcurrentAddSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewParticipantRepository(store)

	conv := mustConversation(t)
	seedConversation(t, store, conv, "alice@example.com")

	const racers = 16
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := entities.NewParticipant(conv.ID(), "racer@example.com")
			if err != nil {
				results <- err
				return
			}
			results <- repo.Add(ctx, p)
		}()
	}
	wg.Wait()
	close(results)

	// exactly one racing Add wins; every other one sees the conflict
	var won, conflicted int
	for err := range results {
		switch {
		case err == nil:
			won++
		case apperrors.IsAlreadyMember(err):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, racers-1, conflicted)

	member, err := repo.IsMember(ctx, conv.ID(), "racer@example.com")
	require.NoError(t, err)
	assert.True(t, member)
}

func TestParticipantRepository_RemoveMissing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewParticipantRepository(store)

	conv := mustConversation(t)
	seedConversation(t, store, conv, "alice@example.com")

	require.NoError(t, repo.Remove(ctx, conv.ID(), "alice@example.com"))
	err := repo.Remove(ctx, conv.ID(), "alice@example.com")
	assert.True(t, apperrors.IsNotMember(err))
}

func TestMessageRepository_PageOrderingAndBounds(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewMessageRepository(store)

	conv := mustConversation(t)
	seedConversation(t, store, conv, "alice@example.com")

	sent := make([]*entities.Message, 0, 5)
	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		sent = append(sent, appendMessage(t, store, conv, "alice@example.com", content))
		time.Sleep(time.Millisecond)
	}

	page0, err := repo.Page(ctx, conv.ID(), 0, 2)
	require.NoError(t, err)
	require.Len(t, page0, 2)
	assert.Equal(t, "m5", page0[0].Content())
	assert.Equal(t, "m4", page0[1].Content())

	page1, err := repo.Page(ctx, conv.ID(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "m3", page1[0].Content())
	assert.Equal(t, "m2", page1[1].Content())

	page2, err := repo.Page(ctx, conv.ID(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "m1", page2[0].Content())

	pastEnd, err := repo.Page(ctx, conv.ID(), 3, 2)
	require.NoError(t, err)
	assert.Empty(t, pastEnd)

	// soft delete hides the row from pages but keeps it in the store
	require.NoError(t, repo.MarkDeleted(ctx, conv.ID(), sent[4].Key()))
	page0, err = repo.Page(ctx, conv.ID(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "m4", page0[0].Content())

	stored, err := repo.Get(ctx, conv.ID(), sent[4].Key())
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
}

func TestConversationRepository_ListByParticipantOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewConversationRepository(store)

	older := mustConversation(t)
	seedConversation(t, store, older, "alice@example.com")
	newer := mustConversation(t)
	seedConversation(t, store, newer, "alice@example.com", "bob@example.com")

	// activity on the older conversation should move it to the front
	time.Sleep(time.Millisecond)
	appendMessage(t, store, older, "alice@example.com", "bump")

	list, err := repo.ListByParticipant(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, older.ID().Equals(list[0].ID()))
	assert.True(t, newer.ID().Equals(list[1].ID()))

	only, err := repo.ListByParticipant(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.True(t, newer.ID().Equals(only[0].ID()))

	none, err := repo.ListByParticipant(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnitOfWork_DeleteLeavesMessages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	conv := mustConversation(t)
	seedConversation(t, store, conv, "alice@example.com")
	appendMessage(t, store, conv, "alice@example.com", "orphan")

	members, err := NewParticipantRepository(store).ListByConversation(ctx, conv.ID())
	require.NoError(t, err)

	uow := NewUnitOfWorkFactory(store).New()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.RegisterConversationDelete(conv, members))
	require.NoError(t, uow.Commit(ctx))

	_, err = NewConversationRepository(store).GetByID(ctx, conv.ID())
	assert.True(t, apperrors.IsNotFound(err))

	remaining, err := NewParticipantRepository(store).ListByConversation(ctx, conv.ID())
	require.NoError(t, err)
	assert.Empty(t, remaining)

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Len(t, store.messages[conv.ID().String()], 1)
}

func TestUnitOfWork_CommitRequiresBegin(t *testing.T) {
	store := NewStore()
	uow := NewUnitOfWorkFactory(store).New()
	assert.Error(t, uow.Commit(context.Background()))

	conv := mustConversation(t)
	assert.Error(t, uow.RegisterConversationCreate(conv, nil))
}
