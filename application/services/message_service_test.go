package services

import (
	"context"
	"testing"
	"time"

	apperrors "relay-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConversation(t *testing.T, env *testEnv, emails ...string) string {
	t.Helper()
	view, err := env.convService.Create(context.Background(), CreateConversationInput{
		Type:              "GROUP",
		ParticipantEmails: emails,
	})
	require.NoError(t, err)
	return view.ID
}

func TestMessageService_SendGateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com", "bob@example.com")

	tests := []struct {
		name    string
		input   SendMessageInput
		check   func(t *testing.T, err error)
	}{
		{
			name: "unknown conversation",
			input: SendMessageInput{
				ConversationID: uuid.New().String(),
				SenderEmail:    "alice@example.com",
				Content:        "hi",
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsNotFound(err))
			},
		},
		{
			name: "unknown sender",
			input: SendMessageInput{
				ConversationID: convID,
				SenderEmail:    "stranger@example.com",
				Content:        "hi",
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsNotFound(err))
			},
		},
		{
			name: "known user but not a member",
			input: SendMessageInput{
				ConversationID: convID,
				SenderEmail:    "carol@example.com",
				Content:        "hi",
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsNotParticipant(err))
			},
		},
		{
			name: "empty text content",
			input: SendMessageInput{
				ConversationID: convID,
				SenderEmail:    "alice@example.com",
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsValidation(err))
			},
		},
	}

	// carol exists as a user but is in no conversation
	_, err := env.identity.ResolveOrCreate(ctx, "carol@example.com")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.msgService.Send(ctx, tt.input)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestMessageService_SendAppendsAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com", "bob@example.com")

	before, err := env.convService.GetByID(ctx, convID)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	payload, err := env.msgService.Send(ctx, SendMessageInput{
		ConversationID: convID,
		SenderEmail:    "alice@example.com",
		Content:        "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, convID, payload.ConversationID)
	assert.Equal(t, "TEXT", payload.Type)
	assert.False(t, payload.IsDeleted)

	after, err := env.convService.GetByID(ctx, convID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.UpdatedAt.Equal(payload.CreatedAt))

	env.broadcaster.mu.Lock()
	defer env.broadcaster.mu.Unlock()
	require.Len(t, env.broadcaster.messages, 1)
	assert.Equal(t, payload.ID, env.broadcaster.messages[0].ID)
}

func TestMessageService_BroadcastFailureDoesNotFailSend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com")

	env.broadcaster.failSends = true

	payload, err := env.msgService.Send(ctx, SendMessageInput{
		ConversationID: convID,
		SenderEmail:    "alice@example.com",
		Content:        "durable despite delivery failure",
	})
	require.NoError(t, err)

	// the append survived
	history, err := env.msgService.History(ctx, convID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, payload.ID, history[0].ID)

	// the failure was routed to the sender's private error channel
	env.broadcaster.mu.Lock()
	defer env.broadcaster.mu.Unlock()
	assert.NotEmpty(t, env.broadcaster.errorReports["alice@example.com"])
}

func TestMessageService_HistoryOrderAndActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com")

	contents := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, content := range contents {
		_, err := env.msgService.Send(ctx, SendMessageInput{
			ConversationID: convID,
			SenderEmail:    "alice@example.com",
			Content:        content,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	history, err := env.msgService.History(ctx, convID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i, want := range []string{"m5", "m4", "m3", "m2", "m1"} {
		assert.Equal(t, want, history[i].Content)
	}

	// the conversation's activity timestamp matches the newest message
	view, err := env.convService.GetByID(ctx, convID)
	require.NoError(t, err)
	assert.True(t, view.UpdatedAt.Equal(history[0].CreatedAt))
}

func TestMessageService_Paging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com")

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := env.msgService.Send(ctx, SendMessageInput{
			ConversationID: convID,
			SenderEmail:    "alice@example.com",
			Content:        content,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	page0, err := env.msgService.Page(ctx, convID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page0, 2)
	assert.Equal(t, "m5", page0[0].Content)
	assert.Equal(t, "m4", page0[1].Content)

	page1, err := env.msgService.Page(ctx, convID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "m3", page1[0].Content)
	assert.Equal(t, "m2", page1[1].Content)

	page2, err := env.msgService.Page(ctx, convID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "m1", page2[0].Content)

	pastEnd, err := env.msgService.Page(ctx, convID, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, pastEnd)

	_, err = env.msgService.Page(ctx, convID, -1, 2)
	assert.True(t, apperrors.IsValidation(err))

	// zero size falls back to the default page size
	all, err := env.msgService.Page(ctx, convID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

type fixedPageLimits struct {
	defaultSize int
	maxSize     int
}

func (l fixedPageLimits) PageSizeLimits() (int, int) {
	return l.defaultSize, l.maxSize
}

func TestMessageService_PagingHonorsLimitProvider(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com")

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := env.msgService.Send(ctx, SendMessageInput{
			ConversationID: convID,
			SenderEmail:    "alice@example.com",
			Content:        content,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	env.msgService.limits = fixedPageLimits{defaultSize: 2, maxSize: 3}

	// zero size uses the provider's default, not the built-in 50
	defaulted, err := env.msgService.Page(ctx, convID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, 2)

	// oversized requests clamp to the provider's maximum
	clamped, err := env.msgService.Page(ctx, convID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, clamped, 3)

	// a provider returning nonsense falls back to the built-in limits
	env.msgService.limits = fixedPageLimits{}
	all, err := env.msgService.Page(ctx, convID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMessageService_SoftDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com")

	payload, err := env.msgService.Send(ctx, SendMessageInput{
		ConversationID: convID,
		SenderEmail:    "alice@example.com",
		Content:        "soon hidden",
	})
	require.NoError(t, err)

	require.NoError(t, env.msgService.SoftDelete(ctx, convID, payload.ID, payload.CreatedAt))

	history, err := env.msgService.History(ctx, convID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// deleting twice is a no-op, not an error
	require.NoError(t, env.msgService.SoftDelete(ctx, convID, payload.ID, payload.CreatedAt))

	err = env.msgService.SoftDelete(ctx, convID, uuid.New().String(), time.Now())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMessageService_Typing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	convID := setupConversation(t, env, "alice@example.com")

	require.NoError(t, env.msgService.Typing(ctx, convID, "alice@example.com", true))
	require.NoError(t, env.msgService.Typing(ctx, convID, "alice@example.com", false))

	env.broadcaster.mu.Lock()
	defer env.broadcaster.mu.Unlock()
	require.Len(t, env.broadcaster.typing, 2)
	assert.True(t, env.broadcaster.typing[0].IsTyping)
	assert.False(t, env.broadcaster.typing[1].IsTyping)
}
