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

func TestConversationService_Create(t *testing.T) {
	tests := []struct {
		name        string
		input       CreateConversationInput
		wantErr     bool
		wantMembers []string
	}{
		{
			name: "group with participants",
			input: CreateConversationInput{
				Title:             "team chat",
				Type:              "GROUP",
				ParticipantEmails: []string{"alice@example.com", "bob@example.com"},
			},
			wantMembers: []string{"alice@example.com", "bob@example.com"},
		},
		{
			name: "duplicate emails collapse to one membership",
			input: CreateConversationInput{
				Type:              "DIRECT",
				ParticipantEmails: []string{"alice@example.com", "alice@example.com", "bob@example.com"},
			},
			wantMembers: []string{"alice@example.com", "bob@example.com"},
		},
		{
			name: "unknown type rejected",
			input: CreateConversationInput{
				Type:              "BROADCAST",
				ParticipantEmails: []string{"alice@example.com"},
			},
			wantErr: true,
		},
		{
			name: "no participants rejected",
			input: CreateConversationInput{
				Type: "GROUP",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			view, err := env.convService.Create(context.Background(), tt.input)
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantMembers, view.ParticipantEmails)

			// creation also registers previously unseen users
			for _, email := range tt.wantMembers {
				_, err := env.users.FindByEmail(context.Background(), email)
				assert.NoError(t, err)
			}

			fetched, err := env.convService.GetByID(context.Background(), view.ID)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantMembers, fetched.ParticipantEmails)
		})
	}
}

func TestConversationService_GetByID_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.convService.GetByID(context.Background(), "not-a-uuid")
	assert.True(t, apperrors.IsValidation(err))

	_, err = env.convService.GetByID(context.Background(), uuid.New().String())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConversationService_ListForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.convService.Create(ctx, CreateConversationInput{
		Type:              "GROUP",
		ParticipantEmails: []string{"alice@example.com", "bob@example.com"},
	})
	require.NoError(t, err)

	second, err := env.convService.Create(ctx, CreateConversationInput{
		Type:              "DIRECT",
		ParticipantEmails: []string{"alice@example.com", "carol@example.com"},
	})
	require.NoError(t, err)

	// sending into the first conversation makes it the most recently active
	time.Sleep(time.Millisecond)
	_, err = env.msgService.Send(ctx, SendMessageInput{
		ConversationID: first.ID,
		SenderEmail:    "alice@example.com",
		Content:        "hello",
	})
	require.NoError(t, err)

	list, err := env.convService.ListForUser(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	carol, err := env.convService.ListForUser(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Len(t, carol, 1)
	assert.Equal(t, second.ID, carol[0].ID)

	empty, err := env.convService.ListForUser(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConversationService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.convService.Create(ctx, CreateConversationInput{
		Type:              "GROUP",
		ParticipantEmails: []string{"alice@example.com", "bob@example.com"},
	})
	require.NoError(t, err)

	_, err = env.msgService.Send(ctx, SendMessageInput{
		ConversationID: view.ID,
		SenderEmail:    "alice@example.com",
		Content:        "kept after delete",
	})
	require.NoError(t, err)

	require.NoError(t, env.convService.Delete(ctx, view.ID))

	_, err = env.convService.GetByID(ctx, view.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = env.convService.Delete(ctx, view.ID)
	assert.True(t, apperrors.IsNotFound(err))

	list, err := env.convService.ListForUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversationService_ParticipantLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.convService.Create(ctx, CreateConversationInput{
		Type:              "GROUP",
		ParticipantEmails: []string{"alice@example.com"},
	})
	require.NoError(t, err)

	added, err := env.convService.AddParticipant(ctx, view.ID, "bob@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, added.ParticipantEmails)

	_, err = env.convService.AddParticipant(ctx, view.ID, "bob@example.com")
	assert.True(t, apperrors.IsAlreadyMember(err))

	removed, err := env.convService.RemoveParticipant(ctx, view.ID, "bob@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice@example.com"}, removed.ParticipantEmails)

	_, err = env.convService.RemoveParticipant(ctx, view.ID, "bob@example.com")
	assert.True(t, apperrors.IsNotMember(err))

	_, err = env.convService.AddParticipant(ctx, uuid.New().String(), "bob@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}
