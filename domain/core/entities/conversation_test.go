package entities

import (
	"testing"
	"time"

	"relay-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		ctype   valueobjects.ConversationType
		wantErr bool
	}{
		{
			name:  "group with title",
			title: "Team standup",
			ctype: valueobjects.ConversationTypeGroup,
		},
		{
			name:  "direct without title",
			ctype: valueobjects.ConversationTypeDirect,
		},
		{
			name:    "missing type",
			title:   "orphan",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := NewConversation(tt.title, tt.ctype, "")

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, conv)
				return
			}

			require.NoError(t, err)
			assert.False(t, conv.ID().IsZero())
			assert.Equal(t, tt.title, conv.Title())
			assert.Equal(t, tt.ctype, conv.Type())
			assert.Equal(t, conv.CreatedAt(), conv.UpdatedAt())
		})
	}
}

func TestRecordActivityIsMonotonic(t *testing.T) {
	conv, err := NewConversation("", valueobjects.ConversationTypeGroup, "")
	require.NoError(t, err)

	later := conv.UpdatedAt().Add(time.Minute)
	conv.RecordActivity(later)
	assert.Equal(t, later, conv.UpdatedAt())

	// A stale clock reading must not move the timestamp backwards.
	conv.RecordActivity(later.Add(-time.Hour))
	assert.Equal(t, later, conv.UpdatedAt())
}

func TestNewMessageDefaults(t *testing.T) {
	conv, err := NewConversation("", valueobjects.ConversationTypeDirect, "")
	require.NoError(t, err)

	msg, err := NewMessage(conv.ID(), "a@example.com", "", "hi")
	require.NoError(t, err)

	assert.Equal(t, valueobjects.MessageTypeText, msg.Type())
	assert.False(t, msg.IsDeleted())
	assert.False(t, msg.Key().IsZero())
	assert.Equal(t, msg.Key().CreatedAt(), msg.CreatedAt())
}

func TestNewMessageValidation(t *testing.T) {
	conv, err := NewConversation("", valueobjects.ConversationTypeDirect, "")
	require.NoError(t, err)

	_, err = NewMessage(valueobjects.ConversationID{}, "a@example.com", valueobjects.MessageTypeText, "hi")
	assert.Error(t, err)

	_, err = NewMessage(conv.ID(), "", valueobjects.MessageTypeText, "hi")
	assert.Error(t, err)

	_, err = NewMessage(conv.ID(), "a@example.com", valueobjects.MessageTypeText, "")
	assert.Error(t, err)

	// Non-text messages may omit content.
	_, err = NewMessage(conv.ID(), "a@example.com", valueobjects.MessageTypeImage, "")
	assert.NoError(t, err)
}

func TestSoftDeleteIsOneWay(t *testing.T) {
	conv, err := NewConversation("", valueobjects.ConversationTypeDirect, "")
	require.NoError(t, err)

	msg, err := NewMessage(conv.ID(), "a@example.com", valueobjects.MessageTypeText, "hi")
	require.NoError(t, err)

	msg.SoftDelete()
	assert.True(t, msg.IsDeleted())
}

func TestNewUserValidation(t *testing.T) {
	u, err := NewUser("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email())

	_, err = NewUser("")
	assert.Error(t, err)

	_, err = NewUser("not-an-email")
	assert.Error(t, err)
}
