package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"relay-backend/application/ports"
	"relay-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "conversation/abc", ports.ChannelForConversation("abc"))
	assert.Equal(t, "conversation/abc/typing", ports.TypingChannelForConversation("abc"))
}

func TestBuildFrame(t *testing.T) {
	frame, err := buildFrame(FrameMessageCreated, "conversation/abc", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, FrameMessageCreated, frame.Type)
	assert.Equal(t, "conversation/abc", frame.Channel)
	assert.NotZero(t, frame.Timestamp)

	var data map[string]string
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "v", data["k"])
}

func TestHubBroadcaster_NoSubscribersIsNotAnError(t *testing.T) {
	hub := NewHub(observability.NewMetrics("wstest"), zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	b := NewHubBroadcaster(hub, zap.NewNop())

	err := b.PublishMessage(context.Background(), ports.MessagePayload{
		ID:             "m1",
		ConversationID: "abc",
		SenderEmail:    "alice@example.com",
		Type:           "TEXT",
		Content:        "hello",
	})
	assert.NoError(t, err)

	err = b.PublishTyping(context.Background(), ports.TypingPayload{
		ConversationID: "abc",
		UserEmail:      "alice@example.com",
		IsTyping:       true,
	})
	assert.NoError(t, err)

	// direct frames to a user with no connections are dropped silently
	b.ReportSendError(context.Background(), "alice@example.com", "boom")
}
