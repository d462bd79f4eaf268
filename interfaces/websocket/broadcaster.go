package websocket

import (
	"context"

	"relay-backend/application/ports"

	"go.uber.org/zap"
)

// HubBroadcaster implements ports.Broadcaster on the in-process hub.
// Committed messages go to the conversation channel, typing indicators to
// its typing channel, and delivery failures to the sender's connections.
type HubBroadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

var _ ports.Broadcaster = (*HubBroadcaster)(nil)

// NewHubBroadcaster creates a broadcaster backed by the hub
func NewHubBroadcaster(hub *Hub, logger *zap.Logger) *HubBroadcaster {
	return &HubBroadcaster{hub: hub, logger: logger}
}

// PublishMessage pushes a committed message to the conversation channel
func (b *HubBroadcaster) PublishMessage(ctx context.Context, payload ports.MessagePayload) error {
	channel := ports.ChannelForConversation(payload.ConversationID)
	return b.hub.PublishToChannel(channel, FrameMessageCreated, payload)
}

// PublishTyping pushes a typing indicator to the typing channel
func (b *HubBroadcaster) PublishTyping(ctx context.Context, payload ports.TypingPayload) error {
	channel := ports.TypingChannelForConversation(payload.ConversationID)
	return b.hub.PublishToChannel(channel, FrameTyping, payload)
}

// ReportSendError routes a delivery failure to the sender's connections
func (b *HubBroadcaster) ReportSendError(ctx context.Context, senderEmail, message string) {
	if err := b.hub.SendToUser(senderEmail, FrameError, map[string]string{"error": message}); err != nil {
		b.logger.Warn("Failed to report send error",
			zap.String("email", senderEmail),
			zap.Error(err),
		)
	}
}
