package ports

import (
	"context"
	"time"

	"relay-backend/domain/core/entities"
)

// ChannelForConversation derives the broadcast channel name for a
// conversation. The derivation is deterministic so every transport
// (in-process hub, API Gateway push) addresses the same channel.
func ChannelForConversation(conversationID string) string {
	return "conversation/" + conversationID
}

// TypingChannelForConversation derives the typing-indicator channel name
func TypingChannelForConversation(conversationID string) string {
	return ChannelForConversation(conversationID) + "/typing"
}

// MessagePayload is the wire shape pushed to live subscribers
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderEmail    string    `json:"sender_email"`
	Type           string    `json:"type"`
	Content        string    `json:"content,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	IsDeleted      bool      `json:"is_deleted"`
}

// NewMessagePayload converts a persisted message into its broadcast shape
func NewMessagePayload(msg *entities.Message) MessagePayload {
	return MessagePayload{
		ID:             msg.Key().ID(),
		ConversationID: msg.ConversationID().String(),
		SenderEmail:    msg.SenderEmail(),
		Type:           string(msg.Type()),
		Content:        msg.Content(),
		CreatedAt:      msg.CreatedAt(),
		IsDeleted:      msg.IsDeleted(),
	}
}

// TypingPayload is the wire shape for typing indicators; pure fan-out with
// no persistence behind it
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserEmail      string `json:"user_email"`
	IsTyping       bool   `json:"is_typing"`
}

// Broadcaster is the injected fan-out capability. Subscriber bookkeeping
// lives entirely in the transport implementation; the core only names
// channels. Delivery is best-effort and must never block or fail the
// durable append that triggered it.
type Broadcaster interface {
	// PublishMessage pushes a committed message to every live subscriber
	// of its conversation channel
	PublishMessage(ctx context.Context, payload MessagePayload) error

	// PublishTyping pushes a typing indicator to the conversation's
	// typing channel
	PublishTyping(ctx context.Context, payload TypingPayload) error

	// ReportSendError routes a delivery failure to the original sender's
	// private error channel
	ReportSendError(ctx context.Context, senderEmail, message string)
}
