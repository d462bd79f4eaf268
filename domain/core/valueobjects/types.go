package valueobjects

import "errors"

// ConversationType tags a conversation as a two-party or group chat
type ConversationType string

const (
	ConversationTypeDirect ConversationType = "DIRECT"
	ConversationTypeGroup  ConversationType = "GROUP"
)

// ParseConversationType validates a raw type tag
func ParseConversationType(s string) (ConversationType, error) {
	switch ConversationType(s) {
	case ConversationTypeDirect, ConversationTypeGroup:
		return ConversationType(s), nil
	}
	return "", errors.New("conversation type must be DIRECT or GROUP")
}

// MessageType tags the media kind of a message
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeVideo MessageType = "VIDEO"
	MessageTypeFile  MessageType = "FILE"
)

// ParseMessageType validates a raw message type tag. An empty tag defaults
// to TEXT.
func ParseMessageType(s string) (MessageType, error) {
	if s == "" {
		return MessageTypeText, nil
	}
	switch MessageType(s) {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeFile:
		return MessageType(s), nil
	}
	return "", errors.New("message type must be one of TEXT, IMAGE, VIDEO, FILE")
}
