package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"relay-backend/application/services"
	apperrors "relay-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	// Send buffer size
	sendBufferSize = 256
)

// inboundFrame is what clients send us
type inboundFrame struct {
	Action         string `json:"action"`
	Channel        string `json:"channel,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageType    string `json:"message_type,omitempty"`
	Content        string `json:"content,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
}

// Inbound actions
const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionSend        = "message.send"
	actionTyping      = "typing"
	actionPong        = "pong"
)

// Client represents a WebSocket client connection identified by email
type Client struct {
	id       string
	email    string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	messages *services.MessageService
	logger   *zap.Logger

	// mu guards closed. The hub can force-unregister a slow client while
	// its read pump is still dispatching frames, so every write to send
	// must check closed under the lock that also covers close(send).
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client. A queueSize of zero falls back
// to the default send buffer size.
func NewClient(email string, hub *Hub, conn *websocket.Conn, messages *services.MessageService, queueSize int, logger *zap.Logger) *Client {
	if queueSize <= 0 {
		queueSize = sendBufferSize
	}
	id := uuid.New().String()
	return &Client{
		id:       id,
		email:    email,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, queueSize),
		messages: messages,
		logger: logger.With(
			zap.String("email", email),
			zap.String("connectionID", id),
		),
	}
}

// trySend enqueues a frame unless the connection is already closed or the
// queue is full. Safe to call from any goroutine.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue exactly once. Only the hub calls this.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Start begins the client's read and write pumps
func (c *Client) Start() {
	c.hub.register <- c

	go c.writePump()
	go c.readPump()

	c.sendConnectionEstablished()
}

// readPump pumps frames from the WebSocket connection into the hub and the
// message service
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.logger.Info("Read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleTextMessage(message)
		case websocket.BinaryMessage:
			c.logger.Warn("Binary messages not supported")
		}
	}
}

// writePump pumps frames from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Info("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

			// Drain queued frames into the same write window
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Error("Failed to write batched message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// handleTextMessage parses and dispatches one inbound frame
func (c *Client) handleTextMessage(message []byte) {
	message = bytes.TrimSpace(message)

	var frame inboundFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.logger.Debug("Ignoring unparseable frame", zap.ByteString("frame", message))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch frame.Action {
	case actionSubscribe:
		if frame.Channel == "" {
			c.sendError("subscribe requires a channel")
			return
		}
		c.hub.subscribe <- &subscription{client: c, channel: frame.Channel}

	case actionUnsubscribe:
		if frame.Channel == "" {
			c.sendError("unsubscribe requires a channel")
			return
		}
		c.hub.unsubscribe <- &subscription{client: c, channel: frame.Channel}

	case actionSend:
		c.handleSend(ctx, frame)

	case actionTyping:
		if err := c.messages.Typing(ctx, frame.ConversationID, c.email, frame.IsTyping); err != nil {
			c.sendError(err.Error())
		}

	case actionPong:
		c.logger.Debug("Received pong")

	default:
		c.logger.Debug("Unknown action", zap.String("action", frame.Action))
	}
}

// handleSend appends a message through the service. Validation and
// membership failures go back on this connection only; the sender identity
// is always the connection's email, never a frame field.
func (c *Client) handleSend(ctx context.Context, frame inboundFrame) {
	_, err := c.messages.Send(ctx, services.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderEmail:    c.email,
		Type:           frame.MessageType,
		Content:        frame.Content,
	})
	if err != nil {
		c.logger.Warn("Send rejected",
			zap.String("conversationID", frame.ConversationID),
			zap.Error(err),
		)
		c.sendError(sendErrorText(err))
	}
}

// sendErrorText maps a send failure to client-safe text; infrastructure
// faults are not echoed verbatim
func sendErrorText(err error) string {
	if apperrors.IsValidation(err) || apperrors.IsNotFound(err) || apperrors.IsConflict(err) {
		return err.Error()
	}
	return "message could not be delivered"
}

// sendError pushes an error frame to this connection only
func (c *Client) sendError(message string) {
	frame, err := buildFrame(FrameError, "", map[string]string{"error": message})
	if err != nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if !c.trySend(data) {
		c.logger.Warn("Dropping error frame, connection closed or queue full")
	}
}

// sendConnectionEstablished sends an initial connection message
func (c *Client) sendConnectionEstablished() {
	message := fmt.Sprintf(`{"type":"connection.established","timestamp":%d,"data":{"connectionId":%q,"email":%q}}`,
		time.Now().Unix(), c.id, c.email)

	if c.trySend([]byte(message)) {
		c.logger.Debug("Sent connection established message")
	} else {
		c.logger.Error("Failed to send connection established message")
	}
}

// GetID returns the client's connection ID
func (c *Client) GetID() string {
	return c.id
}

// GetEmail returns the client's user email
func (c *Client) GetEmail() string {
	return c.email
}
