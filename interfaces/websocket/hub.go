package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"relay-backend/pkg/observability"

	"go.uber.org/zap"
)

// Frame is the wire envelope for everything pushed to clients
type Frame struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Outbound frame types
const (
	FrameConnectionEstablished = "connection.established"
	FrameMessageCreated        = "message.created"
	FrameTyping                = "typing"
	FrameError                 = "error"
	FramePing                  = "ping"
)

type channelFrame struct {
	channel string
	frame   *Frame
}

type userFrame struct {
	email string
	frame *Frame
}

// Hub maintains active WebSocket connections, their channel subscriptions,
// and fans frames out. Subscriber bookkeeping lives entirely here; the
// application core only names channels.
type Hub struct {
	// connections indexes clients by user email for direct delivery
	connections map[string]map[*Client]bool
	// subscriptions indexes clients by channel name
	subscriptions map[string]map[*Client]bool
	mu            sync.RWMutex

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscription
	unsubscribe chan *subscription
	broadcast   chan *channelFrame
	direct      chan *userFrame

	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	metrics *observability.Metrics
}

type subscription struct {
	client  *Client
	channel string
}

// NewHub creates a new WebSocket hub
func NewHub(metrics *observability.Metrics, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections:   make(map[string]map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client, 100),
		unregister:    make(chan *Client, 100),
		subscribe:     make(chan *subscription, 100),
		unsubscribe:   make(chan *subscription, 100),
		broadcast:     make(chan *channelFrame, 1000),
		direct:        make(chan *userFrame, 1000),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case sub := <-h.subscribe:
			h.subscribeClient(sub.client, sub.channel)

		case sub := <-h.unsubscribe:
			h.unsubscribeClient(sub.client, sub.channel)

		case cf := <-h.broadcast:
			h.broadcastToChannel(cf.channel, cf.frame)

		case uf := <-h.direct:
			h.sendToUser(uf.email, uf.frame)

		case <-ticker.C:
			h.performHealthCheck()
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.logger.Info("Stopping WebSocket hub")
	h.cancel()
}

// PublishToChannel queues a frame for every subscriber of the channel
func (h *Hub) PublishToChannel(channel string, frameType string, data interface{}) error {
	frame, err := buildFrame(frameType, channel, data)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &channelFrame{channel: channel, frame: frame}:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("broadcast channel full, frame dropped")
	}
}

// SendToUser queues a frame for every connection of a specific user
func (h *Hub) SendToUser(email string, frameType string, data interface{}) error {
	frame, err := buildFrame(frameType, "", data)
	if err != nil {
		return err
	}

	select {
	case h.direct <- &userFrame{email: email, frame: frame}:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("direct channel full, frame dropped")
	}
}

func buildFrame(frameType, channel string, data interface{}) (*Frame, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame data: %w", err)
	}
	return &Frame{
		Type:      frameType,
		Channel:   channel,
		Data:      jsonData,
		Timestamp: time.Now().Unix(),
	}, nil
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[client.email] == nil {
		h.connections[client.email] = make(map[*Client]bool)
	}
	h.connections[client.email][client] = true
	h.metrics.ActiveConnections.Inc()

	h.logger.Info("Client registered",
		zap.String("email", client.email),
		zap.String("connectionID", client.id),
		zap.Int("userConnections", len(h.connections[client.email])),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.connections[client.email]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	client.closeSend()
	if len(clients) == 0 {
		delete(h.connections, client.email)
	}

	for channel, subscribers := range h.subscriptions {
		if subscribers[client] {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.subscriptions, channel)
			}
		}
	}

	h.metrics.ActiveConnections.Dec()
	h.logger.Info("Client unregistered",
		zap.String("email", client.email),
		zap.String("connectionID", client.id),
		zap.Int("remainingConnections", len(clients)),
	)
}

func (h *Hub) subscribeClient(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscriptions[channel] == nil {
		h.subscriptions[channel] = make(map[*Client]bool)
	}
	h.subscriptions[channel][client] = true

	h.logger.Debug("Client subscribed",
		zap.String("email", client.email),
		zap.String("channel", channel),
	)
}

func (h *Hub) unsubscribeClient(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.subscriptions[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.subscriptions, channel)
		}
	}
}

func (h *Hub) broadcastToChannel(channel string, frame *Frame) {
	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.subscriptions[channel]))
	for client := range h.subscriptions[channel] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		h.logger.Debug("No subscribers for channel",
			zap.String("channel", channel),
			zap.String("frameType", frame.Type),
		)
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to marshal frame",
			zap.Error(err),
			zap.String("frameType", frame.Type),
		)
		return
	}

	h.deliver(subscribers, data)
}

func (h *Hub) sendToUser(email string, frame *Frame) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.connections[email]))
	for client := range h.connections[email] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		h.logger.Debug("No active connections for user",
			zap.String("email", email),
			zap.String("frameType", frame.Type),
		)
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to marshal frame", zap.Error(err))
		return
	}

	h.deliver(clients, data)
}

// deliver writes the marshaled frame to each client's send queue, closing
// clients whose queue is full
func (h *Hub) deliver(clients []*Client, data []byte) {
	for _, client := range clients {
		if client.trySend(data) {
			h.metrics.BroadcastDelivered.Inc()
			continue
		}
		h.metrics.BroadcastFailed.Inc()
		h.logger.Warn("Closing slow client",
			zap.String("email", client.email),
			zap.String("connectionID", client.id),
		)
		go func(c *Client) {
			h.unregister <- c
			c.conn.Close()
		}(client)
	}
}

func (h *Hub) performHealthCheck() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for email, clients := range h.connections {
		total += len(clients)
		for client := range clients {
			if !client.trySend([]byte(`{"type":"ping"}`)) {
				h.logger.Warn("Failed to ping client",
					zap.String("email", email),
					zap.String("connectionID", client.id),
				)
			}
		}
	}

	h.logger.Debug("Health check performed",
		zap.Int("totalConnections", total),
		zap.Int("totalUsers", len(h.connections)),
	)
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for email, clients := range h.connections {
		for client := range clients {
			client.closeSend()
			client.conn.Close()
		}
		delete(h.connections, email)
	}
	h.subscriptions = make(map[string]map[*Client]bool)

	h.logger.Info("All connections closed")
}

// GetConnectionCount returns the number of active connections for a user
func (h *Hub) GetConnectionCount(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[email])
}

// GetSubscriberCount returns the number of subscribers on a channel
func (h *Hub) GetSubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}
