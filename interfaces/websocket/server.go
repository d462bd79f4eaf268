package websocket

import (
	"net/http"
	"strings"

	"relay-backend/application/services"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests to WebSocket connections. Connections are
// identified by the email query parameter; the deployment's edge layer is
// responsible for authentication.
type Server struct {
	hub      *Hub
	messages *services.MessageService
	identity *services.IdentityService
	upgrader websocket.Upgrader
	logger   *zap.Logger

	maxConnectionsPerUser int
	sendQueueSize         int
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize        int
	WriteBufferSize       int
	CheckOrigin           func(r *http.Request) bool
	MaxConnectionsPerUser int
	SendQueueSize         int
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		MaxConnectionsPerUser: 10,
		SendQueueSize:         sendBufferSize,
	}
}

// NewServer creates a new WebSocket server
func NewServer(hub *Hub, messages *services.MessageService, identity *services.IdentityService, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	return &Server{
		hub:      hub,
		messages: messages,
		identity: identity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:                logger,
		maxConnectionsPerUser: config.MaxConnectionsPerUser,
		sendQueueSize:         config.SendQueueSize,
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" || !strings.Contains(email, "@") {
		s.logger.Warn("WebSocket connection rejected, missing email",
			zap.String("remoteAddr", r.RemoteAddr),
		)
		http.Error(w, "email query parameter required", http.StatusBadRequest)
		return
	}

	// connecting also registers previously unseen users
	if _, err := s.identity.ResolveOrCreate(r.Context(), email); err != nil {
		s.logger.Error("Failed to resolve user for connection",
			zap.String("email", email),
			zap.Error(err),
		)
		http.Error(w, "could not resolve user", http.StatusServiceUnavailable)
		return
	}

	if s.hub.GetConnectionCount(email) >= s.maxConnectionsPerUser {
		s.logger.Warn("Connection limit exceeded for user",
			zap.String("email", email),
			zap.Int("currentConnections", s.hub.GetConnectionCount(email)),
		)
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(email, s.hub, conn, s.messages, s.sendQueueSize, s.logger)
	client.Start()

	s.logger.Info("New WebSocket connection established",
		zap.String("email", email),
		zap.String("connectionID", client.GetID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *Hub {
	return s.hub
}
