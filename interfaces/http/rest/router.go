package rest

import (
	"net/http"

	"relay-backend/application/services"
	"relay-backend/interfaces/http/rest/handlers"
	"relay-backend/interfaces/http/rest/middleware"
	"relay-backend/interfaces/websocket"
	"relay-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	wsServer      *websocket.Server
	metrics       *observability.Metrics
	logger        *zap.Logger
	enableCORS    bool
}

// NewRouter creates a new router instance
func NewRouter(
	conversations *services.ConversationService,
	messages *services.MessageService,
	wsServer *websocket.Server,
	metrics *observability.Metrics,
	logger *zap.Logger,
	enableCORS bool,
) *Router {
	return &Router{
		conversations: conversations,
		messages:      messages,
		wsServer:      wsServer,
		metrics:       metrics,
		logger:        logger,
		enableCORS:    enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and observability
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	// Live updates
	if rt.wsServer != nil {
		router.Get("/ws", rt.wsServer.HandleWebSocket)
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			conversationHandler := handlers.NewConversationHandler(rt.conversations, rt.logger)
			messageHandler := handlers.NewMessageHandler(rt.messages, rt.logger)

			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)
			r.Get("/{conversationID}", conversationHandler.Get)
			r.Delete("/{conversationID}", conversationHandler.Delete)

			r.Post("/{conversationID}/participants", conversationHandler.AddParticipant)
			r.Delete("/{conversationID}/participants/{email}", conversationHandler.RemoveParticipant)

			r.Post("/{conversationID}/messages", messageHandler.Send)
			r.Get("/{conversationID}/messages", messageHandler.Page)
			r.Get("/{conversationID}/messages/all", messageHandler.History)
			r.Delete("/{conversationID}/messages/{messageID}", messageHandler.SoftDelete)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
