//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"relay-backend/application/services"
	"relay-backend/infrastructure/config"
	"relay-backend/interfaces/http/rest"
	"relay-backend/interfaces/websocket"
	"relay-backend/pkg/observability"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Storage       *Storage
	Identity      *services.IdentityService
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Hub           *websocket.Hub
	WSServer      *websocket.Server
	Router        *rest.Router
	ConfigWatcher *config.ConfigWatcher
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideMetrics,
	ProvideStorage,
	ProvideUserRepository,
	ProvideConversationRepository,
	ProvideParticipantRepository,
	ProvideMessageRepository,
	ProvideUnitOfWorkFactory,
	ProvideEventPublisher,
	ProvideIdentityService,
	ProvideConversationService,
	ProvidePageLimits,
	ProvideMessageService,
	ProvideHub,
	ProvideBroadcaster,
	ProvideWebSocketServer,
	ProvideRouter,
	ProvideConfigWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
