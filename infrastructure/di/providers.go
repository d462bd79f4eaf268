package di

import (
	"context"
	"fmt"

	"relay-backend/application/ports"
	"relay-backend/application/services"
	"relay-backend/infrastructure/config"
	"relay-backend/infrastructure/messaging/eventbridge"
	dynamopersistence "relay-backend/infrastructure/persistence/dynamodb"
	"relay-backend/infrastructure/persistence/memory"
	"relay-backend/interfaces/http/rest"
	"relay-backend/interfaces/websocket"
	"relay-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// metricsNamespace is the Prometheus namespace for every collector.
const metricsNamespace = "relay"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the Prometheus registry and collectors
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics(metricsNamespace)
}

// Storage bundles the repository set and transaction factory for the
// configured driver. Both drivers satisfy the same ports, so everything
// above this provider is driver-agnostic.
type Storage struct {
	Users         ports.UserRepository
	Conversations ports.ConversationRepository
	Participants  ports.ParticipantRepository
	Messages      ports.MessageRepository
	UnitOfWork    ports.UnitOfWorkFactory
}

// ProvideStorage selects the persistence driver from configuration
func ProvideStorage(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		return &Storage{
			Users:         memory.NewUserRepository(store),
			Conversations: memory.NewConversationRepository(store),
			Participants:  memory.NewParticipantRepository(store),
			Messages:      memory.NewMessageRepository(store),
			UnitOfWork:    memory.NewUnitOfWorkFactory(store),
		}, nil

	case config.StorageDriverDynamoDB:
		return &Storage{
			Users:         dynamopersistence.NewUserRepository(client, cfg.DynamoDBTable, logger),
			Conversations: dynamopersistence.NewConversationRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger),
			Participants:  dynamopersistence.NewParticipantRepository(client, cfg.DynamoDBTable, logger),
			Messages:      dynamopersistence.NewMessageRepository(client, cfg.DynamoDBTable, logger),
			UnitOfWork:    dynamopersistence.NewUnitOfWorkFactory(client, cfg.DynamoDBTable, logger),
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

// ProvideUserRepository extracts the user repository from the storage bundle
func ProvideUserRepository(s *Storage) ports.UserRepository {
	return s.Users
}

// ProvideConversationRepository extracts the conversation repository
func ProvideConversationRepository(s *Storage) ports.ConversationRepository {
	return s.Conversations
}

// ProvideParticipantRepository extracts the participant repository
func ProvideParticipantRepository(s *Storage) ports.ParticipantRepository {
	return s.Participants
}

// ProvideMessageRepository extracts the message repository
func ProvideMessageRepository(s *Storage) ports.MessageRepository {
	return s.Messages
}

// ProvideUnitOfWorkFactory extracts the transaction factory
func ProvideUnitOfWorkFactory(s *Storage) ports.UnitOfWorkFactory {
	return s.UnitOfWork
}

// ProvideEventPublisher creates the EventBridge publisher
func ProvideEventPublisher(
	client *awseventbridge.Client,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, metrics, logger)
}

// ProvideIdentityService creates the identity service
func ProvideIdentityService(users ports.UserRepository, logger *zap.Logger) *services.IdentityService {
	return services.NewIdentityService(users, logger)
}

// ProvideConversationService creates the conversation service
func ProvideConversationService(
	conversations ports.ConversationRepository,
	participants ports.ParticipantRepository,
	identity *services.IdentityService,
	uowFactory ports.UnitOfWorkFactory,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.ConversationService {
	return services.NewConversationService(conversations, participants, identity, uowFactory, publisher, logger)
}

// ProvidePageLimits exposes the watcher as the paging limit source. A nil
// watcher (no dynamic config file) yields a nil provider, so the service
// falls back to its compile-time defaults.
func ProvidePageLimits(watcher *config.ConfigWatcher) services.PageLimitProvider {
	if watcher == nil {
		return nil
	}
	return watcher
}

// ProvideMessageService creates the message service
func ProvideMessageService(
	conversations ports.ConversationRepository,
	participants ports.ParticipantRepository,
	users ports.UserRepository,
	messages ports.MessageRepository,
	uowFactory ports.UnitOfWorkFactory,
	publisher ports.EventPublisher,
	broadcaster ports.Broadcaster,
	limits services.PageLimitProvider,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.MessageService {
	return services.NewMessageService(conversations, participants, users, messages, uowFactory, publisher, broadcaster, limits, metrics, logger)
}

// ProvideHub creates the WebSocket hub. The caller owns its lifecycle and
// must start Run in a goroutine before serving connections.
func ProvideHub(metrics *observability.Metrics, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(metrics, logger)
}

// ProvideBroadcaster creates the hub-backed broadcaster
func ProvideBroadcaster(hub *websocket.Hub, logger *zap.Logger) ports.Broadcaster {
	return websocket.NewHubBroadcaster(hub, logger)
}

// ProvideWebSocketServer creates the WebSocket upgrade handler. Connection
// limits and queue sizing come from the dynamic config when a watcher is
// wired; these apply to connections opened after a reload, not existing ones.
func ProvideWebSocketServer(
	hub *websocket.Hub,
	messages *services.MessageService,
	identity *services.IdentityService,
	watcher *config.ConfigWatcher,
	logger *zap.Logger,
) *websocket.Server {
	wsConfig := websocket.DefaultServerConfig()
	if watcher != nil {
		wsConfig.SendQueueSize = watcher.GetCurrent().WebSocket.SendQueueSize
	}
	return websocket.NewServer(hub, messages, identity, wsConfig, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	conversations *services.ConversationService,
	messages *services.MessageService,
	wsServer *websocket.Server,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(conversations, messages, wsServer, metrics, logger, cfg.EnableCORS)
}

// ProvideConfigWatcher creates the dynamic configuration watcher when a
// config file path is set. Without one the defaults are used unchanged.
func ProvideConfigWatcher(cfg *config.Config, logger *zap.Logger) (*config.ConfigWatcher, error) {
	if cfg.DynamicConfigPath == "" {
		return nil, nil
	}
	return config.NewConfigWatcher(cfg.DynamicConfigPath, logger)
}

var _ services.PageLimitProvider = (*config.ConfigWatcher)(nil)
