package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"relay-backend/infrastructure/persistence/dynamodb"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// Pre-provisions user rows from upstream identity events so that the first
// conversation referencing an address does not pay the creation write.
// Creation stays lazy either way; this consumer is an optimization, not a
// dependency.

var users *dynamodb.UserRepository
var logger *zap.Logger

func init() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.Fatal("Unable to load SDK config", zap.Error(err))
	}
	client := awsdynamodb.NewFromConfig(awsCfg)
	users = dynamodb.NewUserRepository(client, os.Getenv("TABLE_NAME"), logger)
}

// UserCreatedDetail is the upstream identity event payload
type UserCreatedDetail struct {
	Email string `json:"email"`
}

func handler(ctx context.Context, event events.EventBridgeEvent) error {
	var detail UserCreatedDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		logger.Error("Could not unmarshal event detail", zap.Error(err))
		return err
	}
	if detail.Email == "" {
		logger.Warn("Skipping user event without email", zap.String("eventID", event.ID))
		return nil
	}

	user, err := users.FindOrCreate(ctx, detail.Email)
	if err != nil {
		logger.Error("Failed to provision user", zap.String("email", detail.Email), zap.Error(err))
		return err
	}

	logger.Info("User provisioned", zap.String("email", user.Email()))
	return nil
}

func main() {
	lambda.Start(handler)
}
