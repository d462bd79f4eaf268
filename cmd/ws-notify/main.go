package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var dbClient *dynamodb.Client
var apiGatewayManagementClient *apigatewaymanagementapi.Client
var chatTable string
var connectionsTable string

func init() {
	chatTable = os.Getenv("TABLE_NAME")
	connectionsTable = os.Getenv("CONNECTIONS_TABLE_NAME")
	wsApiEndpoint := os.Getenv("WEBSOCKET_API_ENDPOINT")
	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("Unable to load SDK config, %v", err)
	}
	dbClient = dynamodb.NewFromConfig(awsCfg)
	apiGatewayManagementClient = apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = &wsApiEndpoint
	})
}

// MessageCreatedDetail mirrors the bus payload of a committed append
type MessageCreatedDetail struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderEmail    string `json:"sender_email"`
	MessageType    string `json:"message_type"`
}

// pushFrame is the envelope delivered to each open connection
type pushFrame struct {
	Type      string      `json:"type"`
	Channel   string      `json:"channel"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func handler(ctx context.Context, event events.EventBridgeEvent) error {
	var detail MessageCreatedDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		log.Printf("ERROR: could not unmarshal event detail: %v", err)
		return err
	}

	emails, err := conversationMembers(ctx, detail.ConversationID)
	if err != nil {
		log.Printf("ERROR: Failed to list members for conversation %s: %v", detail.ConversationID, err)
		return err
	}

	frame, err := json.Marshal(pushFrame{
		Type:      "message.created",
		Channel:   "conversation/" + detail.ConversationID,
		Data:      detail,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	for _, email := range emails {
		// the sender already saw the message on the HTTP response
		if email == detail.SenderEmail {
			continue
		}
		if err := pushToUser(ctx, email, frame); err != nil {
			log.Printf("ERROR: Failed to push to %s: %v", email, err)
		}
	}
	return nil
}

// conversationMembers reads the membership rows of a conversation
func conversationMembers(ctx context.Context, conversationID string) ([]string, error) {
	result, err := dbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(chatTable),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk_prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: "CONV#" + conversationID},
			":sk_prefix": &types.AttributeValueMemberS{Value: "MEMBER#"},
		},
	})
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		emails = append(emails, strings.TrimPrefix(sk.Value, "MEMBER#"))
	}
	return emails, nil
}

// pushToUser posts the frame to every open connection of a user and prunes
// connections API Gateway reports as gone
func pushToUser(ctx context.Context, email string, frame []byte) error {
	result, err := dbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk_prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: "USER#" + email},
			":sk_prefix": &types.AttributeValueMemberS{Value: "CONN#"},
		},
	})
	if err != nil {
		return err
	}

	for _, item := range result.Items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		connectionID := strings.TrimPrefix(sk.Value, "CONN#")
		_, err := apiGatewayManagementClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: &connectionID,
			Data:         frame,
		})

		if err != nil {
			var goneErr *apigwTypes.GoneException
			if errors.As(err, &goneErr) {
				log.Printf("Found stale connection, deleting: %s", connectionID)
				dbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
					TableName: aws.String(connectionsTable),
					Key: map[string]types.AttributeValue{
						"PK": item["PK"],
						"SK": item["SK"],
					},
				})
			} else {
				log.Printf("ERROR: Failed to post to connection %s: %v", connectionID, err)
			}
		}
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
