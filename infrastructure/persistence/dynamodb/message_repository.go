package dynamodb

import (
	"context"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	apperrors "relay-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// MessageRepository implements ports.MessageRepository on the single table.
// Message sort keys embed the creation timestamp, so a descending query over
// the MSG# range is already history order.
type MessageRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a DynamoDB-backed message repository
func NewMessageRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{client: client, tableName: tableName, logger: logger}
}

// queryDescending walks the MSG# range newest first, filtering out
// soft-deleted rows server-side, until limit visible rows are collected.
// A limit of 0 means no limit.
func (r *MessageRepository) queryDescending(ctx context.Context, id valueobjects.ConversationID, skip, limit int) ([]*entities.Message, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(conversationPK(id.String()))).
		And(expression.Key("SK").BeginsWith(prefixMessage))
	filter := expression.Name("IsDeleted").Equal(expression.Value(false))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, apperrors.NewInternal("build message query", err)
	}

	messages := make([]*entities.Message, 0)
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(false),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewTransient("query messages", err)
		}

		for _, item := range out.Items {
			if skip > 0 {
				skip--
				continue
			}
			msg, err := parseMessageItem(id, item)
			if err != nil {
				return nil, err
			}
			messages = append(messages, msg)
			if limit > 0 && len(messages) == limit {
				return messages, nil
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return messages, nil
}

// Page returns one zero-based page, newest first
func (r *MessageRepository) Page(ctx context.Context, id valueobjects.ConversationID, page, size int) ([]*entities.Message, error) {
	return r.queryDescending(ctx, id, page*size, size)
}

// History returns the full visible sequence, newest first
func (r *MessageRepository) History(ctx context.Context, id valueobjects.ConversationID) ([]*entities.Message, error) {
	return r.queryDescending(ctx, id, 0, 0)
}

// Get retrieves one message by its composite key, deleted rows included
func (r *MessageRepository) Get(ctx context.Context, id valueobjects.ConversationID, key valueobjects.MessageKey) (*entities.Message, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conversationPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: messageSK(key.CreatedAt(), key.ID())},
		},
	})
	if err != nil {
		return nil, apperrors.NewTransient("get message", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFound("message not found: " + key.ID())
	}
	return parseMessageItem(id, out.Item)
}

// MarkDeleted flips the soft-delete flag in place; attribute_exists keeps a
// missing row from turning into a phantom item
func (r *MessageRepository) MarkDeleted(ctx context.Context, id valueobjects.ConversationID, key valueobjects.MessageKey) error {
	update := expression.Set(expression.Name("IsDeleted"), expression.Value(true))
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return apperrors.NewInternal("build delete update", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conversationPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: messageSK(key.CreatedAt(), key.ID())},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewNotFound("message not found: " + key.ID())
		}
		return apperrors.NewTransient("mark message deleted", err)
	}
	return nil
}

// messageItem builds the message row for the unit of work's transactional put
func messageItem(msg *entities.Message) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: conversationPK(msg.ConversationID().String())},
		"SK":          &types.AttributeValueMemberS{Value: messageSK(msg.CreatedAt(), msg.Key().ID())},
		"EntityType":  &types.AttributeValueMemberS{Value: "MESSAGE"},
		"MessageID":   &types.AttributeValueMemberS{Value: msg.Key().ID()},
		"SenderEmail": &types.AttributeValueMemberS{Value: msg.SenderEmail()},
		"MessageType": &types.AttributeValueMemberS{Value: string(msg.Type())},
		"Content":     &types.AttributeValueMemberS{Value: msg.Content()},
		"IsDeleted":   &types.AttributeValueMemberBOOL{Value: msg.IsDeleted()},
	}
}

func parseMessageItem(id valueobjects.ConversationID, item map[string]types.AttributeValue) (*entities.Message, error) {
	msgID, createdAt, err := parseMessageSK(stringAttr(item, "SK"))
	if err != nil {
		return nil, apperrors.NewInternal("corrupt message item", err)
	}
	key, err := valueobjects.NewMessageKeyFrom(msgID, createdAt)
	if err != nil {
		return nil, apperrors.NewInternal("corrupt message key", err)
	}

	return entities.ReconstructMessage(
		key,
		id,
		stringAttr(item, "SenderEmail"),
		valueobjects.MessageType(stringAttr(item, "MessageType")),
		stringAttr(item, "Content"),
		boolAttr(item, "IsDeleted"),
	), nil
}
