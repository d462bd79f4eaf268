package dynamodb

import (
	"context"
	"sort"

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

// ConversationRepository implements ports.ConversationRepository on the
// single table. The membership GSI answers "which conversations does this
// user belong to"; the meta rows are then batch-fetched.
type ConversationRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

var _ ports.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a DynamoDB-backed conversation repository
func NewConversationRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{client: client, tableName: tableName, indexName: indexName, logger: logger}
}

// GetByID retrieves a conversation by its identifier
func (r *ConversationRepository) GetByID(ctx context.Context, id valueobjects.ConversationID) (*entities.Conversation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conversationPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return nil, apperrors.NewTransient("get conversation", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFound("conversation not found: " + id.String())
	}

	return parseConversationItem(out.Item)
}

// ListByParticipant queries the membership index for the user's conversation
// IDs, fetches each meta row, and sorts by last activity descending
func (r *ConversationRepository) ListByParticipant(ctx context.Context, email string) ([]*entities.Conversation, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(userPK(email)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewInternal("build membership query", err)
	}

	conversations := make([]*entities.Conversation, 0)
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(r.indexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewTransient("query memberships", err)
		}

		for _, item := range out.Items {
			convID := stringAttr(item, "ConversationID")
			if convID == "" {
				continue
			}
			id, err := valueobjects.NewConversationIDFromString(convID)
			if err != nil {
				r.logger.Warn("skipping membership row with bad conversation id",
					zap.String("conversationID", convID))
				continue
			}

			conv, err := r.GetByID(ctx, id)
			if apperrors.IsNotFound(err) {
				// membership row outlived its conversation; skip
				continue
			}
			if err != nil {
				return nil, err
			}
			conversations = append(conversations, conv)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.UpdatedAt().Equal(b.UpdatedAt()) {
			return a.UpdatedAt().After(b.UpdatedAt())
		}
		return a.ID().String() < b.ID().String()
	})
	return conversations, nil
}

func parseConversationItem(item map[string]types.AttributeValue) (*entities.Conversation, error) {
	id, err := valueobjects.NewConversationIDFromString(stringAttr(item, "ConversationID"))
	if err != nil {
		return nil, apperrors.NewInternal("corrupt conversation item", err)
	}

	return entities.ReconstructConversation(
		id,
		stringAttr(item, "Title"),
		valueobjects.ConversationType(stringAttr(item, "ConversationType")),
		stringAttr(item, "Metadata"),
		timeAttr(item, "CreatedAt"),
		timeAttr(item, "UpdatedAt"),
	), nil
}
