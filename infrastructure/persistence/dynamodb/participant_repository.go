package dynamodb

import (
	"context"
	"time"

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

// ParticipantRepository implements ports.ParticipantRepository on the single
// table. Uniqueness of (conversation, email) comes from the primary key plus
// conditional writes.
type ParticipantRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.ParticipantRepository = (*ParticipantRepository)(nil)

// NewParticipantRepository creates a DynamoDB-backed participant repository
func NewParticipantRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *ParticipantRepository {
	return &ParticipantRepository{client: client, tableName: tableName, logger: logger}
}

// participantItem builds the membership row, including the GSI attributes
// used for user-level conversation listing
func participantItem(p *entities.Participant) map[string]types.AttributeValue {
	convID := p.ConversationID().String()
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: conversationPK(convID)},
		"SK":             &types.AttributeValueMemberS{Value: memberSK(p.Email())},
		"EntityType":     &types.AttributeValueMemberS{Value: "PARTICIPANT"},
		"ConversationID": &types.AttributeValueMemberS{Value: convID},
		"Email":          &types.AttributeValueMemberS{Value: p.Email()},
		"JoinedAt":       &types.AttributeValueMemberS{Value: p.JoinedAt().Format(time.RFC3339Nano)},
		"GSI1PK":         &types.AttributeValueMemberS{Value: userPK(p.Email())},
		"GSI1SK":         &types.AttributeValueMemberS{Value: conversationPK(convID)},
	}
}

// Add creates the membership. attribute_not_exists rejects the second of two
// concurrent adds, so exactly one wins.
func (r *ParticipantRepository) Add(ctx context.Context, participant *entities.Participant) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                participantItem(participant),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewAlreadyMember("user " + participant.Email() + " is already a member of conversation " + participant.ConversationID().String())
		}
		return apperrors.NewTransient("add participant", err)
	}
	return nil
}

// Remove deletes the membership; attribute_exists turns a missing row into
// a NotMember conflict instead of a silent no-op
func (r *ParticipantRepository) Remove(ctx context.Context, id valueobjects.ConversationID, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conversationPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: memberSK(email)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewNotMember("user " + email + " is not a member of conversation " + id.String())
		}
		return apperrors.NewTransient("remove participant", err)
	}
	return nil
}

// ListByConversation queries all MEMBER# rows under the conversation
func (r *ParticipantRepository) ListByConversation(ctx context.Context, id valueobjects.ConversationID) ([]*entities.Participant, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(conversationPK(id.String()))).
		And(expression.Key("SK").BeginsWith(prefixMember))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewInternal("build participant query", err)
	}

	participants := make([]*entities.Participant, 0)
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewTransient("query participants", err)
		}

		for _, item := range out.Items {
			participants = append(participants, entities.ReconstructParticipant(
				id,
				stringAttr(item, "Email"),
				timeAttr(item, "JoinedAt"),
			))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return participants, nil
}

// IsMember reads the membership row directly
func (r *ParticipantRepository) IsMember(ctx context.Context, id valueobjects.ConversationID, email string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conversationPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: memberSK(email)},
		},
	})
	if err != nil {
		return false, apperrors.NewTransient("get membership", err)
	}
	return out.Item != nil, nil
}
