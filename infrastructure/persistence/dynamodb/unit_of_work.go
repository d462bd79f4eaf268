package dynamodb

import (
	"context"
	"errors"
	"time"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	domainevents "relay-backend/domain/events"
	apperrors "relay-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// UnitOfWork batches writes into a single TransactWriteItems call, so a
// conversation create (meta row plus memberships) or a message append (row
// plus activity bump) commits atomically. Instances are single-use.
type UnitOfWork struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger

	active bool
	items  []types.TransactWriteItem
	events []domainevents.DomainEvent
}

// UnitOfWorkFactory mints DynamoDB-backed units of work
type UnitOfWorkFactory struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewUnitOfWorkFactory creates the factory
func NewUnitOfWorkFactory(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.UnitOfWorkFactory {
	return &UnitOfWorkFactory{client: client, tableName: tableName, logger: logger}
}

// New mints a fresh unit of work
func (f *UnitOfWorkFactory) New() ports.UnitOfWork {
	return &UnitOfWork{client: f.client, tableName: f.tableName, logger: f.logger}
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return errors.New("transaction already active")
	}
	u.active = true
	u.items = nil
	u.events = nil
	return nil
}

func conversationItem(conv *entities.Conversation) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":               &types.AttributeValueMemberS{Value: conversationPK(conv.ID().String())},
		"SK":               &types.AttributeValueMemberS{Value: skMeta},
		"EntityType":       &types.AttributeValueMemberS{Value: "CONVERSATION"},
		"ConversationID":   &types.AttributeValueMemberS{Value: conv.ID().String()},
		"Title":            &types.AttributeValueMemberS{Value: conv.Title()},
		"ConversationType": &types.AttributeValueMemberS{Value: string(conv.Type())},
		"Metadata":         &types.AttributeValueMemberS{Value: conv.Metadata()},
		"CreatedAt":        &types.AttributeValueMemberS{Value: conv.CreatedAt().Format(time.RFC3339Nano)},
		"UpdatedAt":        &types.AttributeValueMemberS{Value: conv.UpdatedAt().Format(time.RFC3339Nano)},
	}
}

// RegisterConversationCreate stages the meta row and all initial membership
// rows, each guarded against overwriting an existing row
func (u *UnitOfWork) RegisterConversationCreate(conv *entities.Conversation, participants []*entities.Participant) error {
	if !u.active {
		return errors.New("no active transaction")
	}

	u.items = append(u.items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(u.tableName),
			Item:                conversationItem(conv),
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	})
	for _, p := range participants {
		u.items = append(u.items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(u.tableName),
				Item:                participantItem(p),
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			},
		})
	}
	return nil
}

// RegisterConversationDelete stages removal of every membership row and the
// meta row. Message rows are left untouched.
func (u *UnitOfWork) RegisterConversationDelete(conv *entities.Conversation, participants []*entities.Participant) error {
	if !u.active {
		return errors.New("no active transaction")
	}

	for _, p := range participants {
		u.items = append(u.items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(u.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: conversationPK(conv.ID().String())},
					"SK": &types.AttributeValueMemberS{Value: memberSK(p.Email())},
				},
			},
		})
	}
	u.items = append(u.items, types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(u.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: conversationPK(conv.ID().String())},
				"SK": &types.AttributeValueMemberS{Value: skMeta},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
		},
	})
	return nil
}

// RegisterMessageAppend stages the message put together with the owning
// conversation's UpdatedAt bump. The bump's condition check means an append
// into a just-deleted conversation fails as a unit.
func (u *UnitOfWork) RegisterMessageAppend(msg *entities.Message, conv *entities.Conversation) error {
	if !u.active {
		return errors.New("no active transaction")
	}

	u.items = append(u.items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(u.tableName),
			Item:                messageItem(msg),
			ConditionExpression: aws.String("attribute_not_exists(SK)"),
		},
	})
	u.items = append(u.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName: aws.String(u.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: conversationPK(conv.ID().String())},
				"SK": &types.AttributeValueMemberS{Value: skMeta},
			},
			UpdateExpression:    aws.String("SET UpdatedAt = :updatedAt"),
			ConditionExpression: aws.String("attribute_exists(PK)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":updatedAt": &types.AttributeValueMemberS{Value: conv.UpdatedAt().Format(time.RFC3339Nano)},
			},
		},
	})
	return nil
}

// RegisterEvent stages a domain event for publication after commit
func (u *UnitOfWork) RegisterEvent(event domainevents.DomainEvent) error {
	if !u.active {
		return errors.New("no active transaction")
	}
	u.events = append(u.events, event)
	return nil
}

// Commit executes all staged writes in one TransactWriteItems call
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if !u.active {
		return errors.New("no active transaction")
	}
	u.active = false

	if len(u.items) == 0 {
		return nil
	}

	_, err := u.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: u.items,
	})
	if err != nil {
		u.events = nil
		if transactionConditionFailed(err) {
			return apperrors.NewNotFound("transaction precondition failed")
		}
		return apperrors.NewTransient("commit transaction", err)
	}

	u.logger.Debug("transaction committed", zap.Int("items", len(u.items)))
	return nil
}

// Rollback discards all staged work
func (u *UnitOfWork) Rollback() error {
	u.active = false
	u.items = nil
	u.events = nil
	return nil
}

// Events returns the staged events of the last committed transaction
func (u *UnitOfWork) Events() []domainevents.DomainEvent {
	return u.events
}
