package dynamodb

import (
	"context"
	"time"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	apperrors "relay-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// UserRepository implements ports.UserRepository on the single table
type UserRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.UserRepository = (*UserRepository)(nil)

// userItem is the table shape of a user profile row
type userItem struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"EntityType"`
	Email      string    `dynamodbav:"Email"`
	CreatedAt  time.Time `dynamodbav:"CreatedAt"`
}

// NewUserRepository creates a DynamoDB-backed user repository
func NewUserRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *UserRepository {
	return &UserRepository{client: client, tableName: tableName, logger: logger}
}

// FindByEmail retrieves a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(email)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
	})
	if err != nil {
		return nil, apperrors.NewTransient("get user", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFound("user not found: " + email)
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternal("unmarshal user item", err)
	}

	return entities.ReconstructUser(item.Email, item.CreatedAt), nil
}

// FindOrCreate returns the existing user or creates one. The conditional put
// makes concurrent first references race safely: the loser re-reads the
// winner's row.
func (r *UserRepository) FindOrCreate(ctx context.Context, email string) (*entities.User, error) {
	if user, err := r.FindByEmail(ctx, email); err == nil {
		return user, nil
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	user, err := entities.NewUser(email)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	item, err := attributevalue.MarshalMap(userItem{
		PK:         userPK(user.Email()),
		SK:         skProfile,
		EntityType: "USER",
		Email:      user.Email(),
		CreatedAt:  user.CreatedAt(),
	})
	if err != nil {
		return nil, apperrors.NewInternal("marshal user item", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			// someone else created it between our read and write
			return r.FindByEmail(ctx, email)
		}
		return nil, apperrors.NewTransient("create user", err)
	}

	r.logger.Debug("user created", zap.String("email", user.Email()))
	return user, nil
}
