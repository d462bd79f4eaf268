package services

import (
	"context"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"

	"go.uber.org/zap"
)

// IdentityService tracks known users. Users come into existence the first
// time an email is referenced; there is no other business logic here.
type IdentityService struct {
	users  ports.UserRepository
	logger *zap.Logger
}

// NewIdentityService creates the identity service
func NewIdentityService(users ports.UserRepository, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		users:  users,
		logger: logger,
	}
}

// ResolveOrCreate returns the existing user for the email or creates one.
// The repository guarantees idempotency under concurrent first reference,
// so two racing callers both get the same user back.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, email string) (*entities.User, error) {
	user, err := s.users.FindOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("resolved user",
		zap.String("email", user.Email()),
	)

	return user, nil
}
