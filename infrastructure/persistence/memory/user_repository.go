package memory

import (
	"context"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	apperrors "relay-backend/pkg/errors"
)

// UserRepository is the in-memory implementation of ports.UserRepository
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository backed by the store
func NewUserRepository(store *Store) ports.UserRepository {
	return &UserRepository{store: store}
}

// FindByEmail retrieves a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.users[email]
	if !ok {
		return nil, apperrors.NewNotFound("user not found: " + email)
	}
	return entities.ReconstructUser(rec.email, rec.createdAt), nil
}

// FindOrCreate returns the existing user or creates one. The single store
// lock makes concurrent first references converge on one record.
func (r *UserRepository) FindOrCreate(ctx context.Context, email string) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if rec, ok := r.store.users[email]; ok {
		return entities.ReconstructUser(rec.email, rec.createdAt), nil
	}

	user, err := entities.NewUser(email)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	r.store.users[user.Email()] = userRecord{
		email:     user.Email(),
		createdAt: user.CreatedAt(),
	}
	return user, nil
}
