package memory

import (
	"context"
	"sort"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	apperrors "relay-backend/pkg/errors"
)

// ParticipantRepository is the in-memory implementation of
// ports.ParticipantRepository
type ParticipantRepository struct {
	store *Store
}

// NewParticipantRepository creates a participant repository backed by the store
func NewParticipantRepository(store *Store) ports.ParticipantRepository {
	return &ParticipantRepository{store: store}
}

// Add creates the membership. The store lock serializes concurrent adds of
// the same pair, so exactly one wins and the rest get AlreadyMember.
func (r *ParticipantRepository) Add(ctx context.Context, participant *entities.Participant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	convID := participant.ConversationID().String()
	members, ok := r.store.participants[convID]
	if !ok {
		members = make(map[string]participantRecord)
		r.store.participants[convID] = members
	}

	if _, exists := members[participant.Email()]; exists {
		return apperrors.NewAlreadyMember("user " + participant.Email() + " is already a member of conversation " + convID)
	}

	members[participant.Email()] = snapshotParticipant(participant)
	return nil
}

// Remove deletes the membership
func (r *ParticipantRepository) Remove(ctx context.Context, id valueobjects.ConversationID, email string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	members, ok := r.store.participants[id.String()]
	if !ok {
		return apperrors.NewNotMember("user " + email + " is not a member of conversation " + id.String())
	}
	if _, exists := members[email]; !exists {
		return apperrors.NewNotMember("user " + email + " is not a member of conversation " + id.String())
	}

	delete(members, email)
	return nil
}

// ListByConversation returns all memberships ordered by email for stable
// iteration
func (r *ParticipantRepository) ListByConversation(ctx context.Context, id valueobjects.ConversationID) ([]*entities.Participant, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	members := r.store.participants[id.String()]
	out := make([]*entities.Participant, 0, len(members))
	for _, rec := range members {
		out = append(out, rec.toEntity())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Email() < out[j].Email()
	})
	return out, nil
}

// IsMember reports whether the (conversation, email) pair exists
func (r *ParticipantRepository) IsMember(ctx context.Context, id valueobjects.ConversationID, email string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	members, ok := r.store.participants[id.String()]
	if !ok {
		return false, nil
	}
	_, exists := members[email]
	return exists, nil
}
