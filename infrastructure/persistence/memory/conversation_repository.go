package memory

import (
	"context"
	"sort"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	apperrors "relay-backend/pkg/errors"
)

// ConversationRepository is the in-memory implementation of
// ports.ConversationRepository
type ConversationRepository struct {
	store *Store
}

// NewConversationRepository creates a conversation repository backed by the store
func NewConversationRepository(store *Store) ports.ConversationRepository {
	return &ConversationRepository{store: store}
}

// GetByID retrieves a conversation by its identifier
func (r *ConversationRepository) GetByID(ctx context.Context, id valueobjects.ConversationID) (*entities.Conversation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.conversations[id.String()]
	if !ok {
		return nil, apperrors.NewNotFound("conversation not found: " + id.String())
	}
	return rec.toEntity(), nil
}

// ListByParticipant returns the user's conversations ordered by
// last-activity timestamp descending. Conversation ID breaks timestamp
// ties so the order is stable.
func (r *ConversationRepository) ListByParticipant(ctx context.Context, email string) ([]*entities.Conversation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records := make([]conversationRecord, 0)
	for convID, members := range r.store.participants {
		if _, ok := members[email]; !ok {
			continue
		}
		if rec, ok := r.store.conversations[convID]; ok {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].updatedAt.Equal(records[j].updatedAt) {
			return records[i].updatedAt.After(records[j].updatedAt)
		}
		return records[i].id < records[j].id
	})

	out := make([]*entities.Conversation, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toEntity())
	}
	return out, nil
}
