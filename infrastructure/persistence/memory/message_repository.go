package memory

import (
	"context"
	"sort"

	"relay-backend/application/ports"
	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
	apperrors "relay-backend/pkg/errors"
)

// MessageRepository is the in-memory implementation of ports.MessageRepository
type MessageRepository struct {
	store *Store
}

// NewMessageRepository creates a message repository backed by the store
func NewMessageRepository(store *Store) ports.MessageRepository {
	return &MessageRepository{store: store}
}

// visibleDescending returns non-deleted records newest first
func (r *MessageRepository) visibleDescending(conversationID string) []messageRecord {
	records := make([]messageRecord, 0)
	for _, rec := range r.store.messages[conversationID] {
		if rec.deleted {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return keyBefore(records[j], records[i])
	})
	return records
}

// Page returns one zero-based page, newest first
func (r *MessageRepository) Page(ctx context.Context, id valueobjects.ConversationID, page, size int) ([]*entities.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records := r.visibleDescending(id.String())

	start := page * size
	if start >= len(records) {
		return []*entities.Message{}, nil
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}

	out := make([]*entities.Message, 0, end-start)
	for _, rec := range records[start:end] {
		out = append(out, rec.toEntity())
	}
	return out, nil
}

// History returns the full visible sequence, newest first
func (r *MessageRepository) History(ctx context.Context, id valueobjects.ConversationID) ([]*entities.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records := r.visibleDescending(id.String())
	out := make([]*entities.Message, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toEntity())
	}
	return out, nil
}

// Get retrieves one message by its composite key, deleted rows included
func (r *MessageRepository) Get(ctx context.Context, id valueobjects.ConversationID, key valueobjects.MessageKey) (*entities.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, rec := range r.store.messages[id.String()] {
		if rec.id == key.ID() && rec.createdAt.Equal(key.CreatedAt()) {
			return rec.toEntity(), nil
		}
	}
	return nil, apperrors.NewNotFound("message not found: " + key.ID())
}

// MarkDeleted sets the soft-delete flag in place; the row stays
func (r *MessageRepository) MarkDeleted(ctx context.Context, id valueobjects.ConversationID, key valueobjects.MessageKey) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	records := r.store.messages[id.String()]
	for i, rec := range records {
		if rec.id == key.ID() && rec.createdAt.Equal(key.CreatedAt()) {
			records[i].deleted = true
			return nil
		}
	}
	return apperrors.NewNotFound("message not found: " + key.ID())
}
