// Package memory provides thread-safe in-memory persistence used by local
// development and the test suite. All repositories and the unit of work
// share one Store so transactional writes see a single lock.
package memory

import (
	"sync"
	"time"

	"relay-backend/domain/core/entities"
	"relay-backend/domain/core/valueobjects"
)

type userRecord struct {
	email     string
	createdAt time.Time
}

type conversationRecord struct {
	id        string
	title     string
	ctype     valueobjects.ConversationType
	metadata  string
	createdAt time.Time
	updatedAt time.Time
}

type participantRecord struct {
	conversationID string
	email          string
	joinedAt       time.Time
}

type messageRecord struct {
	id             string
	conversationID string
	senderEmail    string
	mtype          valueobjects.MessageType
	content        string
	createdAt      time.Time
	deleted        bool
}

// Store is the shared backing state. Records are plain snapshots so callers
// never hold aliases into the store; entities are reconstructed on read.
type Store struct {
	mu            sync.RWMutex
	users         map[string]userRecord
	conversations map[string]conversationRecord
	// participants is keyed conversationID then email
	participants map[string]map[string]participantRecord
	messages     map[string][]messageRecord
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:         make(map[string]userRecord),
		conversations: make(map[string]conversationRecord),
		participants:  make(map[string]map[string]participantRecord),
		messages:      make(map[string][]messageRecord),
	}
}

func snapshotConversation(conv *entities.Conversation) conversationRecord {
	return conversationRecord{
		id:        conv.ID().String(),
		title:     conv.Title(),
		ctype:     conv.Type(),
		metadata:  conv.Metadata(),
		createdAt: conv.CreatedAt(),
		updatedAt: conv.UpdatedAt(),
	}
}

func snapshotParticipant(p *entities.Participant) participantRecord {
	return participantRecord{
		conversationID: p.ConversationID().String(),
		email:          p.Email(),
		joinedAt:       p.JoinedAt(),
	}
}

func snapshotMessage(msg *entities.Message) messageRecord {
	return messageRecord{
		id:             msg.Key().ID(),
		conversationID: msg.ConversationID().String(),
		senderEmail:    msg.SenderEmail(),
		mtype:          msg.Type(),
		content:        msg.Content(),
		createdAt:      msg.CreatedAt(),
		deleted:        msg.IsDeleted(),
	}
}

func (r conversationRecord) toEntity() *entities.Conversation {
	id, _ := valueobjects.NewConversationIDFromString(r.id)
	return entities.ReconstructConversation(id, r.title, r.ctype, r.metadata, r.createdAt, r.updatedAt)
}

func (r participantRecord) toEntity() *entities.Participant {
	id, _ := valueobjects.NewConversationIDFromString(r.conversationID)
	return entities.ReconstructParticipant(id, r.email, r.joinedAt)
}

func (r messageRecord) toEntity() *entities.Message {
	key, _ := valueobjects.NewMessageKeyFrom(r.id, r.createdAt)
	id, _ := valueobjects.NewConversationIDFromString(r.conversationID)
	return entities.ReconstructMessage(key, id, r.senderEmail, r.mtype, r.content, r.deleted)
}

// keyBefore reports the chronological order of two message records, with
// the identifier breaking timestamp ties
func keyBefore(a, b messageRecord) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.id < b.id
}
