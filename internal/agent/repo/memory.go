package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-researcher/server/internal/agent/model"
)

// MemoryConversationRepository is a process-local ConversationRepository used
// when no Redis is configured. Stored messages are never mutated.
type MemoryConversationRepository struct {
	mu    sync.RWMutex
	convs map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{convs: map[string][]*schema.Message{}}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, conversationID string, messages ...*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conversationID] = append(r.convs[conversationID], messages...)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.convs[conversationID]
	msgs := make([]*schema.Message, len(stored))
	copy(msgs, stored)
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs[conversationID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
