package repository

import (
	"context"
	"sort"
	"sync"

	"shop-assistant/internal/domain/entities"
)

type memoryConversation struct {
	messages     []entities.Message
	context      []byte
	interactions []entities.ProductInteraction
}

// MemoryConversationRepository keeps conversations in process memory. It backs
// local runs and tests; nothing survives a restart.
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*memoryConversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{conversations: make(map[string]*memoryConversation)}
}

func (r *MemoryConversationRepository) get(conversationID string) *memoryConversation {
	c, ok := r.conversations[conversationID]
	if !ok {
		c = &memoryConversation{}
		r.conversations[conversationID] = c
	}
	return c
}

func (r *MemoryConversationRepository) AppendMessage(_ context.Context, conversationID string, msg entities.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(conversationID)
	c.messages = append(c.messages, msg)
	return nil
}

func (r *MemoryConversationRepository) Transcript(_ context.Context, conversationID string) ([]entities.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []entities.Message{}
	if c, ok := r.conversations[conversationID]; ok {
		out = append(out, c.messages...)
	}
	return out, nil
}

func (r *MemoryConversationRepository) LoadContext(_ context.Context, conversationID string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[conversationID]
	if !ok || c.context == nil {
		return nil, false, nil
	}
	return append([]byte(nil), c.context...), true, nil
}

func (r *MemoryConversationRepository) SaveContext(_ context.Context, conversationID string, blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(conversationID).context = append([]byte(nil), blob...)
	return nil
}

func (r *MemoryConversationRepository) AppendInteraction(_ context.Context, conversationID string, interaction entities.ProductInteraction, contextBlob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(conversationID)
	c.interactions = append(c.interactions, interaction)
	c.context = append([]byte(nil), contextBlob...)
	return nil
}

func (r *MemoryConversationRepository) Interactions(_ context.Context, conversationID string) ([]entities.ProductInteraction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []entities.ProductInteraction{}
	if c, ok := r.conversations[conversationID]; ok {
		out = append(out, c.interactions...)
	}
	return out, nil
}

func (r *MemoryConversationRepository) ConversationIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conversations))
	for id := range r.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
