package Iservices

import (
	"context"

	"shop-assistant/internal/domain/entities"
)

// IContextStoreService loads and saves the per-conversation context.
type IContextStoreService interface {
	// Load returns the stored context, or defaults when none was saved yet.
	Load(ctx context.Context, conversationID string) (entities.ConversationContext, error)
	// LoadVersioned also reports the schema version the blob was written with and
	// whether a blob exists at all.
	LoadVersioned(ctx context.Context, conversationID string) (c entities.ConversationContext, version int, found bool, err error)
	Save(ctx context.Context, conversationID string, c entities.ConversationContext) error
}
