package repository

import (
	"context"

	"shop-assistant/internal/domain/entities"
)

// ConversationRepository persists everything owned by a conversation record:
// the ordered transcript, the opaque context blob and the interaction log.
// Each method touches exactly one conversation and is atomic for it.
type ConversationRepository interface {
	AppendMessage(ctx context.Context, conversationID string, msg entities.Message) error
	// Transcript returns the messages in the order they were appended. Unknown
	// conversations have an empty transcript.
	Transcript(ctx context.Context, conversationID string) ([]entities.Message, error)

	// LoadContext returns the stored blob; found is false when none was saved yet.
	LoadContext(ctx context.Context, conversationID string) (blob []byte, found bool, err error)
	SaveContext(ctx context.Context, conversationID string, blob []byte) error

	// AppendInteraction appends interaction and replaces the context blob in one write.
	AppendInteraction(ctx context.Context, conversationID string, interaction entities.ProductInteraction, contextBlob []byte) error
	Interactions(ctx context.Context, conversationID string) ([]entities.ProductInteraction, error)

	// ConversationIDs lists every known conversation in ascending order.
	ConversationIDs(ctx context.Context) ([]string, error)
}
