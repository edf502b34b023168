package Iservices

import (
	"context"

	"shop-assistant/internal/domain/contextengine"
	"shop-assistant/internal/domain/entities"
)

type IExtractorService interface {
	Extract(ctx context.Context, conversationID string, prev entities.ConversationContext, transcript []entities.Message) contextengine.ExtractionResult
}
