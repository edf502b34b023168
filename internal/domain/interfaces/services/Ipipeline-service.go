package Iservices

import (
	"context"

	"shop-assistant/internal/domain/contextengine"
	"shop-assistant/internal/domain/entities"
)

// PipelineResult is always usable for prompt assembly, even when Process also
// returns an error.
type PipelineResult struct {
	ConversationID string
	Context        entities.ConversationContext
	Extraction     contextengine.ExtractionResult
	Prompt         []entities.PromptTurn
	Saved          bool
}

type IContextPipelineService interface {
	Process(ctx context.Context, conversationID string) (PipelineResult, error)
}
