package Iservices

import (
	"context"

	"shop-assistant/internal/domain/dto"
	"shop-assistant/internal/domain/entities"
)

// ITextGenerationProvider is the text-generation service behind extraction and replies.
type ITextGenerationProvider interface {
	Name() string
	// GenerateStructured makes a single call that forces a JSON object shaped by schema
	// and returns the raw text of the response.
	GenerateStructured(ctx context.Context, instruction string, schema *dto.ResponseSchema) (string, error)
	// Chat returns the reply for an assembled turn list.
	Chat(ctx context.Context, turns []entities.PromptTurn) (string, error)
}
