package Iservices

import (
	"context"

	"shop-assistant/internal/domain/entities"
)

type IInteractionService interface {
	Record(ctx context.Context, conversationID string, productID int64, productName string, action entities.InteractionAction) (entities.ProductInteraction, error)
	List(ctx context.Context, conversationID string) ([]entities.ProductInteraction, error)
}
