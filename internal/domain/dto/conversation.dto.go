package dto

import "shop-assistant/internal/domain/entities"

type PostMessageRequest struct {
	Content string `json:"content"`
}

type ExtractionSummary struct {
	Updated bool   `json:"updated"`
	Reason  string `json:"reason,omitempty"`
}

type PostMessageResponse struct {
	ConversationID string                       `json:"conversation_id"`
	Reply          string                       `json:"reply"`
	Context        entities.ConversationContext `json:"context"`
	Extraction     ExtractionSummary            `json:"extraction"`
	ContextSaved   bool                         `json:"context_saved"`
}

type ContextResponse struct {
	ConversationID string                       `json:"conversation_id"`
	Context        entities.ConversationContext `json:"context"`
}

type PostInteractionRequest struct {
	ProductID   int64                      `json:"productId"`
	ProductName string                     `json:"productName"`
	Action      entities.InteractionAction `json:"action"`
}

type PostInteractionResponse struct {
	Recorded    bool                         `json:"recorded"`
	Interaction *entities.ProductInteraction `json:"interaction,omitempty"`
}

type InteractionsResponse struct {
	ConversationID string                        `json:"conversation_id"`
	Interactions   []entities.ProductInteraction `json:"interactions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
