package dto

import "shop-assistant/internal/domain/entities"

// ContextCandidate is the partial context proposed by one extraction call.
// Empty strings and nil pointers mean the model did not provide that field.
type ContextCandidate struct {
	Topics               []string
	KeyEntities          []string
	CustomerIntent       string
	ConversationStage    string
	UnansweredQuestions  *[]string
	SentimentScore       *float64
	SatisfactionStatus   string
	LastMentionedProduct *entities.ProductRef
}

// ResponseSchema is a provider-neutral description of a JSON response shape.
type ResponseSchema struct {
	Type        string                     `json:"type"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]*ResponseSchema `json:"properties,omitempty"`
	Items       *ResponseSchema            `json:"items,omitempty"`
	Enum        []string                   `json:"enum,omitempty"`
	Required    []string                   `json:"required,omitempty"`
	Nullable    bool                       `json:"-"`
}

const (
	SchemaObject  = "object"
	SchemaArray   = "array"
	SchemaString  = "string"
	SchemaNumber  = "number"
	SchemaInteger = "integer"
)
