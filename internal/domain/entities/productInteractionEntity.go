package entities

import "time"

type InteractionAction string

const (
	ActionViewed      InteractionAction = "viewed"
	ActionAddedToCart InteractionAction = "addedToCart"
	ActionPurchased   InteractionAction = "purchased"
)

func (a InteractionAction) Valid() bool {
	switch a {
	case ActionViewed, ActionAddedToCart, ActionPurchased:
		return true
	}
	return false
}

// ProductInteraction is an append-only record of a storefront or chat product touch.
type ProductInteraction struct {
	ID          string            `json:"id" bson:"id" dynamodbav:"id"`
	ProductID   int64             `json:"product_id" bson:"product_id" dynamodbav:"product_id"`
	ProductName string            `json:"product_name" bson:"product_name" dynamodbav:"product_name"`
	Action      InteractionAction `json:"action" bson:"action" dynamodbav:"action"`
	Timestamp   time.Time         `json:"timestamp" bson:"timestamp" dynamodbav:"timestamp"`
}
