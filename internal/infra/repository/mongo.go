package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shop-assistant/internal/domain/entities"
)

const ConversationsCollection = "conversations"

// conversationDocument is the shape of one record in the conversations collection.
// The context is kept as a native sub-document so it stays queryable.
type conversationDocument struct {
	ConversationID string                        `bson:"conversation_id"`
	Messages       []entities.Message            `bson:"messages,omitempty"`
	Context        bson.Raw                      `bson:"context,omitempty"`
	Interactions   []entities.ProductInteraction `bson:"interactions,omitempty"`
}

type MongoConversationRepository struct {
	mongo *mongo.Database
	now   func() time.Time
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{mongo: db, now: time.Now}
}

func (r *MongoConversationRepository) collection() *mongo.Collection {
	return r.mongo.Collection(ConversationsCollection)
}

// upsert applies update to the conversation's document, creating it if needed.
func (r *MongoConversationRepository) upsert(ctx context.Context, conversationID string, update bson.M) error {
	now := r.now().UTC()
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = now
	update["$set"] = set
	update["$setOnInsert"] = bson.M{"created_at": now}

	filter := bson.M{"conversation_id": conversationID}
	_, err := r.collection().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoConversationRepository) findProjected(ctx context.Context, conversationID string, field string) (conversationDocument, bool, error) {
	var doc conversationDocument
	filter := bson.M{"conversation_id": conversationID}
	opts := options.FindOne().SetProjection(bson.M{field: 1, "conversation_id": 1})
	err := r.collection().FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return conversationDocument{}, false, nil
	}
	if err != nil {
		return conversationDocument{}, false, err
	}
	return doc, true, nil
}

func (r *MongoConversationRepository) AppendMessage(ctx context.Context, conversationID string, msg entities.Message) error {
	if err := r.upsert(ctx, conversationID, bson.M{"$push": bson.M{"messages": msg}}); err != nil {
		return fmt.Errorf("append message to %s: %w", conversationID, err)
	}
	return nil
}

func (r *MongoConversationRepository) Transcript(ctx context.Context, conversationID string) ([]entities.Message, error) {
	doc, _, err := r.findProjected(ctx, conversationID, "messages")
	if err != nil {
		return nil, fmt.Errorf("load transcript of %s: %w", conversationID, err)
	}
	if doc.Messages == nil {
		return []entities.Message{}, nil
	}
	return doc.Messages, nil
}

// LoadContext returns the stored sub-document rendered as relaxed extended JSON,
// which for context documents is plain JSON.
func (r *MongoConversationRepository) LoadContext(ctx context.Context, conversationID string) ([]byte, bool, error) {
	doc, found, err := r.findProjected(ctx, conversationID, "context")
	if err != nil {
		return nil, false, fmt.Errorf("load context of %s: %w", conversationID, err)
	}
	if !found || len(doc.Context) == 0 {
		return nil, false, nil
	}
	blob, err := bson.MarshalExtJSON(doc.Context, false, false)
	if err != nil {
		return nil, false, fmt.Errorf("render context of %s: %w", conversationID, err)
	}
	return blob, true, nil
}

func (r *MongoConversationRepository) SaveContext(ctx context.Context, conversationID string, blob []byte) error {
	doc, err := contextDocument(blob)
	if err != nil {
		return err
	}
	if err := r.upsert(ctx, conversationID, bson.M{"$set": bson.M{"context": doc}}); err != nil {
		return fmt.Errorf("save context of %s: %w", conversationID, err)
	}
	return nil
}

func (r *MongoConversationRepository) AppendInteraction(ctx context.Context, conversationID string, interaction entities.ProductInteraction, contextBlob []byte) error {
	doc, err := contextDocument(contextBlob)
	if err != nil {
		return err
	}
	update := bson.M{
		"$push": bson.M{"interactions": interaction},
		"$set":  bson.M{"context": doc},
	}
	if err := r.upsert(ctx, conversationID, update); err != nil {
		return fmt.Errorf("append interaction to %s: %w", conversationID, err)
	}
	return nil
}

func (r *MongoConversationRepository) Interactions(ctx context.Context, conversationID string) ([]entities.ProductInteraction, error) {
	doc, _, err := r.findProjected(ctx, conversationID, "interactions")
	if err != nil {
		return nil, fmt.Errorf("load interactions of %s: %w", conversationID, err)
	}
	if doc.Interactions == nil {
		return []entities.ProductInteraction{}, nil
	}
	return doc.Interactions, nil
}

func (r *MongoConversationRepository) ConversationIDs(ctx context.Context) ([]string, error) {
	values, err := r.collection().Distinct(ctx, "conversation_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func contextDocument(blob []byte) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(blob, false, &doc); err != nil {
		return nil, fmt.Errorf("convert context to BSON: %w", err)
	}
	return doc, nil
}
