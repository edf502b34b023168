package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/domain/entities"
)

// fakeDynamo applies the update expressions the repository issues to an
// in-memory table keyed by conversation_id.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]dynamodbtypes.AttributeValue
	updates []*dynamodb.UpdateItemInput
	failGet    error
	failUpdate error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]dynamodbtypes.AttributeValue{}}
}

func keyOf(key map[string]dynamodbtypes.AttributeValue) string {
	return key["conversation_id"].(*dynamodbtypes.AttributeValueMemberS).Value
}

func appendList(item map[string]dynamodbtypes.AttributeValue, attr string, v dynamodbtypes.AttributeValue) {
	existing, _ := item[attr].(*dynamodbtypes.AttributeValueMemberL)
	var values []dynamodbtypes.AttributeValue
	if existing != nil {
		values = append(values, existing.Value...)
	}
	values = append(values, v.(*dynamodbtypes.AttributeValueMemberL).Value...)
	item[attr] = &dynamodbtypes.AttributeValueMemberL{Value: values}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	item, ok := f.items[keyOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	out := make(map[string]dynamodbtypes.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return &dynamodb.GetItemOutput{Item: out}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}

	id := keyOf(in.Key)
	item, ok := f.items[id]
	if !ok {
		item = map[string]dynamodbtypes.AttributeValue{"conversation_id": in.Key["conversation_id"]}
		f.items[id] = item
	}
	for placeholder, v := range in.ExpressionAttributeValues {
		switch placeholder {
		case ":msg":
			appendList(item, "messages", v)
		case ":interaction":
			appendList(item, "interactions", v)
		case ":ctx":
			item["context"] = v
		case ":now":
			item["updated_at"] = v
		}
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	out := &dynamodb.ScanOutput{}
	for _, id := range ids {
		out.Items = append(out.Items, map[string]dynamodbtypes.AttributeValue{
			"conversation_id": &dynamodbtypes.AttributeValueMemberS{Value: id},
		})
	}
	return out, nil
}

func TestDynamoConversationRepository_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) conversationStore {
		return NewDynamoConversationRepository(newFakeDynamo(), "conversations")
	})
}

func TestDynamoConversationRepository_InteractionIsOneUpdate(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoConversationRepository(fake, "conversations")

	err := repo.AppendInteraction(context.Background(), "conv-1",
		entities.ProductInteraction{ID: "i-1", ProductID: 42, ProductName: "Blue Sofa", Action: entities.ActionViewed},
		[]byte(`{"version":1}`))
	require.NoError(t, err)

	require.Len(t, fake.updates, 1)
	update := fake.updates[0]
	assert.Equal(t, "conversations", *update.TableName)
	assert.Contains(t, *update.UpdateExpression, "list_append(if_not_exists(#interactions, :empty), :interaction)")
	assert.Contains(t, *update.UpdateExpression, "#ctx = :ctx")
	assert.Equal(t, "context", update.ExpressionAttributeNames["#ctx"])
}

func TestDynamoConversationRepository_ReadErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.failGet = errors.New("throttled")
	repo := NewDynamoConversationRepository(fake, "conversations")

	_, _, err := repo.LoadContext(context.Background(), "conv-1")
	assert.ErrorContains(t, err, "throttled")

	_, err = repo.Transcript(context.Background(), "conv-1")
	assert.ErrorContains(t, err, "load transcript of conv-1")
}

func TestDynamoConversationRepository_ItemSizeLimit(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoConversationRepository(fake, "conversations")

	fake.failUpdate = &smithy.GenericAPIError{Code: "ValidationException", Message: "Item size has exceeded the maximum allowed size"}
	err := repo.AppendMessage(context.Background(), "conv-1", entities.Message{Role: entities.RoleCustomer, Content: "Hi"})
	assert.ErrorIs(t, err, ErrItemTooLarge)
	assert.ErrorContains(t, err, "append message to conv-1")

	err = repo.SaveContext(context.Background(), "conv-1", []byte(`{"version":1}`))
	assert.ErrorIs(t, err, ErrItemTooLarge)

	fake.failUpdate = &smithy.GenericAPIError{Code: "ValidationException", Message: "Invalid UpdateExpression"}
	err = repo.AppendMessage(context.Background(), "conv-1", entities.Message{Role: entities.RoleCustomer, Content: "Hi"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrItemTooLarge)
}
