package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"shop-assistant/internal/domain/entities"
)

// ErrItemTooLarge means a write would grow the conversation item past the
// 400 KB DynamoDB item limit. Transcript, context and interaction log share one item.
var ErrItemTooLarge = errors.New("conversation item exceeds the DynamoDB item size limit")

// DynamoAPI is the part of *dynamodb.Client the repository needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// dynamoConversationItem is one conversation; the table's partition key is conversation_id.
type dynamoConversationItem struct {
	ConversationID string                        `dynamodbav:"conversation_id"`
	Messages       []entities.Message            `dynamodbav:"messages,omitempty"`
	Context        string                        `dynamodbav:"context,omitempty"`
	Interactions   []entities.ProductInteraction `dynamodbav:"interactions,omitempty"`
	UpdatedAt      string                        `dynamodbav:"updated_at,omitempty"`
}

var dynamoNames = map[string]string{
	"#messages":     "messages",
	"#ctx":          "context",
	"#interactions": "interactions",
	"#updated":      "updated_at",
}

type DynamoConversationRepository struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

func NewDynamoConversationRepository(client DynamoAPI, tableName string) *DynamoConversationRepository {
	return &DynamoConversationRepository{client: client, tableName: tableName, now: time.Now}
}

func (r *DynamoConversationRepository) key(conversationID string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"conversation_id": &dynamodbtypes.AttributeValueMemberS{Value: conversationID},
	}
}

func (r *DynamoConversationRepository) names(keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = dynamoNames[k]
	}
	return out
}

func (r *DynamoConversationRepository) update(ctx context.Context, conversationID, expression string, names []string, values map[string]dynamodbtypes.AttributeValue) error {
	values[":now"] = &dynamodbtypes.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       r.key(conversationID),
		UpdateExpression:          aws.String(expression + ", #updated = :now"),
		ExpressionAttributeNames:  r.names(append(names, "#updated")...),
		ExpressionAttributeValues: values,
	})
	return itemSizeError(err)
}

func itemSizeError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" &&
		strings.Contains(apiErr.ErrorMessage(), "Item size") {
		return fmt.Errorf("%w: %w", ErrItemTooLarge, err)
	}
	return err
}

func (r *DynamoConversationRepository) get(ctx context.Context, conversationID string, name string) (dynamoConversationItem, bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      r.key(conversationID),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String(name),
		ExpressionAttributeNames: r.names(name),
	})
	if err != nil {
		return dynamoConversationItem{}, false, err
	}
	if result.Item == nil {
		return dynamoConversationItem{}, false, nil
	}
	var item dynamoConversationItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return dynamoConversationItem{}, false, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return item, true, nil
}

func emptyList() dynamodbtypes.AttributeValue {
	return &dynamodbtypes.AttributeValueMemberL{Value: []dynamodbtypes.AttributeValue{}}
}

func (r *DynamoConversationRepository) AppendMessage(ctx context.Context, conversationID string, msg entities.Message) error {
	av, err := attributevalue.Marshal([]entities.Message{msg})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	err = r.update(ctx, conversationID,
		"SET #messages = list_append(if_not_exists(#messages, :empty), :msg)",
		[]string{"#messages"},
		map[string]dynamodbtypes.AttributeValue{":msg": av, ":empty": emptyList()})
	if err != nil {
		return fmt.Errorf("append message to %s: %w", conversationID, err)
	}
	return nil
}

func (r *DynamoConversationRepository) Transcript(ctx context.Context, conversationID string) ([]entities.Message, error) {
	item, _, err := r.get(ctx, conversationID, "#messages")
	if err != nil {
		return nil, fmt.Errorf("load transcript of %s: %w", conversationID, err)
	}
	if item.Messages == nil {
		return []entities.Message{}, nil
	}
	return item.Messages, nil
}

func (r *DynamoConversationRepository) LoadContext(ctx context.Context, conversationID string) ([]byte, bool, error) {
	item, found, err := r.get(ctx, conversationID, "#ctx")
	if err != nil {
		return nil, false, fmt.Errorf("load context of %s: %w", conversationID, err)
	}
	if !found || item.Context == "" {
		return nil, false, nil
	}
	return []byte(item.Context), true, nil
}

func (r *DynamoConversationRepository) SaveContext(ctx context.Context, conversationID string, blob []byte) error {
	err := r.update(ctx, conversationID, "SET #ctx = :ctx", []string{"#ctx"},
		map[string]dynamodbtypes.AttributeValue{":ctx": &dynamodbtypes.AttributeValueMemberS{Value: string(blob)}})
	if err != nil {
		return fmt.Errorf("save context of %s: %w", conversationID, err)
	}
	return nil
}

func (r *DynamoConversationRepository) AppendInteraction(ctx context.Context, conversationID string, interaction entities.ProductInteraction, contextBlob []byte) error {
	av, err := attributevalue.Marshal([]entities.ProductInteraction{interaction})
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}
	err = r.update(ctx, conversationID,
		"SET #interactions = list_append(if_not_exists(#interactions, :empty), :interaction), #ctx = :ctx",
		[]string{"#interactions", "#ctx"},
		map[string]dynamodbtypes.AttributeValue{
			":interaction": av,
			":empty":       emptyList(),
			":ctx":         &dynamodbtypes.AttributeValueMemberS{Value: string(contextBlob)},
		})
	if err != nil {
		return fmt.Errorf("append interaction to %s: %w", conversationID, err)
	}
	return nil
}

func (r *DynamoConversationRepository) Interactions(ctx context.Context, conversationID string) ([]entities.ProductInteraction, error) {
	item, _, err := r.get(ctx, conversationID, "#interactions")
	if err != nil {
		return nil, fmt.Errorf("load interactions of %s: %w", conversationID, err)
	}
	if item.Interactions == nil {
		return []entities.ProductInteraction{}, nil
	}
	return item.Interactions, nil
}

func (r *DynamoConversationRepository) ConversationIDs(ctx context.Context) ([]string, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("conversation_id"),
	})

	ids := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		for _, raw := range page.Items {
			var item dynamoConversationItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conversation id: %w", err)
			}
			ids = append(ids, item.ConversationID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
