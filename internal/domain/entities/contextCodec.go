package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ContextSchemaVersion is the version written by EncodeContext.
// Version 0 is the unversioned camelCase document written by the original dashboard.
const ContextSchemaVersion = 1

var (
	ErrUnsupportedSchemaVersion = errors.New("unsupported context schema version")
	ErrInvalidContext           = errors.New("invalid conversation context")
)

type contextRecordV1 struct {
	Version int `json:"version"`
	ConversationContext
}

type legacyProductRefV0 struct {
	ID   *float64        `json:"id"`
	Name string          `json:"name"`
	OID  json.RawMessage `json:"_id,omitempty"`
}

type legacyContextV0 struct {
	OID                  json.RawMessage     `json:"_id,omitempty"`
	Topics               []string            `json:"topics"`
	KeyEntities          []string            `json:"keyEntities"`
	CustomerIntent       string              `json:"customerIntent"`
	ConversationStage    string              `json:"conversationStage"`
	UnansweredQuestions  []string            `json:"unansweredQuestions"`
	SentimentScore       *float64            `json:"sentimentScore"`
	SatisfactionStatus   string              `json:"satisfactionStatus"`
	LastMentionedProduct *legacyProductRefV0 `json:"lastMentionedProduct"`
}

// EncodeContext serializes c as a versioned document. Invalid contexts are rejected
// so an unreadable blob never reaches the store.
func EncodeContext(c ConversationContext) ([]byte, error) {
	if err := ValidateContext(c); err != nil {
		return nil, err
	}
	return json.Marshal(contextRecordV1{Version: ContextSchemaVersion, ConversationContext: c.Normalized()})
}

// DecodeContext parses a stored context document and returns it together with the
// schema version it was written with. Legacy documents are migrated in memory;
// unknown versions, unknown keys and out-of-domain values are errors.
func DecodeContext(data []byte) (ConversationContext, int, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return ConversationContext{}, 0, fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	if probe == nil {
		return ConversationContext{}, 0, fmt.Errorf("%w: document is null", ErrInvalidContext)
	}

	rawVersion, versioned := probe["version"]
	if !versioned {
		c, err := decodeLegacyV0(data)
		return c, 0, err
	}

	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return ConversationContext{}, 0, fmt.Errorf("%w: version %s", ErrUnsupportedSchemaVersion, string(rawVersion))
	}

	switch version {
	case 1:
		var record contextRecordV1
		if err := strictUnmarshal(data, &record); err != nil {
			return ConversationContext{}, version, fmt.Errorf("%w: %v", ErrInvalidContext, err)
		}
		if err := ValidateContext(record.ConversationContext); err != nil {
			return ConversationContext{}, version, err
		}
		return record.ConversationContext.Normalized(), version, nil
	default:
		return ConversationContext{}, version, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, version)
	}
}

// ValidateContext checks every enumerated field and the sentiment range.
func ValidateContext(c ConversationContext) error {
	if !c.CustomerIntent.Valid() {
		return fmt.Errorf("%w: customer intent %q", ErrInvalidContext, c.CustomerIntent)
	}
	if !c.ConversationStage.Valid() {
		return fmt.Errorf("%w: conversation stage %q", ErrInvalidContext, c.ConversationStage)
	}
	if !c.SatisfactionStatus.Valid() {
		return fmt.Errorf("%w: satisfaction status %q", ErrInvalidContext, c.SatisfactionStatus)
	}
	if !ValidSentiment(c.SentimentScore) {
		return fmt.Errorf("%w: sentiment score %v", ErrInvalidContext, c.SentimentScore)
	}
	if c.LastMentionedProduct != nil && c.LastMentionedProduct.Name == "" {
		return fmt.Errorf("%w: last mentioned product without a name", ErrInvalidContext)
	}
	return nil
}

func decodeLegacyV0(data []byte) (ConversationContext, error) {
	var legacy legacyContextV0
	if err := strictUnmarshal(data, &legacy); err != nil {
		return ConversationContext{}, fmt.Errorf("%w: legacy document: %v", ErrInvalidContext, err)
	}

	c := NewConversationContext()
	if legacy.Topics != nil {
		c.Topics = legacy.Topics
	}
	if legacy.KeyEntities != nil {
		c.KeyEntities = legacy.KeyEntities
	}
	if legacy.UnansweredQuestions != nil {
		c.UnansweredQuestions = legacy.UnansweredQuestions
	}
	if legacy.CustomerIntent != "" {
		c.CustomerIntent = CustomerIntent(legacy.CustomerIntent)
	}
	if legacy.ConversationStage != "" {
		c.ConversationStage = ConversationStage(legacy.ConversationStage)
	}
	if legacy.SatisfactionStatus != "" {
		c.SatisfactionStatus = SatisfactionStatus(legacy.SatisfactionStatus)
	}
	if legacy.SentimentScore != nil {
		c.SentimentScore = *legacy.SentimentScore
	}
	if p := legacy.LastMentionedProduct; p != nil && p.Name != "" {
		ref := &ProductRef{Name: p.Name}
		if p.ID != nil {
			if *p.ID != math.Trunc(*p.ID) {
				return ConversationContext{}, fmt.Errorf("%w: legacy product id %v is not an integer", ErrInvalidContext, *p.ID)
			}
			id := int64(*p.ID)
			ref.ID = &id
		}
		c.LastMentionedProduct = ref
	}

	if err := ValidateContext(c); err != nil {
		return ConversationContext{}, err
	}
	return c, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
