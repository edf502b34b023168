package contextengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"shop-assistant/internal/domain/dto"
	"shop-assistant/internal/domain/entities"
)

// FailureKind explains why an extraction left the context unchanged.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureTransport     FailureKind = "transport"
	FailureMalformed     FailureKind = "malformed"
	FailureMissingFields FailureKind = "missing_fields"
)

// Outcome distinguishes a fresh candidate from a no-op extraction.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// ExtractionResult is what one extraction cycle produced. An unchanged result
// with FailureNone means there was nothing to analyze.
type ExtractionResult struct {
	Outcome   Outcome
	Candidate dto.ContextCandidate
	Failure   FailureKind
	Err       error
}

func Updated(candidate dto.ContextCandidate) ExtractionResult {
	return ExtractionResult{Outcome: OutcomeUpdated, Candidate: candidate}
}

func Unchanged(kind FailureKind, err error) ExtractionResult {
	return ExtractionResult{Outcome: OutcomeUnchanged, Failure: kind, Err: err}
}

func (r ExtractionResult) IsUpdated() bool { return r.Outcome == OutcomeUpdated }

func (r ExtractionResult) Failed() bool { return r.Failure != FailureNone }

// Label is the short name used in logs, metrics and API responses.
func (r ExtractionResult) Label() string {
	if r.IsUpdated() {
		return string(OutcomeUpdated)
	}
	if r.Failed() {
		return string(r.Failure)
	}
	return "no_transcript"
}

// Response keys the extraction model must produce.
const (
	keyTopics               = "topics"
	keyKeyEntities          = "keyEntities"
	keyCustomerIntent       = "customerIntent"
	keyConversationStage    = "conversationStage"
	keyUnansweredQuestions  = "unansweredQuestions"
	keySentimentScore       = "sentimentScore"
	keySatisfactionStatus   = "satisfactionStatus"
	keyLastMentionedProduct = "lastMentionedProduct"
)

var requiredKeys = []string{
	keyTopics,
	keyKeyEntities,
	keyCustomerIntent,
	keyConversationStage,
	keyUnansweredQuestions,
	keySentimentScore,
	keySatisfactionStatus,
}

var (
	ErrMalformedResponse = errors.New("extraction response is not a JSON object")
	ErrMissingFields     = errors.New("extraction response is missing fields")
)

// CandidateSchema describes the JSON object the extraction call must return.
func CandidateSchema() *dto.ResponseSchema {
	stringList := func(desc string) *dto.ResponseSchema {
		return &dto.ResponseSchema{Type: dto.SchemaArray, Description: desc, Items: &dto.ResponseSchema{Type: dto.SchemaString}}
	}
	return &dto.ResponseSchema{
		Type: dto.SchemaObject,
		Properties: map[string]*dto.ResponseSchema{
			keyTopics:              stringList("Short topics discussed in the conversation."),
			keyKeyEntities:         stringList("Product, category and brand names mentioned."),
			keyCustomerIntent:      {Type: dto.SchemaString, Enum: enumStrings(entities.CustomerIntents)},
			keyConversationStage:   {Type: dto.SchemaString, Enum: enumStrings(entities.ConversationStages)},
			keyUnansweredQuestions: stringList("Customer questions that have not been answered yet."),
			keySentimentScore:      {Type: dto.SchemaNumber, Description: "Customer sentiment from -1.0 (very negative) to 1.0 (very positive)."},
			keySatisfactionStatus:  {Type: dto.SchemaString, Enum: enumStrings(entities.SatisfactionStatuses)},
			keyLastMentionedProduct: {
				Type:     dto.SchemaObject,
				Nullable: true,
				Properties: map[string]*dto.ResponseSchema{
					"id":   {Type: dto.SchemaInteger, Nullable: true},
					"name": {Type: dto.SchemaString},
				},
				Required: []string{"name"},
			},
		},
		Required: append([]string(nil), requiredKeys...),
	}
}

// BuildExtractionInstruction restates the previous context as working memory,
// supplies the full transcript and pins down the response shape.
func BuildExtractionInstruction(prev entities.ConversationContext, transcript []entities.Message) string {
	memory, err := json.MarshalIndent(modelView(prev), "", "  ")
	if err != nil {
		memory = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("You analyze customer support conversations for an online store.\n\n")
	b.WriteString("Current understanding of the conversation (your working memory):\n")
	b.Write(memory)
	b.WriteString("\n\nFull conversation transcript:\n")
	for _, msg := range transcript {
		speaker := "Customer"
		if msg.Role.PromptRole() == entities.PromptRoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
	}
	b.WriteString("\nUpdate your understanding using the whole transcript and respond with only a JSON object with exactly these fields:\n")
	fmt.Fprintf(&b, "- %q: array of short topic strings discussed so far\n", keyTopics)
	fmt.Fprintf(&b, "- %q: array of product, category or brand names mentioned\n", keyKeyEntities)
	fmt.Fprintf(&b, "- %q: one of %s\n", keyCustomerIntent, strings.Join(enumStrings(entities.CustomerIntents), ", "))
	fmt.Fprintf(&b, "- %q: one of %s\n", keyConversationStage, strings.Join(enumStrings(entities.ConversationStages), ", "))
	fmt.Fprintf(&b, "- %q: array of customer questions still unanswered (empty array if all are answered)\n", keyUnansweredQuestions)
	fmt.Fprintf(&b, "- %q: number from -1.0 (very negative) to 1.0 (very positive)\n", keySentimentScore)
	fmt.Fprintf(&b, "- %q: one of %s\n", keySatisfactionStatus, strings.Join(enumStrings(entities.SatisfactionStatuses), ", "))
	fmt.Fprintf(&b, "- %q: {\"id\": number or null, \"name\": string} for the product discussed most recently, or null\n", keyLastMentionedProduct)
	return b.String()
}

// ParseCandidate turns the raw model response into a candidate. The response as a
// whole must be a JSON object carrying every required key; individual values of
// the wrong type are dropped so the merger keeps the previous value for them.
func ParseCandidate(raw string) (dto.ContextCandidate, FailureKind, error) {
	body := extractJSONObject(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil || fields == nil {
		return dto.ContextCandidate{}, FailureMalformed, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(raw, 200))
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return dto.ContextCandidate{}, FailureMissingFields, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	var candidate dto.ContextCandidate
	candidate.Topics = decodeStrings(fields[keyTopics])
	candidate.KeyEntities = decodeStrings(fields[keyKeyEntities])
	candidate.CustomerIntent = decodeString(fields[keyCustomerIntent])
	candidate.ConversationStage = decodeString(fields[keyConversationStage])
	candidate.SatisfactionStatus = decodeString(fields[keySatisfactionStatus])

	if questions := decodeStrings(fields[keyUnansweredQuestions]); questions != nil {
		candidate.UnansweredQuestions = &questions
	}

	var score float64
	if err := json.Unmarshal(fields[keySentimentScore], &score); err == nil && !isNull(fields[keySentimentScore]) {
		candidate.SentimentScore = &score
	}

	if rawProduct, ok := fields[keyLastMentionedProduct]; ok {
		candidate.LastMentionedProduct = decodeProduct(rawProduct)
	}

	return candidate, FailureNone, nil
}

type modelContext struct {
	Topics               []string             `json:"topics"`
	KeyEntities          []string             `json:"keyEntities"`
	CustomerIntent       string               `json:"customerIntent"`
	ConversationStage    string               `json:"conversationStage"`
	UnansweredQuestions  []string             `json:"unansweredQuestions"`
	SentimentScore       float64              `json:"sentimentScore"`
	SatisfactionStatus   string               `json:"satisfactionStatus"`
	LastMentionedProduct *entities.ProductRef `json:"lastMentionedProduct"`
}

func modelView(c entities.ConversationContext) modelContext {
	c = c.Normalized()
	return modelContext{
		Topics:               c.Topics,
		KeyEntities:          c.KeyEntities,
		CustomerIntent:       string(c.CustomerIntent),
		ConversationStage:    string(c.ConversationStage),
		UnansweredQuestions:  c.UnansweredQuestions,
		SentimentScore:       c.SentimentScore,
		SatisfactionStatus:   string(c.SatisfactionStatus),
		LastMentionedProduct: c.LastMentionedProduct,
	}
}

// extractJSONObject strips markdown fences and any prose around the outermost object.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func decodeStrings(raw json.RawMessage) []string {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decodeProduct(raw json.RawMessage) *entities.ProductRef {
	if isNull(raw) {
		return nil
	}
	var p struct {
		ID   *float64 `json:"id"`
		Name string   `json:"name"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || strings.TrimSpace(p.Name) == "" {
		return nil
	}
	ref := &entities.ProductRef{Name: strings.TrimSpace(p.Name)}
	if p.ID != nil && *p.ID == math.Trunc(*p.ID) && !math.IsInf(*p.ID, 0) {
		id := int64(*p.ID)
		ref.ID = &id
	}
	return ref
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
