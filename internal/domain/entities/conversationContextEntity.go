package entities

import "math"

type CustomerIntent string

const (
	IntentGeneralInquiry   CustomerIntent = "general_inquiry"
	IntentProductQuestion  CustomerIntent = "product_question"
	IntentOrderStatus      CustomerIntent = "order_status"
	IntentTechnicalSupport CustomerIntent = "technical_support"
	IntentComplaint        CustomerIntent = "complaint"
	IntentCheckoutHelp     CustomerIntent = "checkout_help"
)

// CustomerIntents lists every intent in declaration order.
var CustomerIntents = []CustomerIntent{
	IntentGeneralInquiry,
	IntentProductQuestion,
	IntentOrderStatus,
	IntentTechnicalSupport,
	IntentComplaint,
	IntentCheckoutHelp,
}

func (i CustomerIntent) Valid() bool {
	for _, known := range CustomerIntents {
		if i == known {
			return true
		}
	}
	return false
}

type ConversationStage string

const (
	StageGreeting             ConversationStage = "greeting"
	StageInformationGathering ConversationStage = "information_gathering"
	StageProblemSolving       ConversationStage = "problem_solving"
	StageRecommendation       ConversationStage = "recommendation"
	StageCheckout             ConversationStage = "checkout"
	StageClosing              ConversationStage = "closing"
)

// ConversationStages lists every stage in the usual order of a conversation.
var ConversationStages = []ConversationStage{
	StageGreeting,
	StageInformationGathering,
	StageProblemSolving,
	StageRecommendation,
	StageCheckout,
	StageClosing,
}

func (s ConversationStage) Valid() bool {
	for _, known := range ConversationStages {
		if s == known {
			return true
		}
	}
	return false
}

type SatisfactionStatus string

const (
	SatisfactionUnknown      SatisfactionStatus = "unknown"
	SatisfactionDissatisfied SatisfactionStatus = "dissatisfied"
	SatisfactionNeutral      SatisfactionStatus = "neutral"
	SatisfactionSatisfied    SatisfactionStatus = "satisfied"
)

var SatisfactionStatuses = []SatisfactionStatus{
	SatisfactionUnknown,
	SatisfactionDissatisfied,
	SatisfactionNeutral,
	SatisfactionSatisfied,
}

func (s SatisfactionStatus) Valid() bool {
	for _, known := range SatisfactionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

const (
	MinSentimentScore = -1.0
	MaxSentimentScore = 1.0
)

// ValidSentiment reports whether score is a finite number inside [-1, 1].
func ValidSentiment(score float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return score >= MinSentimentScore && score <= MaxSentimentScore
}

// ProductRef is a weak reference to a catalog product: identity only.
type ProductRef struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name"`
}

func (p *ProductRef) Clone() *ProductRef {
	if p == nil {
		return nil
	}
	out := &ProductRef{Name: p.Name}
	if p.ID != nil {
		id := *p.ID
		out.ID = &id
	}
	return out
}

// ConversationContext is the engine's structured understanding of one conversation.
type ConversationContext struct {
	Topics               []string           `json:"topics"`
	KeyEntities          []string           `json:"key_entities"`
	CustomerIntent       CustomerIntent     `json:"customer_intent"`
	ConversationStage    ConversationStage  `json:"conversation_stage"`
	UnansweredQuestions  []string           `json:"unanswered_questions"`
	SentimentScore       float64            `json:"sentiment_score"`
	SatisfactionStatus   SatisfactionStatus `json:"satisfaction_status"`
	LastMentionedProduct *ProductRef        `json:"last_mentioned_product,omitempty"`
}

// NewConversationContext returns the context a conversation starts with the
// first time it is analyzed.
func NewConversationContext() ConversationContext {
	return ConversationContext{
		Topics:              []string{},
		KeyEntities:         []string{},
		CustomerIntent:      IntentGeneralInquiry,
		ConversationStage:   StageGreeting,
		UnansweredQuestions: []string{},
		SentimentScore:      0,
		SatisfactionStatus:  SatisfactionUnknown,
	}
}

// Clone returns a deep copy so callers never share slices with a stored snapshot.
func (c ConversationContext) Clone() ConversationContext {
	out := c
	out.Topics = cloneStrings(c.Topics)
	out.KeyEntities = cloneStrings(c.KeyEntities)
	out.UnansweredQuestions = cloneStrings(c.UnansweredQuestions)
	out.LastMentionedProduct = c.LastMentionedProduct.Clone()
	return out
}

// Normalized fills unset or invalid scalar fields with their defaults and
// clamps the sentiment score. Valid contexts come back unchanged.
func (c ConversationContext) Normalized() ConversationContext {
	out := c.Clone()
	if out.Topics == nil {
		out.Topics = []string{}
	}
	if out.KeyEntities == nil {
		out.KeyEntities = []string{}
	}
	if out.UnansweredQuestions == nil {
		out.UnansweredQuestions = []string{}
	}
	if !out.CustomerIntent.Valid() {
		out.CustomerIntent = IntentGeneralInquiry
	}
	if !out.ConversationStage.Valid() {
		out.ConversationStage = StageGreeting
	}
	if !out.SatisfactionStatus.Valid() {
		out.SatisfactionStatus = SatisfactionUnknown
	}
	out.SentimentScore = ClampSentiment(out.SentimentScore)
	if out.LastMentionedProduct != nil && out.LastMentionedProduct.Name == "" {
		out.LastMentionedProduct = nil
	}
	return out
}

// ClampSentiment forces score into [-1, 1]; NaN collapses to neutral.
func ClampSentiment(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score < MinSentimentScore:
		return MinSentimentScore
	case score > MaxSentimentScore:
		return MaxSentimentScore
	}
	return score
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
