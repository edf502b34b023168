package contextengine

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/domain/dto"
	"shop-assistant/internal/domain/entities"
)

func ptr[T any](v T) *T { return &v }

func sampleContexts(n int) []entities.ConversationContext {
	rng := rand.New(rand.NewSource(42))
	out := make([]entities.ConversationContext, 0, n)
	for i := 0; i < n; i++ {
		c := entities.NewConversationContext()
		for j := 0; j < rng.Intn(5); j++ {
			c.Topics = append(c.Topics, fmt.Sprintf("topic-%d", j))
		}
		for j := 0; j < rng.Intn(4); j++ {
			c.KeyEntities = append(c.KeyEntities, fmt.Sprintf("entity-%d", j))
		}
		for j := 0; j < rng.Intn(3); j++ {
			c.UnansweredQuestions = append(c.UnansweredQuestions, fmt.Sprintf("question %d?", j))
		}
		c.CustomerIntent = entities.CustomerIntents[rng.Intn(len(entities.CustomerIntents))]
		c.ConversationStage = entities.ConversationStages[rng.Intn(len(entities.ConversationStages))]
		c.SatisfactionStatus = entities.SatisfactionStatuses[rng.Intn(len(entities.SatisfactionStatuses))]
		c.SentimentScore = rng.Float64()*2 - 1
		if rng.Intn(2) == 0 {
			c.LastMentionedProduct = &entities.ProductRef{ID: ptr(int64(i)), Name: fmt.Sprintf("product-%d", i)}
		}
		out = append(out, c)
	}
	return out
}

func TestMerge_IdentityUnderEmptyCandidate(t *testing.T) {
	m := NewMerger(0, 0)
	for i, c := range sampleContexts(50) {
		got := m.Merge(c, dto.ContextCandidate{})
		if diff := cmp.Diff(c, got); diff != "" {
			t.Fatalf("context %d changed under empty candidate (-want +got):\n%s", i, diff)
		}
	}
}

func TestMerge_DoesNotMutatePrevious(t *testing.T) {
	prev := entities.NewConversationContext()
	prev.Topics = []string{"shipping"}
	snapshot := prev.Clone()

	NewMerger(0, 0).Merge(prev, dto.ContextCandidate{Topics: []string{"returns"}, KeyEntities: []string{"Sofa"}})

	assert.Equal(t, snapshot, prev)
}

func TestMerge_SetsOnlyGrow(t *testing.T) {
	m := NewMerger(0, 0)
	c := entities.NewConversationContext()
	candidates := []dto.ContextCandidate{
		{Topics: []string{"shipping", "returns"}},
		{Topics: []string{"returns"}, KeyEntities: []string{"Acme"}},
		{Topics: []string{}, KeyEntities: nil},
		{Topics: []string{"Shipping"}, KeyEntities: []string{"Acme", "Blue Sofa"}},
	}
	for _, cand := range candidates {
		next := m.Merge(c, cand)
		assert.GreaterOrEqual(t, len(next.Topics), len(c.Topics))
		assert.GreaterOrEqual(t, len(next.KeyEntities), len(c.KeyEntities))
		assert.Subset(t, next.Topics, c.Topics)
		assert.Subset(t, next.KeyEntities, c.KeyEntities)
		c = next
	}
	// case-sensitive: "Shipping" and "shipping" are different entries
	assert.Equal(t, []string{"shipping", "returns", "Shipping"}, c.Topics)
	assert.Equal(t, []string{"Acme", "Blue Sofa"}, c.KeyEntities)
}

func TestMerge_SetCapKeepsExistingEntries(t *testing.T) {
	m := NewMerger(3, 2)
	prev := entities.NewConversationContext()
	prev.Topics = []string{"a", "b"}
	prev.KeyEntities = []string{"x", "y", "z"}

	got := m.Merge(prev, dto.ContextCandidate{Topics: []string{"c", "d"}, KeyEntities: []string{"w"}})

	assert.Equal(t, []string{"a", "b", "c"}, got.Topics)
	assert.Equal(t, []string{"x", "y", "z"}, got.KeyEntities, "entries above the cap are never evicted")
}

func TestMerge_SentimentAlwaysInRange(t *testing.T) {
	m := NewMerger(0, 0)
	inputs := []*float64{
		nil,
		ptr(math.NaN()),
		ptr(math.Inf(1)),
		ptr(math.Inf(-1)),
		ptr(5.0),
		ptr(-1.0001),
		ptr(1.0),
		ptr(-1.0),
		ptr(0.25),
	}
	for _, prev := range sampleContexts(10) {
		for _, in := range inputs {
			got := m.Merge(prev, dto.ContextCandidate{SentimentScore: in})
			assert.True(t, got.SentimentScore >= -1 && got.SentimentScore <= 1, "score %v out of range", got.SentimentScore)
		}
	}

	corrupt := entities.NewConversationContext()
	corrupt.SentimentScore = 9
	assert.Equal(t, 1.0, m.Merge(corrupt, dto.ContextCandidate{}).SentimentScore)
}

func TestMerge_IdempotentForRepeatedCandidate(t *testing.T) {
	m := NewMerger(0, 0)
	cand := dto.ContextCandidate{
		Topics:              []string{"returns", "returns", "warranty"},
		KeyEntities:         []string{"Blue Sofa"},
		CustomerIntent:      string(entities.IntentProductQuestion),
		ConversationStage:   string(entities.StageRecommendation),
		UnansweredQuestions: ptr([]string{"Is it in stock?"}),
		SentimentScore:      ptr(0.2),
		SatisfactionStatus:  string(entities.SatisfactionNeutral),
	}
	for _, prev := range sampleContexts(10) {
		once := m.Merge(prev, cand)
		twice := m.Merge(once, cand)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("second merge changed the context (-once +twice):\n%s", diff)
		}
	}
}

func TestMerge_ShippingReturnsScenario(t *testing.T) {
	prev := entities.NewConversationContext()
	prev.Topics = []string{"shipping"}
	prev.ConversationStage = entities.StageGreeting
	prev.SentimentScore = 0.0

	got := NewMerger(0, 0).Merge(prev, dto.ContextCandidate{
		Topics:            []string{"returns"},
		ConversationStage: string(entities.StageInformationGathering),
		SentimentScore:    ptr(0.4),
	})

	assert.ElementsMatch(t, []string{"shipping", "returns"}, got.Topics)
	assert.Equal(t, entities.StageInformationGathering, got.ConversationStage)
	assert.Equal(t, 0.4, got.SentimentScore)
}

func TestMerge_OutOfRangeSentimentKeepsPrevious(t *testing.T) {
	prev := entities.NewConversationContext()
	prev.SentimentScore = -0.2

	got := NewMerger(0, 0).Merge(prev, dto.ContextCandidate{SentimentScore: ptr(5.0)})

	assert.Equal(t, -0.2, got.SentimentScore)
}

func TestMerge_ScalarRules(t *testing.T) {
	prev := entities.NewConversationContext()
	prev.CustomerIntent = entities.IntentOrderStatus
	prev.ConversationStage = entities.StageProblemSolving
	prev.SatisfactionStatus = entities.SatisfactionNeutral

	tests := []struct {
		name      string
		candidate dto.ContextCandidate
		intent    entities.CustomerIntent
		stage     entities.ConversationStage
		status    entities.SatisfactionStatus
	}{
		{"empty keeps previous", dto.ContextCandidate{}, entities.IntentOrderStatus, entities.StageProblemSolving, entities.SatisfactionNeutral},
		{"valid values replace", dto.ContextCandidate{CustomerIntent: "complaint", ConversationStage: "closing", SatisfactionStatus: "dissatisfied"}, entities.IntentComplaint, entities.StageClosing, entities.SatisfactionDissatisfied},
		{"stage may move backward", dto.ContextCandidate{ConversationStage: "greeting"}, entities.IntentOrderStatus, entities.StageGreeting, entities.SatisfactionNeutral},
		{"unknown values are ignored", dto.ContextCandidate{CustomerIntent: "refund", ConversationStage: "haggling", SatisfactionStatus: "ecstatic"}, entities.IntentOrderStatus, entities.StageProblemSolving, entities.SatisfactionNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMerger(0, 0).Merge(prev, tt.candidate)
			assert.Equal(t, tt.intent, got.CustomerIntent)
			assert.Equal(t, tt.stage, got.ConversationStage)
			assert.Equal(t, tt.status, got.SatisfactionStatus)
		})
	}
}

func TestMerge_UnansweredQuestionsReplacedWholesale(t *testing.T) {
	prev := entities.NewConversationContext()
	prev.UnansweredQuestions = []string{"Do you ship to Canada?", "What is the warranty?"}
	m := NewMerger(0, 0)

	kept := m.Merge(prev, dto.ContextCandidate{})
	assert.Equal(t, prev.UnansweredQuestions, kept.UnansweredQuestions)

	replaced := m.Merge(prev, dto.ContextCandidate{UnansweredQuestions: ptr([]string{"Is it in stock?"})})
	assert.Equal(t, []string{"Is it in stock?"}, replaced.UnansweredQuestions)

	cleared := m.Merge(prev, dto.ContextCandidate{UnansweredQuestions: ptr([]string{})})
	assert.Empty(t, cleared.UnansweredQuestions)
	assert.NotNil(t, cleared.UnansweredQuestions)
}

func TestMerge_LastMentionedProductNeverReverts(t *testing.T) {
	prev := entities.NewConversationContext()
	prev.LastMentionedProduct = &entities.ProductRef{Name: "Red Chair"}
	m := NewMerger(0, 0)

	got := m.Merge(prev, dto.ContextCandidate{LastMentionedProduct: &entities.ProductRef{Name: "  "}})
	require.NotNil(t, got.LastMentionedProduct)
	assert.Equal(t, "Red Chair", got.LastMentionedProduct.Name)

	got = m.Merge(prev, dto.ContextCandidate{LastMentionedProduct: &entities.ProductRef{ID: ptr(int64(9)), Name: "Oak Table"}})
	require.NotNil(t, got.LastMentionedProduct)
	assert.Equal(t, "Oak Table", got.LastMentionedProduct.Name)
	assert.EqualValues(t, 9, *got.LastMentionedProduct.ID)
}

func TestMerge_FillsDefaultsForZeroValuePrevious(t *testing.T) {
	got := NewMerger(0, 0).Merge(entities.ConversationContext{}, dto.ContextCandidate{})
	assert.Equal(t, entities.NewConversationContext(), got)
}
