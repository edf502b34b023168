package contextengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/domain/entities"
)

func TestStageGuidance_TotalOverStages(t *testing.T) {
	seen := map[string]bool{}
	for _, stage := range entities.ConversationStages {
		got, guidance := StageGuidance(stage)
		assert.Equal(t, stage, got)
		assert.NotEmpty(t, guidance)
		assert.False(t, seen[guidance], "stage %s reuses another stage's template", stage)
		seen[guidance] = true
	}

	for _, stage := range []entities.ConversationStage{"", "haggling", "GREETING"} {
		got, guidance := StageGuidance(stage)
		assert.Equal(t, entities.StageGreeting, got)
		_, greeting := StageGuidance(entities.StageGreeting)
		assert.Equal(t, greeting, guidance)
	}
}

func TestSystemDirective_MinimalContext(t *testing.T) {
	a := NewAssembler("")
	c := entities.NewConversationContext()

	_, greeting := StageGuidance(entities.StageGreeting)
	assert.Equal(t, DefaultPersona+" "+greeting, a.SystemDirective(c))
}

func TestSystemDirective_RuleOrder(t *testing.T) {
	a := NewAssembler("You help shoppers at Acme Furniture.")
	c := entities.NewConversationContext()
	c.Topics = []string{"shipping", "returns"}
	c.LastMentionedProduct = &entities.ProductRef{Name: "Blue Sofa"}
	c.ConversationStage = entities.StageCheckout
	c.UnansweredQuestions = []string{"Do you ship to Canada?", "Is assembly included?"}
	c.SentimentScore = -0.6

	directive := a.SystemDirective(c)

	_, checkout := StageGuidance(entities.StageCheckout)
	fragments := []string{
		"You help shoppers at Acme Furniture.",
		"Topics discussed so far: shipping, returns.",
		`The product most recently discussed is "Blue Sofa".`,
		checkout,
		"Do you ship to Canada?; Is assembly included?",
		empathyClause,
	}
	last := -1
	for _, f := range fragments {
		idx := strings.Index(directive, f)
		require.GreaterOrEqual(t, idx, 0, "missing %q in %q", f, directive)
		assert.Greater(t, idx, last, "%q out of order", f)
		last = idx
	}
}

func TestSystemDirective_SentimentBands(t *testing.T) {
	a := NewAssembler("")
	tests := []struct {
		score    float64
		empathy  bool
		positive bool
	}{
		{-1.0, true, false},
		{-0.31, true, false},
		{-0.3, false, false},
		{0, false, false},
		{0.3, false, false},
		{0.31, false, true},
		{1.0, false, true},
	}
	for _, tt := range tests {
		c := entities.NewConversationContext()
		c.SentimentScore = tt.score
		directive := a.SystemDirective(c)
		assert.Equal(t, tt.empathy, strings.Contains(directive, empathyClause), "score %v", tt.score)
		assert.Equal(t, tt.positive, strings.Contains(directive, positiveClause), "score %v", tt.score)
	}
}

func TestSystemDirective_UnknownStageUsesGreeting(t *testing.T) {
	a := NewAssembler("")
	c := entities.NewConversationContext()
	c.ConversationStage = "haggling"

	_, greeting := StageGuidance(entities.StageGreeting)
	assert.Contains(t, a.SystemDirective(c), greeting)
}

func TestAssemble_MapsTranscriptInOrder(t *testing.T) {
	a := NewAssembler("")
	transcript := []entities.Message{
		{Role: entities.RoleCustomer, Content: "Hi"},
		{Role: entities.RoleBot, Content: "Hello! How can I help?"},
		{Role: entities.RoleCustomer, Content: strings.Repeat("long question ", 500)},
	}

	turns := a.Assemble(entities.NewConversationContext(), transcript, true)
	require.Len(t, turns, 4)
	assert.Equal(t, entities.PromptRoleSystem, turns[0].Role)
	assert.Equal(t, entities.PromptTurn{Role: "user", Content: "Hi"}, turns[1])
	assert.Equal(t, entities.PromptTurn{Role: "assistant", Content: "Hello! How can I help?"}, turns[2])
	assert.Equal(t, transcript[2].Content, turns[3].Content, "turns are never truncated")

	withoutSystem := a.Assemble(entities.NewConversationContext(), transcript, false)
	require.Len(t, withoutSystem, 3)
	assert.Equal(t, turns[1:], withoutSystem)
}

func TestAssemble_EmptyTranscript(t *testing.T) {
	turns := NewAssembler("").Assemble(entities.NewConversationContext(), nil, true)
	require.Len(t, turns, 1)
	assert.Equal(t, entities.PromptRoleSystem, turns[0].Role)

	assert.Empty(t, NewAssembler("").Assemble(entities.NewConversationContext(), nil, false))
}
