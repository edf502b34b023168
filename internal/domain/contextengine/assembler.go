package contextengine

import (
	"fmt"
	"strings"

	"shop-assistant/internal/domain/entities"
)

const DefaultPersona = "You are a friendly and knowledgeable shopping assistant for this online store. Answer the customer's questions accurately and concisely."

// Sentiment thresholds for the tone clause. Scores inside the band get no clause.
const (
	NegativeSentimentThreshold = -0.3
	PositiveSentimentThreshold = 0.3
)

var stageGuidance = map[entities.ConversationStage]string{
	entities.StageGreeting:             "The conversation has just started: greet the customer warmly and ask how you can help today.",
	entities.StageInformationGathering: "You are still learning what the customer needs: ask focused clarifying questions before suggesting anything.",
	entities.StageProblemSolving:       "The customer has a problem to solve: work through it step by step and confirm each step resolves it.",
	entities.StageRecommendation:       "The customer is ready for suggestions: recommend products that match their stated needs and explain why each one fits.",
	entities.StageCheckout:             "The customer is about to buy: help them complete the purchase and answer payment, shipping and return questions clearly.",
	entities.StageClosing:              "The conversation is wrapping up: summarize what was agreed and ask whether there is anything else you can help with.",
}

const (
	empathyClause  = "The customer seems frustrated or unhappy: acknowledge their concerns with empathy, apologize where appropriate and offer to escalate to a human agent."
	positiveClause = "The customer is in a positive mood: keep the upbeat tone and reinforce the choices they are happy with."
)

// Assembler turns a context snapshot and the raw transcript into the ordered
// turn list for the reply-generation call.
type Assembler struct {
	Persona string
}

func NewAssembler(persona string) *Assembler {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	return &Assembler{Persona: persona}
}

// StageGuidance returns the stage whose template applies and that template.
// Unknown or missing stages fall back to greeting.
func StageGuidance(stage entities.ConversationStage) (entities.ConversationStage, string) {
	if guidance, ok := stageGuidance[stage]; ok {
		return stage, guidance
	}
	return entities.StageGreeting, stageGuidance[entities.StageGreeting]
}

// SystemDirective builds the leading instruction from the context.
func (a *Assembler) SystemDirective(c entities.ConversationContext) string {
	persona := a.Persona
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	parts := []string{persona}

	if len(c.Topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics discussed so far: %s.", strings.Join(c.Topics, ", ")))
	}
	if p := c.LastMentionedProduct; p != nil && p.Name != "" {
		parts = append(parts, fmt.Sprintf("The product most recently discussed is %q.", p.Name))
	}

	_, guidance := StageGuidance(c.ConversationStage)
	parts = append(parts, guidance)

	if len(c.UnansweredQuestions) > 0 {
		parts = append(parts, fmt.Sprintf("Make sure to address these unanswered questions: %s", strings.Join(c.UnansweredQuestions, "; ")))
	}

	switch {
	case c.SentimentScore < NegativeSentimentThreshold:
		parts = append(parts, empathyClause)
	case c.SentimentScore > PositiveSentimentThreshold:
		parts = append(parts, positiveClause)
	}

	return strings.Join(parts, " ")
}

// Assemble returns the optional system turn followed by every transcript turn
// in order. Nothing is truncated here.
func (a *Assembler) Assemble(c entities.ConversationContext, transcript []entities.Message, includeSystem bool) []entities.PromptTurn {
	turns := make([]entities.PromptTurn, 0, len(transcript)+1)
	if includeSystem {
		turns = append(turns, entities.PromptTurn{Role: entities.PromptRoleSystem, Content: a.SystemDirective(c)})
	}
	for _, msg := range transcript {
		turns = append(turns, entities.PromptTurn{Role: msg.Role.PromptRole(), Content: msg.Content})
	}
	return turns
}
