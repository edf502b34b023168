// Package contextengine holds the deterministic parts of the conversational
// context engine: candidate parsing, the merge rules and prompt assembly.
package contextengine

import (
	"strings"

	"shop-assistant/internal/domain/dto"
	"shop-assistant/internal/domain/entities"
)

// DefaultSetCap bounds topics and key entities for very long conversations.
const DefaultSetCap = 100

// Merger folds an extraction candidate into the authoritative context.
//
// Sets are additive, scalars are replace-or-keep and the unanswered question
// list is replaced wholesale. MaxTopics and MaxEntities cap how many entries a
// set may hold; once a set is full new entries are dropped and existing ones are
// kept. A cap of zero or less means unlimited.
type Merger struct {
	MaxTopics   int
	MaxEntities int
}

func NewMerger(maxTopics, maxEntities int) Merger {
	return Merger{MaxTopics: maxTopics, MaxEntities: maxEntities}
}

// Merge never mutates prev and always returns a fully populated context.
func (m Merger) Merge(prev entities.ConversationContext, candidate dto.ContextCandidate) entities.ConversationContext {
	merged := prev.Normalized()

	merged.Topics = union(merged.Topics, candidate.Topics, m.MaxTopics)
	merged.KeyEntities = union(merged.KeyEntities, candidate.KeyEntities, m.MaxEntities)

	if intent := entities.CustomerIntent(candidate.CustomerIntent); intent.Valid() {
		merged.CustomerIntent = intent
	}
	if stage := entities.ConversationStage(candidate.ConversationStage); stage.Valid() {
		merged.ConversationStage = stage
	}
	if status := entities.SatisfactionStatus(candidate.SatisfactionStatus); status.Valid() {
		merged.SatisfactionStatus = status
	}

	if candidate.UnansweredQuestions != nil {
		merged.UnansweredQuestions = nonBlank(*candidate.UnansweredQuestions)
	}

	if candidate.SentimentScore != nil && entities.ValidSentiment(*candidate.SentimentScore) {
		merged.SentimentScore = *candidate.SentimentScore
	}

	if p := candidate.LastMentionedProduct; p != nil && strings.TrimSpace(p.Name) != "" {
		merged.LastMentionedProduct = p.Clone()
	}

	return merged
}

func union(existing, additions []string, limit int) []string {
	seen := make(map[string]struct{}, len(existing)+len(additions))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	out := existing
	for _, s := range additions {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
