package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"shop-assistant/internal/domain/contextengine"
	"shop-assistant/internal/domain/entities"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/metrics"
)

// ExtractorService runs the structured extraction call for one conversation turn.
type ExtractorService struct {
	Provider Iservices.ITextGenerationProvider
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
}

func NewExtractorService(p Iservices.ITextGenerationProvider, logger *logger.Logger, m *metrics.Metrics, timeout time.Duration) *ExtractorService {
	return &ExtractorService{Provider: p, Logger: logger, Metrics: m, Timeout: timeout}
}

// Extract asks the model for an updated understanding of the conversation.
//
// Parameters:
//   - prev: the context before this message, restated to the model as working memory.
//   - transcript: the full ordered transcript, including the message just appended.
//
// Returns:
//   - contextengine.ExtractionResult: Updated with a candidate, or Unchanged with the
//     reason. An empty transcript yields Unchanged without calling the model. Transport
//     errors and unusable responses are logged as warnings and never returned as errors.
func (es *ExtractorService) Extract(ctx context.Context, conversationID string, prev entities.ConversationContext, transcript []entities.Message) contextengine.ExtractionResult {
	if len(transcript) == 0 {
		es.Metrics.RecordExtraction(contextengine.Unchanged(contextengine.FailureNone, nil).Label(), 0)
		return contextengine.Unchanged(contextengine.FailureNone, nil)
	}

	if es.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, es.Timeout)
		defer cancel()
	}

	instruction := contextengine.BuildExtractionInstruction(prev, transcript)
	start := time.Now()
	raw, err := es.Provider.GenerateStructured(ctx, instruction, contextengine.CandidateSchema())
	elapsed := time.Since(start)

	var result contextengine.ExtractionResult
	if err != nil {
		result = contextengine.Unchanged(contextengine.FailureTransport, err)
	} else if candidate, kind, perr := contextengine.ParseCandidate(raw); perr != nil {
		result = contextengine.Unchanged(kind, perr)
	} else {
		result = contextengine.Updated(candidate)
	}

	es.Metrics.RecordExtraction(result.Label(), elapsed)

	fields := logrus.Fields{
		"conversation_id": conversationID,
		"provider":        es.Provider.Name(),
		"duration_ms":     elapsed.Milliseconds(),
	}
	if result.Failed() {
		fields["reason"] = string(result.Failure)
		es.Logger.Warn(fmt.Sprintf("Context extraction failed, keeping previous context: %v", result.Err), fields)
		return result
	}
	es.Logger.Debug("Context extraction succeeded", fields)
	return result
}
