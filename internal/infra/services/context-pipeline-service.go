package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"shop-assistant/internal/domain/contextengine"
	"shop-assistant/internal/domain/entities"
	"shop-assistant/internal/domain/interfaces/repository"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/metrics"
	"shop-assistant/internal/pkg/keylock"
)

// ContextPipelineService runs extract, merge, persist and assemble for one
// conversation at a time.
type ContextPipelineService struct {
	Repository repository.ConversationRepository
	Store      Iservices.IContextStoreService
	Extractor  Iservices.IExtractorService
	Merger     contextengine.Merger
	Assembler  *contextengine.Assembler
	Locks      *keylock.KeyedMutex
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

func NewContextPipelineService(
	repo repository.ConversationRepository,
	store Iservices.IContextStoreService,
	extractor Iservices.IExtractorService,
	merger contextengine.Merger,
	assembler *contextengine.Assembler,
	locks *keylock.KeyedMutex,
	logger *logger.Logger,
	m *metrics.Metrics,
) *ContextPipelineService {
	return &ContextPipelineService{
		Repository: repo,
		Store:      store,
		Extractor:  extractor,
		Merger:     merger,
		Assembler:  assembler,
		Locks:      locks,
		Logger:     logger,
		Metrics:    m,
	}
}

// Process refreshes the context of a conversation from its current transcript
// and assembles the prompt for the next reply.
//
// The whole read-modify-write runs inside the conversation's exclusive section, and
// it runs to completion even if ctx is canceled; values carried by ctx are kept.
//
// Returns:
//   - Iservices.PipelineResult: always populated with a context and a prompt.
//   - error: ErrTranscriptUnavailable or ErrContextUnavailable when a read failed (the
//     prompt is then built from defaults and nothing is saved), ErrContextNotPersisted
//     when the merged context could not be saved. Extraction failures are not errors.
func (ps *ContextPipelineService) Process(ctx context.Context, conversationID string) (Iservices.PipelineResult, error) {
	ctx = context.WithoutCancel(ctx)
	unlock := ps.Locks.Lock(conversationID)
	defer unlock()

	log := ps.Logger.WithFields(logrus.Fields{"conversation_id": conversationID})
	result := Iservices.PipelineResult{
		ConversationID: conversationID,
		Context:        entities.NewConversationContext(),
		Extraction:     contextengine.Unchanged(contextengine.FailureNone, nil),
	}

	transcript, err := ps.Repository.Transcript(ctx, conversationID)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to load transcript: %v", err))
		result.Prompt = ps.Assembler.Assemble(result.Context, nil, true)
		ps.Metrics.RecordPipelineRun("transcript_unavailable")
		return result, fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
	}

	prev, err := ps.Store.Load(ctx, conversationID)
	if err != nil {
		log.Warn("Context unavailable, answering from defaults without saving")
		result.Prompt = ps.Assembler.Assemble(result.Context, transcript, true)
		ps.Metrics.RecordPipelineRun("context_unavailable")
		return result, fmt.Errorf("%w: %w", ErrContextUnavailable, err)
	}

	result.Extraction = ps.Extractor.Extract(ctx, conversationID, prev, transcript)
	if !result.Extraction.IsUpdated() {
		result.Context = prev.Normalized()
		result.Prompt = ps.Assembler.Assemble(result.Context, transcript, true)
		ps.Metrics.RecordPipelineRun("unchanged")
		return result, nil
	}

	result.Context = ps.Merger.Merge(prev, result.Extraction.Candidate)
	result.Prompt = ps.Assembler.Assemble(result.Context, transcript, true)

	if err := ps.Store.Save(ctx, conversationID, result.Context); err != nil {
		ps.Metrics.RecordPipelineRun("not_persisted")
		return result, fmt.Errorf("%w: %w", ErrContextNotPersisted, err)
	}
	result.Saved = true
	ps.Metrics.RecordPipelineRun("updated")
	log.Debug(fmt.Sprintf("Context updated: stage=%s intent=%s sentiment=%.2f",
		result.Context.ConversationStage, result.Context.CustomerIntent, result.Context.SentimentScore))
	return result, nil
}
