package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"shop-assistant/internal/domain/entities"
	"shop-assistant/internal/domain/interfaces/repository"
	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/metrics"
)

// ContextStoreService is responsible for turning stored context blobs into
// ConversationContext values and back.
type ContextStoreService struct {
	Repository repository.ConversationRepository
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

func NewContextStoreService(repo repository.ConversationRepository, logger *logger.Logger, m *metrics.Metrics) *ContextStoreService {
	return &ContextStoreService{Repository: repo, Logger: logger, Metrics: m}
}

func (cs *ContextStoreService) Load(ctx context.Context, conversationID string) (entities.ConversationContext, error) {
	c, _, _, err := cs.LoadVersioned(ctx, conversationID)
	return c, err
}

func (cs *ContextStoreService) LoadVersioned(ctx context.Context, conversationID string) (entities.ConversationContext, int, bool, error) {
	start := time.Now()
	blob, found, err := cs.Repository.LoadContext(ctx, conversationID)
	cs.Metrics.RecordStoreOperation("load_context", err, time.Since(start))
	if err != nil {
		cs.Logger.Error(fmt.Sprintf("Failed to load context: %v", err), logrus.Fields{"conversation_id": conversationID})
		return entities.ConversationContext{}, 0, false, err
	}
	if !found {
		return entities.NewConversationContext(), entities.ContextSchemaVersion, false, nil
	}

	c, version, err := entities.DecodeContext(blob)
	if err != nil {
		cs.Logger.Error(fmt.Sprintf("Stored context is unreadable: %v", err), logrus.Fields{"conversation_id": conversationID})
		return entities.ConversationContext{}, version, true, fmt.Errorf("decode context of %s: %w", conversationID, err)
	}
	return c, version, true, nil
}

func (cs *ContextStoreService) Save(ctx context.Context, conversationID string, c entities.ConversationContext) error {
	blob, err := entities.EncodeContext(c)
	if err != nil {
		return fmt.Errorf("encode context of %s: %w", conversationID, err)
	}

	start := time.Now()
	err = cs.Repository.SaveContext(ctx, conversationID, blob)
	cs.Metrics.RecordStoreOperation("save_context", err, time.Since(start))
	if err != nil {
		cs.Logger.Error(fmt.Sprintf("Failed to save context: %v", err), logrus.Fields{"conversation_id": conversationID})
		return err
	}
	return nil
}
