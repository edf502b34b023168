package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shop-assistant/internal/domain/entities"
	"shop-assistant/internal/domain/interfaces/repository"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/metrics"
	"shop-assistant/internal/pkg/keylock"
)

// InteractionService records product views, cart additions and purchases.
type InteractionService struct {
	Repository repository.ConversationRepository
	Store      Iservices.IContextStoreService
	Locks      *keylock.KeyedMutex
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	now        func() time.Time
}

func NewInteractionService(repo repository.ConversationRepository, store Iservices.IContextStoreService, locks *keylock.KeyedMutex, logger *logger.Logger, m *metrics.Metrics) *InteractionService {
	return &InteractionService{Repository: repo, Store: store, Locks: locks, Logger: logger, Metrics: m, now: time.Now}
}

// Record appends an interaction and makes its product the last mentioned one, in a
// single write. Failures are logged here; callers only need the error to report
// that nothing was recorded.
func (is *InteractionService) Record(ctx context.Context, conversationID string, productID int64, productName string, action entities.InteractionAction) (entities.ProductInteraction, error) {
	log := is.Logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"product_id":      productID,
		"action":          string(action),
	})

	if !action.Valid() {
		is.Metrics.RecordInteraction("invalid", ErrInvalidAction)
		return entities.ProductInteraction{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	productName = strings.TrimSpace(productName)
	if productName == "" {
		is.Metrics.RecordInteraction(string(action), ErrInvalidProduct)
		return entities.ProductInteraction{}, ErrInvalidProduct
	}

	ctx = context.WithoutCancel(ctx)
	unlock := is.Locks.Lock(conversationID)
	defer unlock()

	c, err := is.Store.Load(ctx, conversationID)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to record interaction, context unavailable: %v", err))
		is.Metrics.RecordInteraction(string(action), err)
		return entities.ProductInteraction{}, fmt.Errorf("%w: %w", ErrContextUnavailable, err)
	}

	id := productID
	c.LastMentionedProduct = &entities.ProductRef{ID: &id, Name: productName}
	blob, err := entities.EncodeContext(c)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to encode context: %v", err))
		is.Metrics.RecordInteraction(string(action), err)
		return entities.ProductInteraction{}, err
	}

	interaction := entities.ProductInteraction{
		ID:          uuid.NewString(),
		ProductID:   productID,
		ProductName: productName,
		Action:      action,
		Timestamp:   is.now().UTC(),
	}

	start := time.Now()
	err = is.Repository.AppendInteraction(ctx, conversationID, interaction, blob)
	is.Metrics.RecordStoreOperation("append_interaction", err, time.Since(start))
	is.Metrics.RecordInteraction(string(action), err)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to record interaction: %v", err))
		return entities.ProductInteraction{}, err
	}

	log.Info(fmt.Sprintf("Recorded %s interaction for %q", action, productName))
	return interaction, nil
}

func (is *InteractionService) List(ctx context.Context, conversationID string) ([]entities.ProductInteraction, error) {
	interactions, err := is.Repository.Interactions(ctx, conversationID)
	if err != nil {
		is.Logger.Error(fmt.Sprintf("Failed to list interactions: %v", err), logrus.Fields{"conversation_id": conversationID})
		return nil, err
	}
	return interactions, nil
}
