package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shop-assistant/internal/domain/entities"
	"shop-assistant/internal/domain/interfaces/repository"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/pkg/keylock"
)

// MaintenanceService runs batch jobs over stored conversations.
type MaintenanceService struct {
	Repository  repository.ConversationRepository
	Store       Iservices.IContextStoreService
	Pipeline    Iservices.IContextPipelineService
	Locks       *keylock.KeyedMutex
	Logger      *logger.Logger
	Concurrency int
}

func NewMaintenanceService(repo repository.ConversationRepository, store Iservices.IContextStoreService, pipeline Iservices.IContextPipelineService, locks *keylock.KeyedMutex, logger *logger.Logger, concurrency int) *MaintenanceService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &MaintenanceService{Repository: repo, Store: store, Pipeline: pipeline, Locks: locks, Logger: logger, Concurrency: concurrency}
}

// Migrate rewrites every context blob that was written with an older schema
// version. Unreadable blobs are counted as failures and left untouched.
func (ms *MaintenanceService) Migrate(ctx context.Context, conversationIDs []string) (Iservices.BatchReport, error) {
	return ms.forEach(ctx, conversationIDs, func(ctx context.Context, id string) (bool, error) {
		unlock := ms.Locks.Lock(id)
		defer unlock()

		c, version, found, err := ms.Store.LoadVersioned(ctx, id)
		if err != nil {
			return false, err
		}
		if !found || version == entities.ContextSchemaVersion {
			return false, nil
		}
		if err := ms.Store.Save(ctx, id, c); err != nil {
			return false, err
		}
		ms.Logger.Info(fmt.Sprintf("Migrated context from version %d", version), logrus.Fields{"conversation_id": id})
		return true, nil
	})
}

// Reanalyze reruns the context pipeline for each conversation.
func (ms *MaintenanceService) Reanalyze(ctx context.Context, conversationIDs []string) (Iservices.BatchReport, error) {
	return ms.forEach(ctx, conversationIDs, func(ctx context.Context, id string) (bool, error) {
		result, err := ms.Pipeline.Process(ctx, id)
		if err != nil {
			return false, err
		}
		return result.Saved, nil
	})
}

// forEach runs fn for every id with bounded concurrency. An empty id list means
// every stored conversation. Per-conversation errors are counted, not returned.
func (ms *MaintenanceService) forEach(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (changed bool, err error)) (Iservices.BatchReport, error) {
	if len(ids) == 0 {
		all, err := ms.Repository.ConversationIDs(ctx)
		if err != nil {
			return Iservices.BatchReport{}, err
		}
		ids = all
	}

	var processed, changed, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ms.Concurrency)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := fn(gctx, id)
			processed.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				ms.Logger.Warn(fmt.Sprintf("Maintenance step failed: %v", err), logrus.Fields{"conversation_id": id})
			case ok:
				changed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return Iservices.BatchReport{
		Processed: processed.Load(),
		Changed:   changed.Load(),
		Skipped:   skipped.Load(),
		Failed:    failed.Load(),
	}, err
}
