package Iservices

import "context"

// BatchReport summarizes a maintenance run over many conversations.
type BatchReport struct {
	Processed int64
	Changed   int64
	Skipped   int64
	Failed    int64
}

type IMaintenanceService interface {
	Migrate(ctx context.Context, conversationIDs []string) (BatchReport, error)
	Reanalyze(ctx context.Context, conversationIDs []string) (BatchReport, error)
}
