package Iservices

import "context"

type ChatResult struct {
	Reply    string
	Pipeline PipelineResult
	// PipelineErr is the soft error from the context pipeline, if any.
	PipelineErr error
}

type IChatService interface {
	HandleMessage(ctx context.Context, conversationID string, content string) (ChatResult, error)
}
