package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"shop-assistant/internal/domain/entities"
	"shop-assistant/internal/domain/interfaces/repository"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/logger"
)

// FallbackReply is sent when reply generation fails.
const FallbackReply = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."

// ChatService handles one inbound customer message end to end.
type ChatService struct {
	Repository repository.ConversationRepository
	Pipeline   Iservices.IContextPipelineService
	Provider   Iservices.ITextGenerationProvider
	Logger     *logger.Logger
	now        func() time.Time
}

func NewChatService(repo repository.ConversationRepository, pipeline Iservices.IContextPipelineService, p Iservices.ITextGenerationProvider, logger *logger.Logger) *ChatService {
	return &ChatService{Repository: repo, Pipeline: pipeline, Provider: p, Logger: logger, now: time.Now}
}

// HandleMessage appends the customer turn, refreshes the context, generates the
// reply from the assembled prompt and appends the bot turn.
//
// Parameters:
//   - conversationID: the conversation the message belongs to.
//   - content: the customer's message text.
//
// Returns:
//   - Iservices.ChatResult: the reply and the pipeline outcome. Context problems are
//     reported in PipelineErr and never prevent a reply.
//   - error: ErrEmptyMessage, or the store error if the customer turn could not be appended.
func (cs *ChatService) HandleMessage(ctx context.Context, conversationID string, content string) (Iservices.ChatResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Iservices.ChatResult{}, ErrEmptyMessage
	}
	log := cs.Logger.WithFields(logrus.Fields{"conversation_id": conversationID})

	customerTurn := entities.Message{Role: entities.RoleCustomer, Content: content, Timestamp: cs.now().UTC()}
	if err := cs.Repository.AppendMessage(ctx, conversationID, customerTurn); err != nil {
		log.Error(fmt.Sprintf("Failed to append customer message: %v", err))
		return Iservices.ChatResult{}, err
	}

	pipeline, pipelineErr := cs.Pipeline.Process(ctx, conversationID)
	if pipelineErr != nil {
		log.Warn(fmt.Sprintf("Context pipeline degraded: %v", pipelineErr))
	}

	reply, err := cs.Provider.Chat(ctx, pipeline.Prompt)
	if err != nil {
		if ctx.Err() != nil {
			// The caller is gone and never saw a reply, so the transcript does not get one.
			log.Warn(fmt.Sprintf("Reply abandoned: %v", ctx.Err()))
			return Iservices.ChatResult{Reply: FallbackReply, Pipeline: pipeline, PipelineErr: pipelineErr}, nil
		}
		log.Error(fmt.Sprintf("Failed to generate reply: %v", err))
		reply = FallbackReply
	}

	botTurn := entities.Message{Role: entities.RoleBot, Content: reply, Timestamp: cs.now().UTC()}
	if err := cs.Repository.AppendMessage(context.WithoutCancel(ctx), conversationID, botTurn); err != nil {
		log.Error(fmt.Sprintf("Failed to append bot message: %v", err))
	}

	return Iservices.ChatResult{Reply: reply, Pipeline: pipeline, PipelineErr: pipelineErr}, nil
}
