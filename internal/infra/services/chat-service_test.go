package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/domain/entities"
)

func TestChatService_HandleMessage(t *testing.T) {
	h := newHarness(t)
	h.provider.structured = func(string) (string, error) {
		return candidateJSON(map[string]any{"topics": []string{"shipping"}, "customerIntent": "order_status"}), nil
	}
	h.provider.chat = func([]entities.PromptTurn) (string, error) { return "It ships tomorrow.", nil }

	result, err := h.chat.HandleMessage(context.Background(), "conv-1", "  When does my order ship?  ")
	require.NoError(t, err)

	assert.Equal(t, "It ships tomorrow.", result.Reply)
	assert.NoError(t, result.PipelineErr)
	assert.True(t, result.Pipeline.Saved)
	assert.Equal(t, []string{"shipping"}, result.Pipeline.Context.Topics)

	require.Len(t, h.provider.chatCalls, 1)
	assert.Equal(t, result.Pipeline.Prompt, h.provider.chatCalls[0])

	transcript, err := h.repo.Transcript(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, entities.RoleCustomer, transcript[0].Role)
	assert.Equal(t, "When does my order ship?", transcript[0].Content)
	assert.Equal(t, entities.RoleBot, transcript[1].Role)
	assert.Equal(t, "It ships tomorrow.", transcript[1].Content)
}

func TestChatService_FallbackReply(t *testing.T) {
	h := newHarness(t)
	h.provider.chat = func([]entities.PromptTurn) (string, error) { return "", errors.New("rate limited") }

	result, err := h.chat.HandleMessage(context.Background(), "conv-1", "Hi")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, result.Reply)

	transcript, err := h.repo.Transcript(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, FallbackReply, transcript[1].Content)
}

func TestChatService_CanceledRequestLeavesNoBotTurn(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.provider.chat = func([]entities.PromptTurn) (string, error) {
		cancel()
		return "", context.Canceled
	}

	result, err := h.chat.HandleMessage(ctx, "conv-1", "Do you ship to Canada?")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, result.Reply)

	transcript, err := h.repo.Transcript(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, entities.RoleCustomer, transcript[0].Role)

	var abandoned bool
	for _, e := range warnings(h.hook) {
		if e.Message == "Reply abandoned: context canceled" {
			abandoned = true
		}
	}
	assert.True(t, abandoned)
}

func TestChatService_DegradedContextStillReplies(t *testing.T) {
	h := newHarness(t)
	h.repo.failLoad = errors.New("connection reset")

	result, err := h.chat.HandleMessage(context.Background(), "conv-1", "Hi")
	require.NoError(t, err)

	assert.ErrorIs(t, result.PipelineErr, ErrContextUnavailable)
	assert.Equal(t, "Happy to help!", result.Reply)
	require.Len(t, h.provider.chatCalls, 1)
	assert.Equal(t, entities.PromptRoleSystem, h.provider.chatCalls[0][0].Role)
}

func TestChatService_EmptyMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.chat.HandleMessage(context.Background(), "conv-1", " \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	transcript, err := h.repo.Transcript(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, transcript)
	assert.Zero(t, h.provider.calls())
}
