package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/domain/dto"
	"shop-assistant/internal/domain/entities"
)

func openAIServer(t *testing.T, content string, inspect func(req map[string]any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if inspect != nil {
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIProvider_GenerateStructured(t *testing.T) {
	schema := &dto.ResponseSchema{
		Type: dto.SchemaObject,
		Properties: map[string]*dto.ResponseSchema{
			"topics":  {Type: dto.SchemaArray, Items: &dto.ResponseSchema{Type: dto.SchemaString}},
			"product": {Type: dto.SchemaObject, Nullable: true},
		},
		Required: []string{"topics"},
	}
	server := openAIServer(t, `{"topics":["returns"]}`, func(req map[string]any) {
		assert.Equal(t, "test-model", req["model"])
		format := req["response_format"].(map[string]any)
		assert.Equal(t, "json_schema", format["type"])
		js := format["json_schema"].(map[string]any)
		props := js["schema"].(map[string]any)["properties"].(map[string]any)
		assert.Equal(t, []any{"object", "null"}, props["product"].(map[string]any)["type"])

		messages := req["messages"].([]any)
		require.Len(t, messages, 1)
		assert.Equal(t, "analyze this", messages[0].(map[string]any)["content"])
	})

	p := NewOpenAIProvider("test-key", server.URL, "test-model", 5*time.Second)
	out, err := p.GenerateStructured(context.Background(), "analyze this", schema)
	require.NoError(t, err)
	assert.Equal(t, `{"topics":["returns"]}`, out)
}

func TestOpenAIProvider_ChatSendsTurnsInOrder(t *testing.T) {
	server := openAIServer(t, "  Sure, the Blue Sofa ships free.  ", func(req map[string]any) {
		_, hasFormat := req["response_format"]
		assert.False(t, hasFormat)
		messages := req["messages"].([]any)
		require.Len(t, messages, 3)
		roles := []string{}
		for _, m := range messages {
			roles = append(roles, m.(map[string]any)["role"].(string))
		}
		assert.Equal(t, []string{"system", "user", "assistant"}, roles)
	})

	p := NewOpenAIProvider("test-key", server.URL, "test-model", 5*time.Second)
	reply, err := p.Chat(context.Background(), []entities.PromptTurn{
		{Role: entities.PromptRoleSystem, Content: "persona"},
		{Role: entities.PromptRoleUser, Content: "Does it ship free?"},
		{Role: entities.PromptRoleAssistant, Content: "Let me check."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure, the Blue Sofa ships free.", reply)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer failing.Close()

	p := NewOpenAIProvider("test-key", failing.URL, "test-model", 5*time.Second)
	_, err := p.Chat(context.Background(), nil)
	assert.ErrorContains(t, err, "status=429")

	empty := openAIServer(t, "   ", nil)
	p = NewOpenAIProvider("test-key", empty.URL, "test-model", 5*time.Second)
	_, err = p.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIProvider_RespectsContext(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewOpenAIProvider("test-key", slow.URL, "test-model", 5*time.Second)
	_, err := p.GenerateStructured(ctx, "x", &dto.ResponseSchema{Type: dto.SchemaObject})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
