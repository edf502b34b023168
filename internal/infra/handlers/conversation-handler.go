package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"shop-assistant/internal/domain/dto"
	"shop-assistant/internal/infra/services"
)

// PostMessage handles one inbound customer message.
//
// The message is appended to the transcript, the conversation context is refreshed,
// and the reply is generated from the assembled prompt. Context problems never fail
// the request: the reply is still returned and context_saved reports whether the
// refreshed context reached the store.
//
// HTTP Status Codes:
// - 200 OK: reply generated (possibly the fallback reply).
// - 400 Bad Request: invalid JSON or empty content.
// - 500 Internal Server Error: the customer message could not be stored.
func (th *HttpHandlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		th.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body dto.PostMessageRequest
	if err := th.decodeBody(w, r, &body); err != nil {
		th.Logger.Warn(fmt.Sprintf("Invalid message payload: %v", err), logrus.Fields{"conversation_id": id})
		th.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := th.ChatService.HandleMessage(r.Context(), id, body.Content)
	if errors.Is(err, services.ErrEmptyMessage) {
		th.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		th.writeError(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	extraction := dto.ExtractionSummary{Updated: result.Pipeline.Extraction.IsUpdated()}
	if !extraction.Updated {
		extraction.Reason = result.Pipeline.Extraction.Label()
	}
	if result.PipelineErr != nil {
		extraction.Reason = result.PipelineErr.Error()
	}

	th.writeJSON(w, http.StatusOK, dto.PostMessageResponse{
		ConversationID: id,
		Reply:          result.Reply,
		Context:        result.Pipeline.Context,
		Extraction:     extraction,
		ContextSaved:   result.Pipeline.Saved,
	})
}

// GetContext returns the stored context, or the default context for a
// conversation that has not been analyzed yet.
func (th *HttpHandlers) GetContext(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		th.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := th.ContextStore.Load(r.Context(), id)
	if err != nil {
		th.writeError(w, http.StatusServiceUnavailable, "context unavailable")
		return
	}
	th.writeJSON(w, http.StatusOK, dto.ContextResponse{ConversationID: id, Context: c})
}

// PostInteraction records a product view, cart addition or purchase.
//
// Storage failures are logged by the recorder and reported as recorded=false with
// 200 OK; only malformed input is rejected.
func (th *HttpHandlers) PostInteraction(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		th.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body dto.PostInteractionRequest
	if err := th.decodeBody(w, r, &body); err != nil {
		th.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interaction, err := th.InteractionService.Record(r.Context(), id, body.ProductID, body.ProductName, body.Action)
	switch {
	case errors.Is(err, services.ErrInvalidAction), errors.Is(err, services.ErrInvalidProduct):
		th.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		th.writeJSON(w, http.StatusOK, dto.PostInteractionResponse{Recorded: false})
	default:
		th.writeJSON(w, http.StatusOK, dto.PostInteractionResponse{Recorded: true, Interaction: &interaction})
	}
}

func (th *HttpHandlers) GetInteractions(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		th.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interactions, err := th.InteractionService.List(r.Context(), id)
	if err != nil {
		th.writeError(w, http.StatusServiceUnavailable, "interactions unavailable")
		return
	}
	th.writeJSON(w, http.StatusOK, dto.InteractionsResponse{ConversationID: id, Interactions: interactions})
}
