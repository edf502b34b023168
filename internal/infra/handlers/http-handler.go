package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"shop-assistant/internal/domain/dto"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/logger"
)

// maxBodyBytes bounds request bodies; chat messages and interaction events are small.
const maxBodyBytes = 1 << 20

var errMissingConversationID = errors.New("conversation id is required")

type HttpHandlers struct {
	Logger             *logger.Logger
	ChatService        Iservices.IChatService
	ContextStore       Iservices.IContextStoreService
	InteractionService Iservices.IInteractionService
}

func NewHttpHandlers(logger *logger.Logger, chatService Iservices.IChatService, contextStore Iservices.IContextStoreService, interactionService Iservices.IInteractionService) *HttpHandlers {
	return &HttpHandlers{
		Logger:             logger,
		ChatService:        chatService,
		ContextStore:       contextStore,
		InteractionService: interactionService,
	}
}

// HealthCheck reports that the process is up. It does not probe the stores.
func (th *HttpHandlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	th.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func conversationID(r *http.Request) (string, error) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		return "", errMissingConversationID
	}
	return id, nil
}

func (th *HttpHandlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func (th *HttpHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to write response: %v", err))
	}
}

func (th *HttpHandlers) writeError(w http.ResponseWriter, status int, msg string) {
	th.writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
