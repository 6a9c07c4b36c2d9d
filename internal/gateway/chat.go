package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
)

// errEmptyMessages is the client-visible text for an absent or empty
// conversation.
const errEmptyMessages = "Messages array is required and cannot be empty"

// ChatHandler handles the POST /chat endpoint.
type ChatHandler struct {
	responder *chat.Responder
	logger    log.Logger
}

// NewChatHandler creates a chat handler backed by the given responder.
func NewChatHandler(responder *chat.Responder, logger log.Logger) *ChatHandler {
	return &ChatHandler{responder: responder, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.handleChat)
}

// handleChat validates the conversation and asks the responder for one
// assistant message. The only failure modes the caller can see are
// invalid input (400) and an internal fault (500); provider failures
// are absorbed inside the responder.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChatError(w, h.logger, http.StatusBadRequest, errEmptyMessages)
		return
	}
	if len(req.Messages) == 0 {
		writeChatError(w, h.logger, http.StatusBadRequest, errEmptyMessages)
		return
	}

	reply, err := h.responder.Reply(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, chat.ErrNoMessages) {
			writeChatError(w, h.logger, http.StatusBadRequest, errEmptyMessages)
			return
		}
		h.logger.Error("responder failed", "error", err)
		writeChatError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, chat.Response{
		Success: true,
		Message: reply.Content,
	})
}
