package handlers

import (
	"net/http"

	"github.com/BaSui01/teamflow/api"
	"github.com/BaSui01/teamflow/session"
	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// ConversationsHandler serves conversation fetch and deletion.
type ConversationsHandler struct {
	store  session.Store
	logger *zap.Logger
}

// NewConversationsHandler creates the handler.
func NewConversationsHandler(store session.Store, logger *zap.Logger) *ConversationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationsHandler{
		store:  store,
		logger: logger.With(zap.String("component", "conversations_handler")),
	}
}

// Get handles GET /v1/conversations/{id}.
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"conversation id is required", h.logger)
		return
	}

	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, api.NewConversationResponse(sess))
}

// Delete handles DELETE /v1/conversations/{id}.
func (h *ConversationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"conversation id is required", h.logger)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.logger.Info("conversation deleted", zap.String("conversation_id", id))
	WriteSuccess(w, map[string]string{"conversationId": id, "status": "deleted"})
}
