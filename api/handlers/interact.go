package handlers

import (
	"net/http"
	"time"

	"github.com/BaSui01/teamflow/api"
	"github.com/BaSui01/teamflow/orchestrator"
	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// InteractHandler serves the message exchange endpoints.
type InteractHandler struct {
	orch     *orchestrator.Orchestrator
	registry *team.Registry
	logger   *zap.Logger
}

// NewInteractHandler creates the handler.
func NewInteractHandler(orch *orchestrator.Orchestrator, registry *team.Registry, logger *zap.Logger) *InteractHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractHandler{
		orch:     orch,
		registry: registry,
		logger:   logger.With(zap.String("component", "interact_handler")),
	}
}

// Interact handles POST /v1/interact.
func (h *InteractHandler) Interact(w http.ResponseWriter, r *http.Request) {
	var req api.InteractRequest
	if DecodeJSONBody(w, r, &req, h.logger) != nil {
		return
	}
	if req.TeamName == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"teamName is required", h.logger)
		return
	}

	res, err := h.orch.HandleMessage(r.Context(), req.ConversationID, req.TeamName, req.Message)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, api.InteractResponse{
		ConversationID: res.ConversationID,
		Role:           string(res.Turn.Role),
		Content:        res.Turn.Content,
		AgentName:      res.Turn.AgentName,
		ToolCalls:      api.NewToolCallInfos(res.Turn.ToolCalls),
		Handoff:        api.NewHandoffInfo(res.Turn.Handoff),
		ActiveAgent:    res.ActiveAgent,
		Timestamp:      time.Now(),
	})
}

// legacyInferenceRequest is the body of the pre-v1 inference endpoint.
type legacyInferenceRequest struct {
	AgentTeamName string `json:"agent_team_name"`
	UserQuery     string `json:"user_query"`
}

type legacyInferenceResponse struct {
	Result        string `json:"result"`
	DesignPattern string `json:"design_pattern"`
	TeamName      string `json:"team_name"`
}

// LegacyInference handles POST /inferenceAgentTeam, the stateless exchange
// older clients still use. Every call runs in a fresh conversation.
func (h *InteractHandler) LegacyInference(w http.ResponseWriter, r *http.Request) {
	var req legacyInferenceRequest
	if DecodeJSONBody(w, r, &req, h.logger) != nil {
		return
	}

	tm, err := h.registry.Get(req.AgentTeamName)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	res, err := h.orch.HandleMessage(r.Context(), "", req.AgentTeamName, req.UserQuery)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, legacyInferenceResponse{
		Result:        res.Turn.Content,
		DesignPattern: string(tm.Pattern),
		TeamName:      tm.Name,
	})
}
