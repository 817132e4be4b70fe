package handlers

import (
	"net/http"
	"sort"

	"github.com/BaSui01/teamflow/api"
	"github.com/BaSui01/teamflow/team"
	"go.uber.org/zap"
)

// TeamsHandler serves the team listing.
type TeamsHandler struct {
	registry *team.Registry
	logger   *zap.Logger
}

// NewTeamsHandler creates the handler.
func NewTeamsHandler(registry *team.Registry, logger *zap.Logger) *TeamsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamsHandler{
		registry: registry,
		logger:   logger.With(zap.String("component", "teams_handler")),
	}
}

// List handles GET /v1/teams.
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.List()
	teams := make([]api.TeamInfo, 0, len(summaries))
	for _, s := range summaries {
		teams = append(teams, api.TeamInfo{
			TeamName:      s.TeamName,
			DesignPattern: s.DesignPattern,
			Description:   s.Description,
		})
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].TeamName < teams[j].TeamName })

	WriteJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}
