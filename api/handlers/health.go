package handlers

import (
	"net/http"
	"time"

	"github.com/BaSui01/teamflow/session"
	"github.com/BaSui01/teamflow/team"
	"go.uber.org/zap"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store     session.Store
	registry  *team.Registry
	version   string
	startTime time.Time
	logger    *zap.Logger
}

// NewHealthHandler creates the handler.
func NewHealthHandler(store session.Store, registry *team.Registry, version string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		store:     store,
		registry:  registry,
		version:   version,
		startTime: time.Now(),
		logger:    logger.With(zap.String("component", "health_handler")),
	}
}

type healthStatus struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	TeamsTotal int               `json:"teams_total"`
	Components map[string]string `json:"components"`
}

// Healthz handles GET /healthz: readiness including a store ping.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:     "ok",
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		TeamsTotal: h.registry.Len(),
		Components: map[string]string{"session_store": "ok"},
	}

	httpStatus := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("session store ping failed", zap.Error(err))
		status.Status = "degraded"
		status.Components["session_store"] = err.Error()
		httpStatus = http.StatusServiceUnavailable
	}
	if status.TeamsTotal == 0 {
		status.Status = "degraded"
		status.Components["team_registry"] = "no teams loaded"
		httpStatus = http.StatusServiceUnavailable
	}

	WriteJSON(w, httpStatus, status)
}

// Live handles GET /livez: process liveness only.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
