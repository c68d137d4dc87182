package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/config"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// Pinger reports database reachability.
type Pinger interface {
	Healthy(ctx context.Context) error
}

// PingResponse reports the service's version and the state of its two hard
// dependencies, the database and the intolerance exclusion map.
type PingResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Service        string `json:"service"`
	Environment    string `json:"environment"`
	Database       string `json:"database"`
	ExclusionRules int    `json:"exclusion_rules"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg        *config.Config
	db         Pinger
	exclusions *services.ExclusionMap
	logger     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, db Pinger, exclusions *services.ExclusionMap, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, exclusions: exclusions, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests. Liveness for Cloud Run; must answer
// even when the database is down.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests. Readiness: reports version info and
// checks the database, answering 503 when it is unreachable.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response := PingResponse{
		Status:         "ok",
		Version:        h.cfg.Version,
		Service:        "mealvita-engine",
		Environment:    h.cfg.Env,
		Database:       "ok",
		ExclusionRules: h.exclusions.Len(),
	}

	status := http.StatusOK
	if err := h.db.Healthy(r.Context()); err != nil {
		h.logger.Warn("Readiness check failed: database unreachable", zap.Error(err))
		response.Status = "degraded"
		response.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
