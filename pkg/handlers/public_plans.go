package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/logging"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// PublicPlansHandler serves the patient-facing plan view. No staff auth;
// the share token is the credential.
type PublicPlansHandler struct {
	planService services.MealPlanService
	logger      *zap.Logger
}

// NewPublicPlansHandler creates a new PublicPlansHandler.
func NewPublicPlansHandler(planService services.MealPlanService, logger *zap.Logger) *PublicPlansHandler {
	return &PublicPlansHandler{planService: planService, logger: logger}
}

// RegisterRoutes registers the public plans handler's routes on the given mux.
func (h *PublicPlansHandler) RegisterRoutes(mux *http.ServeMux, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/public/plans/{token}", scope(h.GetByToken))
	mux.HandleFunc("GET /api/public/plans", scope(h.GetFromSession))
}

// GetByToken handles GET /api/public/plans/{token} requests. On success the
// token is remembered in the session cookie so the patient can return to
// /api/public/plans without the full link.
func (h *PublicPlansHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	view, err := h.planService.GetPlanByToken(r.Context(), token)
	if err != nil {
		h.logger.Info("Public plan lookup failed", zap.String("token", logging.MaskToken(token)))
		handleServiceError(w, h.logger, err)
		return
	}

	if session, sErr := auth.GetSession(r); sErr == nil {
		session.Values[auth.SessionKeyPlanToken] = token
		if sErr := auth.SaveSession(r, w, session); sErr != nil {
			h.logger.Warn("Failed to save plan view session", zap.Error(sErr))
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: view}); err != nil {
		h.logger.Error("Failed to encode public plan response", zap.Error(err))
	}
}

// GetFromSession handles GET /api/public/plans requests using the token
// stored by a previous GetByToken call.
func (h *PublicPlansHandler) GetFromSession(w http.ResponseWriter, r *http.Request) {
	session, err := auth.GetSession(r)
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "No plan session")
		return
	}

	token, ok := session.Values[auth.SessionKeyPlanToken].(string)
	if !ok || token == "" {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "No plan session")
		return
	}

	view, err := h.planService.GetPlanByToken(r.Context(), token)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: view}); err != nil {
		h.logger.Error("Failed to encode public plan response", zap.Error(err))
	}
}
