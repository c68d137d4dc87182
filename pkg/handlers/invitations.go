package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/logging"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// InvitationsHandler handles staff-facing patient invitation endpoints.
type InvitationsHandler struct {
	invitationService services.InvitationService
	logger            *zap.Logger
}

// NewInvitationsHandler creates a new InvitationsHandler.
func NewInvitationsHandler(invitationService services.InvitationService, logger *zap.Logger) *InvitationsHandler {
	return &InvitationsHandler{
		invitationService: invitationService,
		logger:            logger,
	}
}

// RegisterRoutes registers the invitations handler's routes on the given mux.
func (h *InvitationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/invitations", authMiddleware.RequireStaff(scope(h.Create)))
	mux.HandleFunc("GET /api/invitations", authMiddleware.RequireStaff(scope(h.List)))
	mux.HandleFunc("GET /api/invitations/stats", authMiddleware.RequireStaff(scope(h.Stats)))
	mux.HandleFunc("POST /api/invitations/{id}/regenerate", authMiddleware.RequireStaff(scope(h.Regenerate)))
}

// CreateInvitationRequest is the payload for inviting a patient.
type CreateInvitationRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Create handles POST /api/invitations requests.
func (h *InvitationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	inv, err := h.invitationService.Create(r.Context(), req.Email, req.FirstName, req.LastName, uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Invitation created",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("email", logging.MaskEmail(inv.Email)))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: inv}); err != nil {
		h.logger.Error("Failed to encode invitation response", zap.Error(err))
	}
}

// List handles GET /api/invitations requests. Results are scoped to the
// authenticated staff member.
func (h *InvitationsHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	invitations, err := h.invitationService.List(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: invitations}); err != nil {
		h.logger.Error("Failed to encode invitations response", zap.Error(err))
	}
}

// Stats handles GET /api/invitations/stats requests.
func (h *InvitationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	stats, err := h.invitationService.Stats(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to encode invitation stats response", zap.Error(err))
	}
}

// Regenerate handles POST /api/invitations/{id}/regenerate requests. It
// issues a fresh token and restarts the expiry window.
func (h *InvitationsHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid invitation ID")
		return
	}

	inv, err := h.invitationService.Regenerate(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Invitation token regenerated", zap.String("invitation_id", inv.ID.String()))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: inv}); err != nil {
		h.logger.Error("Failed to encode invitation response", zap.Error(err))
	}
}
