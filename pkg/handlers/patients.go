package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// PatientsHandler handles patient profile endpoints. Profile submission is
// public and authenticated by invitation token; the rest is staff-only.
type PatientsHandler struct {
	patientService    services.PatientService
	invitationService services.InvitationService
	logger            *zap.Logger
}

// NewPatientsHandler creates a new PatientsHandler.
func NewPatientsHandler(patientService services.PatientService, invitationService services.InvitationService, logger *zap.Logger) *PatientsHandler {
	return &PatientsHandler{
		patientService:    patientService,
		invitationService: invitationService,
		logger:            logger,
	}
}

// RegisterRoutes registers the patients handler's routes on the given mux.
func (h *PatientsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	// Public intake flow, reached from the invitation email link.
	mux.HandleFunc("GET /api/public/invitations/{token}", scope(h.CheckInvitation))
	mux.HandleFunc("POST /api/public/invitations/{token}/profile", scope(h.SubmitProfile))

	mux.HandleFunc("GET /api/patients", authMiddleware.RequireStaff(scope(h.List)))
	mux.HandleFunc("GET /api/patients/{id}", authMiddleware.RequireStaff(scope(h.Get)))
	mux.HandleFunc("POST /api/patients/{id}/approve", authMiddleware.RequireStaff(scope(h.ApproveProfile)))
}

// InvitationCheckResponse tells the intake form who the invitation is for
// without exposing the full invitation record.
type InvitationCheckResponse struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// CheckInvitation handles GET /api/public/invitations/{token} requests.
// The intake form calls it before rendering to pre-fill the patient's name
// and reject dead links early.
func (h *PatientsHandler) CheckInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invitationService.ValidateToken(r.Context(), r.PathValue("token"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	response := InvitationCheckResponse{
		Email:     inv.Email,
		FirstName: inv.FirstName,
		LastName:  inv.LastName,
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to encode invitation check response", zap.Error(err))
	}
}

// SubmitProfile handles POST /api/public/invitations/{token}/profile requests.
func (h *PatientsHandler) SubmitProfile(w http.ResponseWriter, r *http.Request) {
	var sub services.ProfileSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.patientService.SubmitProfile(r.Context(), r.PathValue("token"), &sub)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Patient profile submitted",
		zap.String("patient_id", result.Patient.ID.String()),
		zap.Bool("plan_pending", result.PlanPending))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to encode profile response", zap.Error(err))
	}
}

// List handles GET /api/patients requests.
func (h *PatientsHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientService.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: patients}); err != nil {
		h.logger.Error("Failed to encode patients response", zap.Error(err))
	}
}

// Get handles GET /api/patients/{id} requests.
func (h *PatientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	patient, err := h.patientService.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: patient}); err != nil {
		h.logger.Error("Failed to encode patient response", zap.Error(err))
	}
}

// ApproveProfile handles POST /api/patients/{id}/approve requests.
func (h *PatientsHandler) ApproveProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	patient, err := h.patientService.ApproveProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Patient profile approved", zap.String("patient_id", patient.ID.String()))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: patient}); err != nil {
		h.logger.Error("Failed to encode patient response", zap.Error(err))
	}
}
