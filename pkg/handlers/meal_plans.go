package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// MealPlansHandler handles staff-facing meal plan and version endpoints.
type MealPlansHandler struct {
	planService       services.MealPlanService
	versioningService services.VersioningService
	logger            *zap.Logger
}

// NewMealPlansHandler creates a new MealPlansHandler.
func NewMealPlansHandler(planService services.MealPlanService, versioningService services.VersioningService, logger *zap.Logger) *MealPlansHandler {
	return &MealPlansHandler{
		planService:       planService,
		versioningService: versioningService,
		logger:            logger,
	}
}

// RegisterRoutes registers the meal plans handler's routes on the given mux.
// All routes require a staff role.
func (h *MealPlansHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/patients/{id}/plans", authMiddleware.RequireStaff(scope(h.Generate)))
	mux.HandleFunc("GET /api/patients/{id}/plans", authMiddleware.RequireStaff(scope(h.ListVersions)))
	mux.HandleFunc("GET /api/patients/{id}/plans/latest", authMiddleware.RequireStaff(scope(h.GetLatest)))
	mux.HandleFunc("GET /api/patients/{id}/plans/stats", authMiddleware.RequireStaff(scope(h.VersionStats)))
	mux.HandleFunc("POST /api/patients/{id}/plans/revert", authMiddleware.RequireStaff(scope(h.Revert)))

	mux.HandleFunc("GET /api/plans/{id}", authMiddleware.RequireStaff(scope(h.Get)))
	mux.HandleFunc("POST /api/plans/{id}/approve", authMiddleware.RequireStaff(scope(h.Approve)))
	mux.HandleFunc("POST /api/plans/{id}/duplicate", authMiddleware.RequireStaff(scope(h.Duplicate)))
	mux.HandleFunc("POST /api/plans/{id}/versions", authMiddleware.RequireStaff(scope(h.CreateVersion)))
	mux.HandleFunc("GET /api/plans/{id}/compare/{other}", authMiddleware.RequireStaff(scope(h.Compare)))
}

// GeneratePlanRequest controls plan generation. When AutoApprove is set the
// plan is approved immediately and gets a share token.
type GeneratePlanRequest struct {
	AutoApprove bool `json:"auto_approve,omitempty"`
}

// Generate handles POST /api/patients/{id}/plans requests.
func (h *MealPlansHandler) Generate(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	patientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	// Body is optional; an empty body means a draft.
	var req GeneratePlanRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var plan *models.MealPlan
	if req.AutoApprove {
		plan, err = h.planService.Generate(r.Context(), patientID, uid)
	} else {
		plan, err = h.planService.GenerateDraft(r.Context(), patientID, uid)
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Meal plan generated",
		zap.String("plan_id", plan.ID.String()),
		zap.String("patient_id", patientID.String()),
		zap.Int("version", plan.Version),
		zap.String("status", plan.Status))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// Get handles GET /api/plans/{id} requests.
func (h *MealPlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid plan ID")
		return
	}

	plan, err := h.planService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// GetLatest handles GET /api/patients/{id}/plans/latest requests. Only an
// approved latest version qualifies; a draft on top hides the plan.
func (h *MealPlansHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	plan, err := h.planService.GetLatestForPatient(r.Context(), patientID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// Approve handles POST /api/plans/{id}/approve requests.
func (h *MealPlansHandler) Approve(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid plan ID")
		return
	}

	plan, err := h.planService.Approve(r.Context(), id, uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Meal plan approved",
		zap.String("plan_id", plan.ID.String()),
		zap.String("approved_by", uid))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// DuplicatePlanRequest shifts a plan onto a new start date.
type DuplicatePlanRequest struct {
	StartDate string `json:"start_date"`
}

// Duplicate handles POST /api/plans/{id}/duplicate requests.
func (h *MealPlansHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid plan ID")
		return
	}

	var req DuplicatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "start_date must be YYYY-MM-DD")
		return
	}

	plan, err := h.planService.Duplicate(r.Context(), id, startDate, uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Meal plan duplicated",
		zap.String("source_plan_id", id.String()),
		zap.String("plan_id", plan.ID.String()))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// CreateVersionRequest carries the changes for a new version. Overrides swap
// recipes in individual slots; meals, when present, replaces the base plan's
// meal list entirely.
type CreateVersionRequest struct {
	Overrides []services.MealOverride `json:"overrides,omitempty"`
	Meals     []services.MealSpec     `json:"meals,omitempty"`
}

// CreateVersion handles POST /api/plans/{id}/versions requests. The new
// version copies the base plan's meals with the given overrides applied, or
// uses the submitted meal list verbatim when one is supplied.
func (h *MealPlansHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	basePlanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid plan ID")
		return
	}

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	plan, err := h.versioningService.CreateNewVersionFromExisting(r.Context(), basePlanID, uid, services.VersionUpdate{
		Overrides: req.Overrides,
		Meals:     req.Meals,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Plan version created",
		zap.String("base_plan_id", basePlanID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("version", plan.Version))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// ListVersions handles GET /api/patients/{id}/plans requests. Returns the
// patient's full version history, newest first.
func (h *MealPlansHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	versions, err := h.versioningService.ListVersions(r.Context(), patientID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: versions}); err != nil {
		h.logger.Error("Failed to encode versions response", zap.Error(err))
	}
}

// RevertRequest names the version to restore.
type RevertRequest struct {
	Version int `json:"version"`
}

// Revert handles POST /api/patients/{id}/plans/revert requests. The target
// version's meals become a new draft version; history is never rewritten.
func (h *MealPlansHandler) Revert(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.UserUID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	patientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	var req RevertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Version < 1 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "version must be a positive integer")
		return
	}

	plan, err := h.versioningService.RevertToVersion(r.Context(), patientID, req.Version, uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Plan reverted",
		zap.String("patient_id", patientID.String()),
		zap.Int("restored_version", req.Version),
		zap.Int("new_version", plan.Version))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: plan}); err != nil {
		h.logger.Error("Failed to encode plan response", zap.Error(err))
	}
}

// Compare handles GET /api/plans/{id}/compare/{other} requests.
func (h *MealPlansHandler) Compare(w http.ResponseWriter, r *http.Request) {
	planAID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid plan ID")
		return
	}
	planBID, err := uuid.Parse(r.PathValue("other"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid plan ID")
		return
	}

	comparison, err := h.versioningService.GetVersionComparison(r.Context(), planAID, planBID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: comparison}); err != nil {
		h.logger.Error("Failed to encode comparison response", zap.Error(err))
	}
}

// VersionStats handles GET /api/patients/{id}/plans/stats requests.
func (h *MealPlansHandler) VersionStats(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid patient ID")
		return
	}

	stats, err := h.versioningService.GetVersionStatistics(r.Context(), patientID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to encode version stats response", zap.Error(err))
	}
}
