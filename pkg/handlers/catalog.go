package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// CatalogHandler serves the reference catalogs the intake form renders,
// plus the recipe list for the staff dashboard. Catalog routes are public:
// the form is filled in before the patient has any credential beyond the
// invitation link.
type CatalogHandler struct {
	catalogRepo repositories.CatalogRepository
	recipeRepo  repositories.RecipeRepository
	logger      *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogRepo repositories.CatalogRepository, recipeRepo repositories.RecipeRepository, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogRepo: catalogRepo, recipeRepo: recipeRepo, logger: logger}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/catalog/conditions", scope(h.ListConditions))
	mux.HandleFunc("GET /api/catalog/intolerances", scope(h.ListIntolerances))
	mux.HandleFunc("GET /api/catalog/preferences", scope(h.ListPreferences))
	mux.HandleFunc("GET /api/catalog/ingredients", scope(h.ListIngredients))

	mux.HandleFunc("GET /api/recipes", authMiddleware.RequireStaff(scope(h.ListRecipes)))
}

// ListConditions handles GET /api/catalog/conditions requests.
func (h *CatalogHandler) ListConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := h.catalogRepo.ListMedicalConditions(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: conditions}); err != nil {
		h.logger.Error("Failed to encode conditions response", zap.Error(err))
	}
}

// ListIntolerances handles GET /api/catalog/intolerances requests.
func (h *CatalogHandler) ListIntolerances(w http.ResponseWriter, r *http.Request) {
	intolerances, err := h.catalogRepo.ListFoodIntolerances(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: intolerances}); err != nil {
		h.logger.Error("Failed to encode intolerances response", zap.Error(err))
	}
}

// ListPreferences handles GET /api/catalog/preferences requests.
func (h *CatalogHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	preferences, err := h.catalogRepo.ListDietaryPreferences(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: preferences}); err != nil {
		h.logger.Error("Failed to encode preferences response", zap.Error(err))
	}
}

// ListRecipes handles GET /api/recipes requests. Returns active recipes with
// their ingredient links for the staff dashboard.
func (h *CatalogHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipeRepo.ListActiveWithIngredients(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: recipes}); err != nil {
		h.logger.Error("Failed to encode recipes response", zap.Error(err))
	}
}

// ListIngredients handles GET /api/catalog/ingredients requests.
func (h *CatalogHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.catalogRepo.ListIngredients(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: ingredients}); err != nil {
		h.logger.Error("Failed to encode ingredients response", zap.Error(err))
	}
}
