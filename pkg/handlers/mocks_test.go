package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// withStaffClaims attaches nutritionist claims the way the auth middleware
// would, so handlers that read the caller's UID can run in isolation.
func withStaffClaims(r *http.Request, uid string) *http.Request {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uid},
		Email:            "staff@clinic.example",
		Roles:            []string{auth.RoleNutritionist},
	}
	ctx := context.WithValue(r.Context(), auth.ClaimsKey, claims)
	return r.WithContext(ctx)
}

func samplePlan(patientID uuid.UUID, version int, status string) *models.MealPlan {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return &models.MealPlan{
		ID:             uuid.New(),
		PatientID:      patientID,
		PlanName:       "Weekly Plan - 2026-09-07",
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 6),
		Status:         status,
		GeneratedByUID: "staff-uid",
		Version:        version,
		IsLatest:       true,
	}
}

// mockMealPlanService is a mock for services.MealPlanService.
type mockMealPlanService struct {
	plan        *models.MealPlan
	view        *services.PublicPlanView
	generateErr error
	approveErr  error
	getErr      error
	dupErr      error
	tokenErr    error

	lastToken       string
	lastAutoApprove bool
}

func (m *mockMealPlanService) Generate(ctx context.Context, patientID uuid.UUID, uid string) (*models.MealPlan, error) {
	m.lastAutoApprove = true
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.plan, nil
}

func (m *mockMealPlanService) GenerateDraft(ctx context.Context, patientID uuid.UUID, uid string) (*models.MealPlan, error) {
	m.lastAutoApprove = false
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.plan, nil
}

func (m *mockMealPlanService) Approve(ctx context.Context, planID uuid.UUID, uid string) (*models.MealPlan, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return m.plan, nil
}

func (m *mockMealPlanService) GetByID(ctx context.Context, planID uuid.UUID) (*models.MealPlan, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.plan, nil
}

func (m *mockMealPlanService) GetLatestForPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.plan, nil
}

func (m *mockMealPlanService) Duplicate(ctx context.Context, planID uuid.UUID, newStartDate time.Time, uid string) (*models.MealPlan, error) {
	if m.dupErr != nil {
		return nil, m.dupErr
	}
	return m.plan, nil
}

func (m *mockMealPlanService) GetPlanByToken(ctx context.Context, token string) (*services.PublicPlanView, error) {
	m.lastToken = token
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	return m.view, nil
}

// mockVersioningService is a mock for services.VersioningService.
type mockVersioningService struct {
	plan       *models.MealPlan
	versions   []*repositories.PlanVersionSummary
	comparison *services.VersionComparison
	stats      *services.VersionStatistics
	err        error

	lastUpdate services.VersionUpdate
	lastRevert int
}

func (m *mockVersioningService) CreateNewVersionFromExisting(ctx context.Context, basePlanID uuid.UUID, uid string, update services.VersionUpdate) (*models.MealPlan, error) {
	m.lastUpdate = update
	if m.err != nil {
		return nil, m.err
	}
	return m.plan, nil
}

func (m *mockVersioningService) ApproveVersion(ctx context.Context, planID uuid.UUID, uid string) (*models.MealPlan, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.plan, nil
}

func (m *mockVersioningService) RevertToVersion(ctx context.Context, patientID uuid.UUID, version int, uid string) (*models.MealPlan, error) {
	m.lastRevert = version
	if m.err != nil {
		return nil, m.err
	}
	return m.plan, nil
}

func (m *mockVersioningService) ListVersions(ctx context.Context, patientID uuid.UUID) ([]*repositories.PlanVersionSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.versions, nil
}

func (m *mockVersioningService) GetVersionComparison(ctx context.Context, planAID, planBID uuid.UUID) (*services.VersionComparison, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.comparison, nil
}

func (m *mockVersioningService) GetVersionStatistics(ctx context.Context, patientID uuid.UUID) (*services.VersionStatistics, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// mockInvitationService is a mock for services.InvitationService.
type mockInvitationService struct {
	invitation *models.PatientInvitation
	list       []*models.PatientInvitation
	stats      map[string]int
	err        error

	completedID uuid.UUID
}

func (m *mockInvitationService) Create(ctx context.Context, email, firstName, lastName, uid string) (*models.PatientInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.invitation, nil
}

func (m *mockInvitationService) ValidateToken(ctx context.Context, token string) (*models.PatientInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.invitation, nil
}

func (m *mockInvitationService) Regenerate(ctx context.Context, id uuid.UUID) (*models.PatientInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.invitation, nil
}

func (m *mockInvitationService) Complete(ctx context.Context, id uuid.UUID) error {
	m.completedID = id
	return m.err
}

func (m *mockInvitationService) List(ctx context.Context, uid string) ([]*models.PatientInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockInvitationService) Stats(ctx context.Context, uid string) (map[string]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func (m *mockInvitationService) SweepExpired(ctx context.Context) (int64, error) {
	return 0, m.err
}

// mockPatientService is a mock for services.PatientService.
type mockPatientService struct {
	patient *models.Patient
	result  *services.ProfileResult
	list    []*models.Patient
	err     error

	lastSubmission *services.ProfileSubmission
}

func (m *mockPatientService) SubmitProfile(ctx context.Context, invitationToken string, sub *services.ProfileSubmission) (*services.ProfileResult, error) {
	m.lastSubmission = sub
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockPatientService) Get(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.patient, nil
}

func (m *mockPatientService) List(ctx context.Context) ([]*models.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockPatientService) ApproveProfile(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.patient, nil
}

// mockRecipeRepo is a mock for repositories.RecipeRepository.
type mockRecipeRepo struct {
	recipes []*models.Recipe
	err     error
}

func (m *mockRecipeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.recipes {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRecipeRepo) ListActiveWithIngredients(ctx context.Context) ([]*models.Recipe, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.recipes, nil
}

// mockCatalogRepo is a mock for repositories.CatalogRepository.
type mockCatalogRepo struct {
	conditions   []*models.MedicalCondition
	intolerances []*models.FoodIntolerance
	preferences  []*models.DietaryPreference
	ingredients  []*models.Ingredient
	err          error
}

func (m *mockCatalogRepo) ListMedicalConditions(ctx context.Context) ([]*models.MedicalCondition, error) {
	return m.conditions, m.err
}

func (m *mockCatalogRepo) ListFoodIntolerances(ctx context.Context) ([]*models.FoodIntolerance, error) {
	return m.intolerances, m.err
}

func (m *mockCatalogRepo) ListDietaryPreferences(ctx context.Context) ([]*models.DietaryPreference, error) {
	return m.preferences, m.err
}

func (m *mockCatalogRepo) ListIngredients(ctx context.Context) ([]*models.Ingredient, error) {
	return m.ingredients, m.err
}

func (m *mockCatalogRepo) GetIntoleranceNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return map[uuid.UUID]string{}, m.err
}

func (m *mockCatalogRepo) GetIngredientIDsByNames(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	return map[string]uuid.UUID{}, m.err
}
