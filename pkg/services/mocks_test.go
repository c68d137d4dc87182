package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// ============================================================================
// Mock Repositories for Service Tests
// ============================================================================

type mockMealPlanRepo struct {
	plans     map[uuid.UUID]*models.MealPlan
	tokens    map[string]*models.MealPlanToken
	createErr error
	getErr    error
}

func newMockMealPlanRepo() *mockMealPlanRepo {
	return &mockMealPlanRepo{
		plans:  make(map[uuid.UUID]*models.MealPlan),
		tokens: make(map[string]*models.MealPlanToken),
	}
}

func (m *mockMealPlanRepo) CreateVersion(ctx context.Context, plan *models.MealPlan, token *models.MealPlanToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	maxVersion := 0
	for _, p := range m.plans {
		if p.PatientID == plan.PatientID {
			if p.Version > maxVersion {
				maxVersion = p.Version
			}
			p.IsLatest = false
		}
	}
	plan.Version = maxVersion + 1
	plan.IsLatest = true
	plan.CreatedAt = time.Now()
	for _, meal := range plan.Meals {
		if meal.ID == uuid.Nil {
			meal.ID = uuid.New()
		}
		meal.PlanID = plan.ID
	}
	m.plans[plan.ID] = plan
	if token != nil {
		if token.ID == uuid.Nil {
			token.ID = uuid.New()
		}
		token.PlanID = plan.ID
		m.tokens[token.Token] = token
	}
	return nil
}

func (m *mockMealPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MealPlan, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.plans[id], nil
}

func (m *mockMealPlanRepo) GetLatestApprovedByPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error) {
	for _, p := range m.plans {
		if p.PatientID == patientID && p.IsLatest && p.Status == models.PlanStatusApproved {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockMealPlanRepo) GetLatestByPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error) {
	for _, p := range m.plans {
		if p.PatientID == patientID && p.IsLatest {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockMealPlanRepo) GetByPatientAndVersion(ctx context.Context, patientID uuid.UUID, version int) (*models.MealPlan, error) {
	for _, p := range m.plans {
		if p.PatientID == patientID && p.Version == version {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockMealPlanRepo) ListVersionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*repositories.PlanVersionSummary, error) {
	var summaries []*repositories.PlanVersionSummary
	for _, p := range m.plans {
		if p.PatientID != patientID {
			continue
		}
		summaries = append(summaries, &repositories.PlanVersionSummary{
			ID:        p.ID,
			PlanName:  p.PlanName,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			Status:    p.Status,
			Version:   p.Version,
			IsLatest:  p.IsLatest,
			ParentID:  p.ParentPlanID,
			MealCount: len(p.Meals),
			CreatedAt: p.CreatedAt,
		})
	}
	return summaries, nil
}

func (m *mockMealPlanRepo) Approve(ctx context.Context, id uuid.UUID, approverUID string, now time.Time) error {
	p, ok := m.plans[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Status = models.PlanStatusApproved
	p.ApprovedByUID = approverUID
	p.ApprovedAt = &now
	return nil
}

func (m *mockMealPlanRepo) GetTokenByValue(ctx context.Context, token string) (*models.MealPlanToken, error) {
	return m.tokens[token], nil
}

func (m *mockMealPlanRepo) GetTokenByPlanID(ctx context.Context, planID uuid.UUID) (*models.MealPlanToken, error) {
	for _, t := range m.tokens {
		if t.PlanID == planID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockMealPlanRepo) CreateToken(ctx context.Context, token *models.MealPlanToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	m.tokens[token.Token] = token
	return nil
}

type mockPatientRepo struct {
	patients  map[uuid.UUID]*models.Patient
	createErr error
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*models.Patient)}
}

func (m *mockPatientRepo) CreateWithRestrictions(ctx context.Context, patient *models.Patient) error {
	if m.createErr != nil {
		return m.createErr
	}
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	m.patients[patient.ID] = patient
	return nil
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	return m.patients[id], nil
}

func (m *mockPatientRepo) GetWithRestrictions(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	return m.patients[id], nil
}

func (m *mockPatientRepo) List(ctx context.Context) ([]*models.Patient, error) {
	var patients []*models.Patient
	for _, p := range m.patients {
		patients = append(patients, p)
	}
	return patients, nil
}

func (m *mockPatientRepo) UpdateProfileStatus(ctx context.Context, id uuid.UUID, status string) error {
	p, ok := m.patients[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.ProfileStatus = status
	return nil
}

type mockRecipeRepo struct {
	recipes []*models.Recipe
	listErr error
}

func (m *mockRecipeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	for _, r := range m.recipes {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRecipeRepo) ListActiveWithIngredients(ctx context.Context) ([]*models.Recipe, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.recipes, nil
}

type mockCatalogRepo struct {
	ingredientIDs map[string]uuid.UUID
}

func (m *mockCatalogRepo) ListMedicalConditions(ctx context.Context) ([]*models.MedicalCondition, error) {
	return nil, nil
}

func (m *mockCatalogRepo) ListFoodIntolerances(ctx context.Context) ([]*models.FoodIntolerance, error) {
	return nil, nil
}

func (m *mockCatalogRepo) ListDietaryPreferences(ctx context.Context) ([]*models.DietaryPreference, error) {
	return nil, nil
}

func (m *mockCatalogRepo) ListIngredients(ctx context.Context) ([]*models.Ingredient, error) {
	return nil, nil
}

func (m *mockCatalogRepo) GetIntoleranceNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return nil, nil
}

func (m *mockCatalogRepo) GetIngredientIDsByNames(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	result := make(map[string]uuid.UUID)
	for _, name := range names {
		if id, ok := m.ingredientIDs[name]; ok {
			result[name] = id
		}
	}
	return result, nil
}

type mockInvitationRepo struct {
	invitations map[uuid.UUID]*models.PatientInvitation
	createErr   error
}

func newMockInvitationRepo() *mockInvitationRepo {
	return &mockInvitationRepo{invitations: make(map[uuid.UUID]*models.PatientInvitation)}
}

func (m *mockInvitationRepo) Create(ctx context.Context, inv *models.PatientInvitation) error {
	if m.createErr != nil {
		return m.createErr
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.invitations[inv.ID] = inv
	return nil
}

func (m *mockInvitationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PatientInvitation, error) {
	return m.invitations[id], nil
}

func (m *mockInvitationRepo) GetByToken(ctx context.Context, token string) (*models.PatientInvitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, nil
}

func (m *mockInvitationRepo) List(ctx context.Context, invitedByUID string) ([]*models.PatientInvitation, error) {
	var result []*models.PatientInvitation
	for _, inv := range m.invitations {
		if inv.InvitedByUID == invitedByUID {
			result = append(result, inv)
		}
	}
	return result, nil
}

func (m *mockInvitationRepo) Update(ctx context.Context, inv *models.PatientInvitation) error {
	if _, ok := m.invitations[inv.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.invitations[inv.ID] = inv
	return nil
}

func (m *mockInvitationRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for _, inv := range m.invitations {
		if inv.Status == models.InvitationStatusPending && !inv.ExpiresAt.After(now) {
			inv.Status = models.InvitationStatusExpired
			count++
		}
	}
	return count, nil
}

func (m *mockInvitationRepo) CountByStatus(ctx context.Context, invitedByUID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, inv := range m.invitations {
		if inv.InvitedByUID == invitedByUID {
			counts[inv.Status]++
		}
	}
	return counts, nil
}

// ============================================================================
// Fixtures
// ============================================================================

// fixtureRecipes builds n active recipes per generated meal type. Each recipe
// gets a single distinct ingredient unless withIngredient is supplied.
func fixtureRecipes(n int, withIngredient *models.RecipeIngredient) []*models.Recipe {
	var recipes []*models.Recipe
	for _, mealType := range models.GeneratedMealTypes {
		for i := 0; i < n; i++ {
			r := &models.Recipe{
				ID:         uuid.New(),
				RecipeName: mealType,
				MealType:   mealType,
				IsActive:   true,
			}
			if withIngredient != nil {
				r.Ingredients = []*models.RecipeIngredient{withIngredient}
			} else {
				r.Ingredients = []*models.RecipeIngredient{{
					ID:           uuid.New(),
					IngredientID: uuid.New(),
				}}
			}
			recipes = append(recipes, r)
		}
	}
	return recipes
}
