//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mealvita-inc/mealvita-engine/pkg/database"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/testhelpers"
)

// mealPlanTestContext holds test dependencies for meal plan repository tests.
type mealPlanTestContext struct {
	t         *testing.T
	engineDB  *testhelpers.EngineDB
	repo      MealPlanRepository
	patientID uuid.UUID
	recipeIDs []uuid.UUID
}

func setupMealPlanTest(t *testing.T) *mealPlanTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	tc := &mealPlanTestContext{
		t:         t,
		engineDB:  engineDB,
		repo:      NewMealPlanRepository(),
		patientID: uuid.New(),
	}
	tc.seed()
	return tc
}

// scopedContext checks out a connection and returns a context carrying it,
// the way the request middleware does in production.
func (tc *mealPlanTestContext) scopedContext() (context.Context, *database.Scope) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithScope(ctx)
	if err != nil {
		tc.t.Fatalf("failed to acquire scope: %v", err)
	}
	return database.SetScope(ctx, scope), scope
}

func (tc *mealPlanTestContext) seed() {
	tc.t.Helper()
	ctx, scope := tc.scopedContext()
	defer scope.Close()

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, date_of_birth, gender)
		VALUES ($1, 'Ana', 'Lopez', '1990-04-12', 'female')
	`, tc.patientID)
	if err != nil {
		tc.t.Fatalf("failed to seed patient: %v", err)
	}

	for i, mealType := range []string{"breakfast", "lunch", "dinner"} {
		id := uuid.New()
		_, err := scope.Conn.Exec(ctx, `
			INSERT INTO recipes (id, recipe_name, meal_type)
			VALUES ($1, $2, $3)
		`, id, "Test Recipe "+mealType, mealType)
		if err != nil {
			tc.t.Fatalf("failed to seed recipe %d: %v", i, err)
		}
		tc.recipeIDs = append(tc.recipeIDs, id)
	}
}

func (tc *mealPlanTestContext) buildPlan(status string) *models.MealPlan {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	plan := &models.MealPlan{
		ID:             uuid.New(),
		PatientID:      tc.patientID,
		PlanName:       "Weekly Plan - 2026-09-07",
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 6),
		Status:         status,
		GeneratedByUID: "staff-uid",
	}
	for i, mealType := range []string{"breakfast", "lunch", "dinner"} {
		plan.Meals = append(plan.Meals, &models.MealPlanMeal{
			ID:            uuid.New(),
			PlanID:        plan.ID,
			RecipeID:      tc.recipeIDs[i],
			DayOfWeek:     "monday",
			MealType:      mealType,
			ScheduledTime: models.DefaultMealTimes[mealType],
			Servings:      1.0,
		})
	}
	return plan
}

func TestMealPlanRepository_CreateVersion_Sequence(t *testing.T) {
	tc := setupMealPlanTest(t)
	ctx, scope := tc.scopedContext()
	defer scope.Close()

	first := tc.buildPlan(models.PlanStatusApproved)
	if err := tc.repo.CreateVersion(ctx, first, nil); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if first.Version != 1 || !first.IsLatest {
		t.Errorf("first plan: version=%d is_latest=%v, want 1 true", first.Version, first.IsLatest)
	}

	second := tc.buildPlan(models.PlanStatusDraft)
	second.ParentPlanID = &first.ID
	if err := tc.repo.CreateVersion(ctx, second, nil); err != nil {
		t.Fatalf("CreateVersion second: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("second plan version = %d, want 2", second.Version)
	}

	// The previous latest must be retired.
	reloaded, err := tc.repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.IsLatest {
		t.Error("first plan still marked latest after second version")
	}
	if len(reloaded.Meals) != 3 {
		t.Errorf("loaded %d meals, want 3", len(reloaded.Meals))
	}

	versions, err := tc.repo.ListVersionsByPatient(ctx, tc.patientID)
	if err != nil {
		t.Fatalf("ListVersionsByPatient: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("listed %d versions, want 2", len(versions))
	}
	// Newest first.
	if versions[0].Version != 2 || versions[1].Version != 1 {
		t.Errorf("version order = %d,%d, want 2,1", versions[0].Version, versions[1].Version)
	}
	if versions[0].MealCount != 3 {
		t.Errorf("meal count = %d, want 3", versions[0].MealCount)
	}
}

func TestMealPlanRepository_LatestApproved(t *testing.T) {
	tc := setupMealPlanTest(t)
	ctx, scope := tc.scopedContext()
	defer scope.Close()

	approved := tc.buildPlan(models.PlanStatusApproved)
	if err := tc.repo.CreateVersion(ctx, approved, nil); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	got, err := tc.repo.GetLatestApprovedByPatient(ctx, tc.patientID)
	if err != nil {
		t.Fatalf("GetLatestApprovedByPatient: %v", err)
	}
	if got == nil || got.ID != approved.ID {
		t.Fatal("expected the approved plan")
	}

	// A draft on top hides the patient's plan entirely.
	draft := tc.buildPlan(models.PlanStatusDraft)
	if err := tc.repo.CreateVersion(ctx, draft, nil); err != nil {
		t.Fatalf("CreateVersion draft: %v", err)
	}

	got, err = tc.repo.GetLatestApprovedByPatient(ctx, tc.patientID)
	if err != nil {
		t.Fatalf("GetLatestApprovedByPatient: %v", err)
	}
	if got != nil {
		t.Error("expected no plan while latest version is a draft")
	}
}

func TestMealPlanRepository_Approve(t *testing.T) {
	tc := setupMealPlanTest(t)
	ctx, scope := tc.scopedContext()
	defer scope.Close()

	plan := tc.buildPlan(models.PlanStatusDraft)
	if err := tc.repo.CreateVersion(ctx, plan, nil); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	now := time.Now().UTC()
	if err := tc.repo.Approve(ctx, plan.ID, "approver-uid", now); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	reloaded, err := tc.repo.GetByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != models.PlanStatusApproved {
		t.Errorf("status = %q, want approved", reloaded.Status)
	}
	if reloaded.ApprovedByUID != "approver-uid" {
		t.Errorf("approved_by_uid = %q", reloaded.ApprovedByUID)
	}
	if reloaded.ApprovedAt == nil {
		t.Error("approved_at not set")
	}
}

func TestMealPlanRepository_TokenRoundTrip(t *testing.T) {
	tc := setupMealPlanTest(t)
	ctx, scope := tc.scopedContext()
	defer scope.Close()

	plan := tc.buildPlan(models.PlanStatusApproved)
	token := &models.MealPlanToken{
		ID:     uuid.New(),
		PlanID: plan.ID,
		Token:  "aW50ZWdyYXRpb24tdGVzdC10b2tlbi12YWx1ZQ",
	}
	if err := tc.repo.CreateVersion(ctx, plan, token); err != nil {
		t.Fatalf("CreateVersion with token: %v", err)
	}

	byValue, err := tc.repo.GetTokenByValue(ctx, token.Token)
	if err != nil {
		t.Fatalf("GetTokenByValue: %v", err)
	}
	if byValue == nil || byValue.PlanID != plan.ID {
		t.Fatal("token lookup by value failed")
	}
	if byValue.ExpiresAt != nil {
		t.Error("share token should never expire")
	}

	byPlan, err := tc.repo.GetTokenByPlanID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetTokenByPlanID: %v", err)
	}
	if byPlan == nil || byPlan.Token != token.Token {
		t.Fatal("token lookup by plan failed")
	}

	unknown, err := tc.repo.GetTokenByValue(ctx, "bm8tc3VjaC10b2tlbg")
	if err != nil {
		t.Fatalf("GetTokenByValue unknown: %v", err)
	}
	if unknown != nil {
		t.Error("unknown token should return nil")
	}
}
