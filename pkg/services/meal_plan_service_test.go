package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

func newTestMealPlanService(planRepo *mockMealPlanRepo, patientRepo *mockPatientRepo, recipeRepo *mockRecipeRepo) MealPlanService {
	resolver := NewRestrictionResolver(&mockCatalogRepo{}, NewExclusionMap(nil), zap.NewNop())
	allocator := NewWeekAllocator(rand.New(rand.NewSource(1)))
	return NewMealPlanService(planRepo, patientRepo, recipeRepo, resolver, allocator, zap.NewNop())
}

func seedPatient(repo *mockPatientRepo) *models.Patient {
	patient := &models.Patient{
		ID:        uuid.New(),
		FirstName: "Ana",
		LastName:  "Lopez",
		IsActive:  true,
	}
	repo.patients[patient.ID] = patient
	return patient
}

func TestGenerate_PersistsApprovedPlanWithToken(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(7, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	plan, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	assert.Equal(t, models.PlanStatusApproved, plan.Status)
	assert.Equal(t, "nutritionist-1", plan.GeneratedByUID)
	assert.Equal(t, "nutritionist-1", plan.ApprovedByUID)
	assert.NotNil(t, plan.ApprovedAt)
	assert.Equal(t, 1, plan.Version)
	assert.True(t, plan.IsLatest)
	assert.Len(t, plan.Meals, 21)
	assert.Equal(t, 6, plan.Duration())

	// Plan week starts on a Monday strictly in the future.
	assert.Equal(t, time.Monday, plan.StartDate.Weekday())
	assert.True(t, plan.StartDate.After(time.Now()))

	token, err := planRepo.GetTokenByPlanID(context.Background(), plan.ID)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Len(t, token.Token, 43)
	assert.Nil(t, token.ExpiresAt)
}

func TestGenerateDraft_NoTokenNotApproved(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(8, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	plan, err := svc.GenerateDraft(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	assert.Equal(t, models.PlanStatusDraft, plan.Status)
	assert.Empty(t, plan.ApprovedByUID)

	token, err := planRepo.GetTokenByPlanID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestGenerate_InsufficientRecipesNothingPersisted(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(5, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	_, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")

	var insufficientErr *apperrors.InsufficientRecipesError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Empty(t, planRepo.plans)
	assert.Empty(t, planRepo.tokens)
}

func TestGenerate_UnknownPatient(t *testing.T) {
	svc := newTestMealPlanService(newMockMealPlanRepo(), newMockPatientRepo(), &mockRecipeRepo{})

	_, err := svc.Generate(context.Background(), uuid.New(), "nutritionist-1")
	assert.ErrorIs(t, err, apperrors.ErrPatientNotFound)
}

func TestApprove_Reapproval(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(7, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	plan, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), plan.ID, "nutritionist-2")
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusApproved, approved.Status)
	assert.Equal(t, "nutritionist-2", approved.ApprovedByUID)
}

func TestApprove_NotFound(t *testing.T) {
	svc := newTestMealPlanService(newMockMealPlanRepo(), newMockPatientRepo(), &mockRecipeRepo{})

	_, err := svc.Approve(context.Background(), uuid.New(), "nutritionist-1")
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}

func TestGetLatestForPatient_SkipsDrafts(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(7, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	approved, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	latest, err := svc.GetLatestForPatient(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Equal(t, approved.ID, latest.ID)

	// A newer draft hides the plan from the latest-approved query.
	_, err = svc.GenerateDraft(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	_, err = svc.GetLatestForPatient(context.Background(), patient.ID)
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}

func TestDuplicate_ShiftsDatesAndStaysDraft(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(7, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	source, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	newStart := source.StartDate.AddDate(0, 0, 14)
	dup, err := svc.Duplicate(context.Background(), source.ID, newStart, "nutritionist-1")
	require.NoError(t, err)

	assert.Equal(t, models.PlanStatusDraft, dup.Status)
	assert.Equal(t, newStart, dup.StartDate)
	assert.Equal(t, source.Duration(), dup.Duration())
	assert.Equal(t, 2, dup.Version)
	require.NotNil(t, dup.ParentPlanID)
	assert.Equal(t, source.ID, *dup.ParentPlanID)

	assert.Equal(t, source.SlotMap(), dup.SlotMap())
}

func TestGetPlanByToken(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(7, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	plan, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	token, err := planRepo.GetTokenByPlanID(context.Background(), plan.ID)
	require.NoError(t, err)

	view, err := svc.GetPlanByToken(context.Background(), token.Token)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, view.PlanID)
	assert.Equal(t, "Ana Lopez", view.PatientName)
	assert.Len(t, view.Days, 7)
	for _, day := range view.Days {
		assert.Len(t, day.Meals, 3)
	}
}

func TestGetPlanByToken_Unknown(t *testing.T) {
	svc := newTestMealPlanService(newMockMealPlanRepo(), newMockPatientRepo(), &mockRecipeRepo{})

	_, err := svc.GetPlanByToken(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}

func TestGetPlanByToken_Expired(t *testing.T) {
	planRepo := newMockMealPlanRepo()
	patientRepo := newMockPatientRepo()
	recipeRepo := &mockRecipeRepo{recipes: fixtureRecipes(7, nil)}
	svc := newTestMealPlanService(planRepo, patientRepo, recipeRepo)
	patient := seedPatient(patientRepo)

	plan, err := svc.Generate(context.Background(), patient.ID, "nutritionist-1")
	require.NoError(t, err)

	token, err := planRepo.GetTokenByPlanID(context.Background(), plan.ID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	token.ExpiresAt = &past

	_, err = svc.GetPlanByToken(context.Background(), token.Token)
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}

func TestNextMonday(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "wednesday goes to next monday",
			now:  time.Date(2026, 3, 4, 15, 30, 0, 0, loc),
			want: time.Date(2026, 3, 9, 0, 0, 0, 0, loc),
		},
		{
			name: "sunday goes to tomorrow",
			now:  time.Date(2026, 3, 8, 9, 0, 0, 0, loc),
			want: time.Date(2026, 3, 9, 0, 0, 0, 0, loc),
		},
		{
			name: "monday skips a full week",
			now:  time.Date(2026, 3, 9, 0, 0, 0, 0, loc),
			want: time.Date(2026, 3, 16, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextMonday(tt.now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}
