package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// MealPlanService owns the plan lifecycle: generation, approval, duplication
// and token-based public reads.
type MealPlanService interface {
	// Generate builds and persists a new auto-approved weekly plan for the
	// patient, starting next Monday, with a never-expiring share token. The
	// plan, its 21 meals and the token are written in one transaction.
	Generate(ctx context.Context, patientID uuid.UUID, generatedByUID string) (*models.MealPlan, error)

	// GenerateDraft is the nutritionist-initiated variant: same pipeline,
	// but the plan lands as a draft with no token.
	GenerateDraft(ctx context.Context, patientID uuid.UUID, generatedByUID string) (*models.MealPlan, error)

	// Approve marks a plan approved. Re-approving refreshes approver and
	// timestamp; this is allowed.
	Approve(ctx context.Context, planID uuid.UUID, approvedByUID string) (*models.MealPlan, error)

	GetByID(ctx context.Context, planID uuid.UUID) (*models.MealPlan, error)

	// GetLatestForPatient returns the patient's current approved plan, or
	// ErrPlanNotFound when the latest version is a draft or no plan exists.
	GetLatestForPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error)

	// Duplicate clones a plan's meals onto a new date span of the same
	// duration. The copy is always a draft.
	Duplicate(ctx context.Context, planID uuid.UUID, newStartDate time.Time, generatedByUID string) (*models.MealPlan, error)

	// GetPlanByToken resolves a share token to the public read model.
	// Expired or unknown tokens yield ErrPlanNotFound; the caller cannot
	// distinguish the two.
	GetPlanByToken(ctx context.Context, token string) (*PublicPlanView, error)
}

type mealPlanService struct {
	planRepo    repositories.MealPlanRepository
	patientRepo repositories.PatientRepository
	recipeRepo  repositories.RecipeRepository
	resolver    RestrictionResolver
	allocator   *WeekAllocator
	logger      *zap.Logger
}

// NewMealPlanService creates a new MealPlanService.
func NewMealPlanService(
	planRepo repositories.MealPlanRepository,
	patientRepo repositories.PatientRepository,
	recipeRepo repositories.RecipeRepository,
	resolver RestrictionResolver,
	allocator *WeekAllocator,
	logger *zap.Logger,
) MealPlanService {
	return &mealPlanService{
		planRepo:    planRepo,
		patientRepo: patientRepo,
		recipeRepo:  recipeRepo,
		resolver:    resolver,
		allocator:   allocator,
		logger:      logger,
	}
}

var _ MealPlanService = (*mealPlanService)(nil)

func (s *mealPlanService) Generate(ctx context.Context, patientID uuid.UUID, generatedByUID string) (*models.MealPlan, error) {
	return s.generate(ctx, patientID, generatedByUID, true)
}

func (s *mealPlanService) GenerateDraft(ctx context.Context, patientID uuid.UUID, generatedByUID string) (*models.MealPlan, error) {
	return s.generate(ctx, patientID, generatedByUID, false)
}

func (s *mealPlanService) generate(ctx context.Context, patientID uuid.UUID, generatedByUID string, autoApprove bool) (*models.MealPlan, error) {
	patient, err := s.patientRepo.GetWithRestrictions(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return nil, apperrors.ErrPatientNotFound
	}

	excluded, err := s.resolver.ExcludedIngredients(ctx, patient)
	if err != nil {
		return nil, err
	}

	recipes, err := s.recipeRepo.ListActiveWithIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	pools := FilterRecipesByExclusions(recipes, ExcludedSet(excluded))

	meals, err := s.allocator.Allocate(pools)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	startDate := NextMonday(now)
	endDate := startDate.AddDate(0, 0, 6)

	plan := &models.MealPlan{
		PatientID:      patientID,
		PlanName:       fmt.Sprintf("Weekly Plan - %s", startDate.Format("2006-01-02")),
		StartDate:      startDate,
		EndDate:        endDate,
		Status:         models.PlanStatusDraft,
		GeneratedByUID: generatedByUID,
		Meals:          meals,
	}

	var token *models.MealPlanToken
	if autoApprove {
		plan.Status = models.PlanStatusApproved
		plan.ApprovedByUID = generatedByUID
		plan.ApprovedAt = &now

		tokenValue, err := NewPlanToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate plan token: %w", err)
		}
		token = &models.MealPlanToken{Token: tokenValue}
	}

	if err := s.planRepo.CreateVersion(ctx, plan, token); err != nil {
		return nil, &apperrors.PersistenceError{Op: "meal plan generation", Err: err}
	}

	s.logger.Info("Generated meal plan",
		zap.String("patient_id", patientID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("version", plan.Version),
		zap.String("status", plan.Status),
		zap.Int("excluded_ingredients", len(excluded)))

	return plan, nil
}

func (s *mealPlanService) Approve(ctx context.Context, planID uuid.UUID, approvedByUID string) (*models.MealPlan, error) {
	err := s.planRepo.Approve(ctx, planID, approvedByUID, time.Now())
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrPlanNotFound
		}
		return nil, err
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.ErrPlanNotFound
	}

	s.logger.Info("Approved meal plan",
		zap.String("plan_id", planID.String()),
		zap.Int("version", plan.Version))

	return plan, nil
}

func (s *mealPlanService) GetByID(ctx context.Context, planID uuid.UUID) (*models.MealPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.ErrPlanNotFound
	}
	return plan, nil
}

func (s *mealPlanService) GetLatestForPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error) {
	plan, err := s.planRepo.GetLatestApprovedByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.ErrPlanNotFound
	}
	return plan, nil
}

func (s *mealPlanService) Duplicate(ctx context.Context, planID uuid.UUID, newStartDate time.Time, generatedByUID string) (*models.MealPlan, error) {
	source, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, apperrors.ErrPlanNotFound
	}

	meals := make([]*models.MealPlanMeal, 0, len(source.Meals))
	for _, m := range source.Meals {
		meals = append(meals, &models.MealPlanMeal{
			RecipeID:      m.RecipeID,
			RecipeName:    m.RecipeName,
			DayOfWeek:     m.DayOfWeek,
			MealType:      m.MealType,
			ScheduledTime: m.ScheduledTime,
			Servings:      m.Servings,
		})
	}

	dup := &models.MealPlan{
		PatientID:      source.PatientID,
		PlanName:       fmt.Sprintf("%s (copy)", source.PlanName),
		StartDate:      newStartDate,
		EndDate:        newStartDate.AddDate(0, 0, source.Duration()),
		Status:         models.PlanStatusDraft,
		GeneratedByUID: generatedByUID,
		ParentPlanID:   &source.ID,
		Meals:          meals,
	}

	if err := s.planRepo.CreateVersion(ctx, dup, nil); err != nil {
		return nil, &apperrors.PersistenceError{Op: "meal plan duplication", Err: err}
	}

	s.logger.Info("Duplicated meal plan",
		zap.String("source_plan_id", source.ID.String()),
		zap.String("plan_id", dup.ID.String()),
		zap.Int("version", dup.Version))

	return dup, nil
}

func (s *mealPlanService) GetPlanByToken(ctx context.Context, token string) (*PublicPlanView, error) {
	t, err := s.planRepo.GetTokenByValue(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsValid(time.Now()) {
		return nil, apperrors.ErrPlanNotFound
	}

	plan, err := s.planRepo.GetByID(ctx, t.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.ErrPlanNotFound
	}

	patient, err := s.patientRepo.GetByID(ctx, plan.PatientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperrors.ErrPatientNotFound
	}

	recipes := make(map[uuid.UUID]*models.Recipe, len(plan.Meals))
	for _, m := range plan.Meals {
		if _, ok := recipes[m.RecipeID]; ok {
			continue
		}
		recipe, err := s.recipeRepo.GetByID(ctx, m.RecipeID)
		if err != nil {
			return nil, err
		}
		if recipe != nil {
			recipes[m.RecipeID] = recipe
		}
	}

	return BuildPublicPlanView(patient, plan, recipes), nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// NewPlanToken returns a URL-safe random token for public plan access.
// 32 bytes of entropy, encoded without padding.
func NewPlanToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NextMonday returns the Monday of the week after now. Today is never
// eligible: when now is a Monday the plan starts a full week out.
func NextMonday(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daysAhead := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	return today.AddDate(0, 0, daysAhead)
}
