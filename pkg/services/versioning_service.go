package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// MealOverride replaces the recipe in one (day, meal type) slot when creating
// a new version from an existing plan.
type MealOverride struct {
	DayOfWeek string    `json:"day_of_week"`
	MealType  string    `json:"meal_type"`
	RecipeID  uuid.UUID `json:"recipe_id"`
}

// MealSpec fully describes one slot of a replacement meal list. Servings
// defaults to 1.0 when omitted.
type MealSpec struct {
	RecipeID      uuid.UUID `json:"recipe_id"`
	DayOfWeek     string    `json:"day_of_week"`
	MealType      string    `json:"meal_type"`
	ScheduledTime string    `json:"scheduled_time,omitempty"`
	Servings      float64   `json:"servings,omitempty"`
}

// VersionUpdate customizes the new version. Overrides swap the recipe in
// individual slots of the copied meal list. Meals, when non-nil, replaces the
// base plan's meal list entirely; slots may be added or removed relative to
// the base, and Overrides is ignored.
type VersionUpdate struct {
	Overrides []MealOverride `json:"overrides,omitempty"`
	Meals     []MealSpec     `json:"meals,omitempty"`
}

// SlotChange describes one slot-level difference between two versions.
type SlotChange struct {
	DayOfWeek string     `json:"day_of_week"`
	MealType  string     `json:"meal_type"`
	RecipeA   *uuid.UUID `json:"recipe_a,omitempty"`
	RecipeB   *uuid.UUID `json:"recipe_b,omitempty"`
}

// VersionComparison is the slot-by-slot diff between two plan versions of the
// same patient. Added slots exist only in B, removed only in A, modified in
// both with different recipes.
type VersionComparison struct {
	PlanA     uuid.UUID    `json:"plan_a"`
	PlanB     uuid.UUID    `json:"plan_b"`
	VersionA  int          `json:"version_a"`
	VersionB  int          `json:"version_b"`
	Added     []SlotChange `json:"added"`
	Removed   []SlotChange `json:"removed"`
	Modified  []SlotChange `json:"modified"`
	Unchanged int          `json:"unchanged"`
}

// VersionStatistics summarizes a patient's version history.
type VersionStatistics struct {
	PatientID     uuid.UUID                          `json:"patient_id"`
	TotalVersions int                                `json:"total_versions"`
	ApprovedCount int                                `json:"approved_count"`
	SentCount     int                                `json:"sent_count"`
	DraftCount    int                                `json:"draft_count"`
	LatestVersion int                                `json:"latest_version"`
	Versions      []*repositories.PlanVersionSummary `json:"versions"`
}

// VersioningService manages the immutable version history of a patient's
// meal plans. Existing versions are never edited in place; every change is a
// new version pointing at its parent.
type VersioningService interface {
	// CreateNewVersionFromExisting copies the base plan's meals, applies the
	// update (slot overrides, or a full replacement meal list), and persists
	// the result as the patient's next version (draft, parent set, previous
	// latest retired) in one transaction.
	CreateNewVersionFromExisting(ctx context.Context, basePlanID uuid.UUID, requestedByUID string, update VersionUpdate) (*models.MealPlan, error)

	ApproveVersion(ctx context.Context, planID uuid.UUID, approvedByUID string) (*models.MealPlan, error)

	// RevertToVersion creates a new version whose meals duplicate an earlier
	// version's. History stays intact; nothing is deleted.
	RevertToVersion(ctx context.Context, patientID uuid.UUID, version int, requestedByUID string) (*models.MealPlan, error)

	ListVersions(ctx context.Context, patientID uuid.UUID) ([]*repositories.PlanVersionSummary, error)

	// GetVersionComparison diffs two versions slot by slot. Both plans must
	// belong to the same patient; otherwise ErrAccessDenied.
	GetVersionComparison(ctx context.Context, planAID, planBID uuid.UUID) (*VersionComparison, error)

	GetVersionStatistics(ctx context.Context, patientID uuid.UUID) (*VersionStatistics, error)
}

type versioningService struct {
	planRepo repositories.MealPlanRepository
	logger   *zap.Logger
}

// NewVersioningService creates a new VersioningService.
func NewVersioningService(planRepo repositories.MealPlanRepository, logger *zap.Logger) VersioningService {
	return &versioningService{
		planRepo: planRepo,
		logger:   logger,
	}
}

var _ VersioningService = (*versioningService)(nil)

func (s *versioningService) CreateNewVersionFromExisting(ctx context.Context, basePlanID uuid.UUID, requestedByUID string, update VersionUpdate) (*models.MealPlan, error) {
	base, err := s.planRepo.GetByID(ctx, basePlanID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, apperrors.ErrPlanNotFound
	}

	var meals []*models.MealPlanMeal
	if update.Meals != nil {
		meals = make([]*models.MealPlanMeal, 0, len(update.Meals))
		for _, spec := range update.Meals {
			servings := spec.Servings
			if servings == 0 {
				servings = 1.0
			}
			meals = append(meals, &models.MealPlanMeal{
				RecipeID:      spec.RecipeID,
				DayOfWeek:     spec.DayOfWeek,
				MealType:      spec.MealType,
				ScheduledTime: spec.ScheduledTime,
				Servings:      servings,
			})
		}
	} else {
		overrideBySlot := make(map[models.MealSlot]uuid.UUID, len(update.Overrides))
		for _, o := range update.Overrides {
			overrideBySlot[models.MealSlot{DayOfWeek: o.DayOfWeek, MealType: o.MealType}] = o.RecipeID
		}

		meals = make([]*models.MealPlanMeal, 0, len(base.Meals))
		for _, m := range base.Meals {
			recipeID := m.RecipeID
			if id, ok := overrideBySlot[models.MealSlot{DayOfWeek: m.DayOfWeek, MealType: m.MealType}]; ok {
				recipeID = id
			}
			meals = append(meals, &models.MealPlanMeal{
				RecipeID:      recipeID,
				DayOfWeek:     m.DayOfWeek,
				MealType:      m.MealType,
				ScheduledTime: m.ScheduledTime,
				Servings:      m.Servings,
			})
		}
	}

	next := &models.MealPlan{
		PatientID:      base.PatientID,
		PlanName:       base.PlanName,
		StartDate:      base.StartDate,
		EndDate:        base.EndDate,
		Status:         models.PlanStatusDraft,
		Notes:          base.Notes,
		GeneratedByUID: requestedByUID,
		ParentPlanID:   &base.ID,
		Meals:          meals,
	}

	if err := s.planRepo.CreateVersion(ctx, next, nil); err != nil {
		return nil, &apperrors.PersistenceError{Op: "version creation", Err: err}
	}

	s.logger.Info("Created new plan version",
		zap.String("patient_id", next.PatientID.String()),
		zap.String("base_plan_id", base.ID.String()),
		zap.String("plan_id", next.ID.String()),
		zap.Int("version", next.Version),
		zap.Int("overrides", len(update.Overrides)),
		zap.Bool("meals_replaced", update.Meals != nil))

	return next, nil
}

func (s *versioningService) ApproveVersion(ctx context.Context, planID uuid.UUID, approvedByUID string) (*models.MealPlan, error) {
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

	return plan, nil
}

func (s *versioningService) RevertToVersion(ctx context.Context, patientID uuid.UUID, version int, requestedByUID string) (*models.MealPlan, error) {
	target, err := s.planRepo.GetByPatientAndVersion(ctx, patientID, version)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperrors.ErrPlanNotFound
	}

	next, err := s.CreateNewVersionFromExisting(ctx, target.ID, requestedByUID, VersionUpdate{})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reverted to plan version",
		zap.String("patient_id", patientID.String()),
		zap.Int("source_version", version),
		zap.Int("version", next.Version))

	return next, nil
}

func (s *versioningService) ListVersions(ctx context.Context, patientID uuid.UUID) ([]*repositories.PlanVersionSummary, error) {
	return s.planRepo.ListVersionsByPatient(ctx, patientID)
}

func (s *versioningService) GetVersionComparison(ctx context.Context, planAID, planBID uuid.UUID) (*VersionComparison, error) {
	planA, err := s.planRepo.GetByID(ctx, planAID)
	if err != nil {
		return nil, err
	}
	planB, err := s.planRepo.GetByID(ctx, planBID)
	if err != nil {
		return nil, err
	}
	if planA == nil || planB == nil {
		return nil, apperrors.ErrPlanNotFound
	}
	if planA.PatientID != planB.PatientID {
		return nil, fmt.Errorf("plans belong to different patients: %w", apperrors.ErrAccessDenied)
	}

	slotsA := planA.SlotMap()
	slotsB := planB.SlotMap()

	cmp := &VersionComparison{
		PlanA:    planA.ID,
		PlanB:    planB.ID,
		VersionA: planA.Version,
		VersionB: planB.Version,
	}

	// Walk slots in calendar order so the diff is stable.
	for _, day := range models.DayOrder {
		for _, mealType := range []string{models.MealTypeBreakfast, models.MealTypeLunch, models.MealTypeDinner, models.MealTypeSnack} {
			slot := models.MealSlot{DayOfWeek: day, MealType: mealType}
			recipeA, inA := slotsA[slot]
			recipeB, inB := slotsB[slot]

			switch {
			case inA && inB && recipeA == recipeB:
				cmp.Unchanged++
			case inA && inB:
				a, b := recipeA, recipeB
				cmp.Modified = append(cmp.Modified, SlotChange{
					DayOfWeek: day, MealType: mealType, RecipeA: &a, RecipeB: &b,
				})
			case inA:
				a := recipeA
				cmp.Removed = append(cmp.Removed, SlotChange{
					DayOfWeek: day, MealType: mealType, RecipeA: &a,
				})
			case inB:
				b := recipeB
				cmp.Added = append(cmp.Added, SlotChange{
					DayOfWeek: day, MealType: mealType, RecipeB: &b,
				})
			}
		}
	}

	return cmp, nil
}

func (s *versioningService) GetVersionStatistics(ctx context.Context, patientID uuid.UUID) (*VersionStatistics, error) {
	summaries, err := s.planRepo.ListVersionsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	stats := &VersionStatistics{
		PatientID: patientID,
		Versions:  summaries,
	}
	for _, v := range summaries {
		stats.TotalVersions++
		switch v.Status {
		case models.PlanStatusApproved:
			stats.ApprovedCount++
		case models.PlanStatusSent:
			stats.SentCount++
		case models.PlanStatusDraft:
			stats.DraftCount++
		}
		if v.Version > stats.LatestVersion {
			stats.LatestVersion = v.Version
		}
	}

	return stats, nil
}
