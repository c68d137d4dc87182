package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mealvita-inc/mealvita-engine/pkg/database"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// PlanVersionSummary is a lightweight row for version listings. Meals are
// not loaded; only the per-plan meal count.
type PlanVersionSummary struct {
	ID         uuid.UUID  `json:"id"`
	PlanName   string     `json:"plan_name"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Status     string     `json:"status"`
	Version    int        `json:"version"`
	IsLatest   bool       `json:"is_latest"`
	ParentID   *uuid.UUID `json:"parent_plan_id,omitempty"`
	MealCount  int        `json:"meal_count"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MealPlanRepository provides data access for meal plans, their meals and
// share tokens. All version bookkeeping happens inside CreateVersion.
type MealPlanRepository interface {
	// CreateVersion inserts the plan as the patient's next version in one
	// transaction: it allocates version = max+1, clears is_latest on the
	// previous latest plan, inserts the plan with its meals, and optionally
	// inserts a share token. The plan's Version and IsLatest fields are set
	// on return.
	CreateVersion(ctx context.Context, plan *models.MealPlan, token *models.MealPlanToken) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.MealPlan, error)

	// GetLatestApprovedByPatient returns the patient's current plan: the one
	// with is_latest set, and only if it is approved. Returns nil when the
	// latest version is a draft or the patient has no plans.
	GetLatestApprovedByPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error)

	// GetLatestByPatient returns the patient's latest version regardless of
	// status, without meals loaded.
	GetLatestByPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error)

	GetByPatientAndVersion(ctx context.Context, patientID uuid.UUID, version int) (*models.MealPlan, error)
	ListVersionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*PlanVersionSummary, error)

	// Approve marks the plan approved. Approving an already approved plan
	// refreshes the approval fields.
	Approve(ctx context.Context, id uuid.UUID, approverUID string, now time.Time) error

	GetTokenByValue(ctx context.Context, token string) (*models.MealPlanToken, error)
	GetTokenByPlanID(ctx context.Context, planID uuid.UUID) (*models.MealPlanToken, error)
	CreateToken(ctx context.Context, token *models.MealPlanToken) error
}

type mealPlanRepository struct{}

// NewMealPlanRepository creates a new MealPlanRepository.
func NewMealPlanRepository() MealPlanRepository {
	return &mealPlanRepository{}
}

var _ MealPlanRepository = (*mealPlanRepository)(nil)

func (r *mealPlanRepository) CreateVersion(ctx context.Context, plan *models.MealPlan, token *models.MealPlanToken) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	// Use transaction to atomically allocate the version number, retire the
	// previous latest plan and insert the new plan with its meals. The
	// UNIQUE (patient_id, version) constraint rejects concurrent writers.
	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM meal_plans WHERE patient_id = $1`,
		plan.PatientID,
	).Scan(&plan.Version)
	if err != nil {
		return fmt.Errorf("failed to allocate version: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE meal_plans SET is_latest = FALSE, updated_at = $2 WHERE patient_id = $1 AND is_latest`,
		plan.PatientID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to retire previous version: %w", err)
	}
	plan.IsLatest = true

	_, err = tx.Exec(ctx, `
		INSERT INTO meal_plans (
			id, patient_id, plan_name, start_date, end_date, status, notes,
			generated_by_uid, approved_by_uid, approved_at, version, is_latest,
			parent_plan_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		plan.ID, plan.PatientID, plan.PlanName, plan.StartDate, plan.EndDate,
		plan.Status, plan.Notes, plan.GeneratedByUID, plan.ApprovedByUID,
		plan.ApprovedAt, plan.Version, plan.IsLatest, plan.ParentPlanID,
		plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meal plan: %w", err)
	}

	for _, meal := range plan.Meals {
		if meal.ID == uuid.Nil {
			meal.ID = uuid.New()
		}
		meal.PlanID = plan.ID
		meal.CreatedAt = now

		_, err = tx.Exec(ctx, `
			INSERT INTO meal_plan_meals (id, plan_id, recipe_id, day_of_week, meal_type, scheduled_time, servings, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			meal.ID, meal.PlanID, meal.RecipeID, meal.DayOfWeek, meal.MealType,
			meal.ScheduledTime, meal.Servings, meal.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create plan meal: %w", err)
		}
	}

	if token != nil {
		if token.ID == uuid.Nil {
			token.ID = uuid.New()
		}
		token.PlanID = plan.ID
		token.CreatedAt = now

		_, err = tx.Exec(ctx, `
			INSERT INTO meal_plan_tokens (id, plan_id, token, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			token.ID, token.PlanID, token.Token, token.ExpiresAt, token.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create plan token: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *mealPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MealPlan, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectMealPlan + ` WHERE id = $1`

	row := scope.Conn.QueryRow(ctx, query, id)
	plan, err := scanMealPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadMeals(ctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *mealPlanRepository) GetLatestApprovedByPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectMealPlan + ` WHERE patient_id = $1 AND is_latest AND status = $2`

	row := scope.Conn.QueryRow(ctx, query, patientID, models.PlanStatusApproved)
	plan, err := scanMealPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadMeals(ctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *mealPlanRepository) GetLatestByPatient(ctx context.Context, patientID uuid.UUID) (*models.MealPlan, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectMealPlan + ` WHERE patient_id = $1 AND is_latest`

	row := scope.Conn.QueryRow(ctx, query, patientID)
	plan, err := scanMealPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return plan, nil
}

func (r *mealPlanRepository) GetByPatientAndVersion(ctx context.Context, patientID uuid.UUID, version int) (*models.MealPlan, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectMealPlan + ` WHERE patient_id = $1 AND version = $2`

	row := scope.Conn.QueryRow(ctx, query, patientID, version)
	plan, err := scanMealPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadMeals(ctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *mealPlanRepository) ListVersionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*PlanVersionSummary, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT p.id, p.plan_name, p.start_date, p.end_date, p.status, p.version,
		       p.is_latest, p.parent_plan_id, p.approved_at, p.created_at,
		       (SELECT COUNT(*) FROM meal_plan_meals m WHERE m.plan_id = p.id) AS meal_count
		FROM meal_plans p
		WHERE p.patient_id = $1
		ORDER BY p.version DESC`

	rows, err := scope.Conn.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan versions: %w", err)
	}
	defer rows.Close()

	var summaries []*PlanVersionSummary
	for rows.Next() {
		var s PlanVersionSummary
		err := rows.Scan(
			&s.ID, &s.PlanName, &s.StartDate, &s.EndDate, &s.Status, &s.Version,
			&s.IsLatest, &s.ParentID, &s.ApprovedAt, &s.CreatedAt, &s.MealCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan version: %w", err)
		}
		summaries = append(summaries, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan versions: %w", err)
	}

	return summaries, nil
}

func (r *mealPlanRepository) Approve(ctx context.Context, id uuid.UUID, approverUID string, now time.Time) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE meal_plans
		SET status = $2, approved_by_uid = $3, approved_at = $4, updated_at = $4
		WHERE id = $1`

	tag, err := scope.Conn.Exec(ctx, query, id, models.PlanStatusApproved, approverUID, now)
	if err != nil {
		return fmt.Errorf("failed to approve meal plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r *mealPlanRepository) GetTokenByValue(ctx context.Context, token string) (*models.MealPlanToken, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, plan_id, token, expires_at, created_at
		FROM meal_plan_tokens
		WHERE token = $1`

	row := scope.Conn.QueryRow(ctx, query, token)
	t, err := scanPlanToken(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return t, nil
}

func (r *mealPlanRepository) GetTokenByPlanID(ctx context.Context, planID uuid.UUID) (*models.MealPlanToken, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, plan_id, token, expires_at, created_at
		FROM meal_plan_tokens
		WHERE plan_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	row := scope.Conn.QueryRow(ctx, query, planID)
	t, err := scanPlanToken(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return t, nil
}

func (r *mealPlanRepository) CreateToken(ctx context.Context, token *models.MealPlanToken) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO meal_plan_tokens (id, plan_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := scope.Conn.Exec(ctx, query,
		token.ID, token.PlanID, token.Token, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create plan token: %w", err)
	}

	return nil
}

// loadMeals attaches the plan's meals with recipe names resolved.
func (r *mealPlanRepository) loadMeals(ctx context.Context, plan *models.MealPlan) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT m.id, m.plan_id, m.recipe_id, rec.recipe_name, m.day_of_week,
		       m.meal_type, m.scheduled_time, m.servings, m.created_at
		FROM meal_plan_meals m
		JOIN recipes rec ON m.recipe_id = rec.id
		WHERE m.plan_id = $1
		ORDER BY array_position($2::text[], m.day_of_week), m.scheduled_time`

	rows, err := scope.Conn.Query(ctx, query, plan.ID, models.DayOrder)
	if err != nil {
		return fmt.Errorf("failed to query plan meals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var meal models.MealPlanMeal
		err := rows.Scan(
			&meal.ID, &meal.PlanID, &meal.RecipeID, &meal.RecipeName,
			&meal.DayOfWeek, &meal.MealType, &meal.ScheduledTime,
			&meal.Servings, &meal.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan plan meal: %w", err)
		}
		plan.Meals = append(plan.Meals, &meal)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating plan meals: %w", err)
	}

	return nil
}

const selectMealPlan = `
	SELECT id, patient_id, plan_name, start_date, end_date, status, notes,
	       generated_by_uid, approved_by_uid, approved_at, version, is_latest,
	       parent_plan_id, created_at, updated_at
	FROM meal_plans`

func scanMealPlan(row pgx.Row) (*models.MealPlan, error) {
	var p models.MealPlan

	err := row.Scan(
		&p.ID, &p.PatientID, &p.PlanName, &p.StartDate, &p.EndDate, &p.Status,
		&p.Notes, &p.GeneratedByUID, &p.ApprovedByUID, &p.ApprovedAt,
		&p.Version, &p.IsLatest, &p.ParentPlanID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan meal plan: %w", err)
	}

	return &p, nil
}

func scanPlanToken(row pgx.Row) (*models.MealPlanToken, error) {
	var t models.MealPlanToken

	err := row.Scan(&t.ID, &t.PlanID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan plan token: %w", err)
	}

	return &t, nil
}
