package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mealvita-inc/mealvita-engine/pkg/database"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// CatalogRepository provides read access to the reference catalogs used by
// the intake form and the restriction resolver. Catalog rows are seeded by
// migrations and managed out of band; only active entries are returned.
type CatalogRepository interface {
	ListMedicalConditions(ctx context.Context) ([]*models.MedicalCondition, error)
	ListFoodIntolerances(ctx context.Context) ([]*models.FoodIntolerance, error)
	ListDietaryPreferences(ctx context.Context) ([]*models.DietaryPreference, error)
	ListIngredients(ctx context.Context) ([]*models.Ingredient, error)

	// GetIntoleranceNamesByIDs resolves intolerance IDs to their catalog names.
	// Unknown IDs are silently absent from the result.
	GetIntoleranceNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)

	// GetIngredientIDsByNames resolves exact ingredient names to IDs. Names
	// with no active catalog entry are silently absent from the result.
	GetIngredientIDsByNames(ctx context.Context, names []string) (map[string]uuid.UUID, error)
}

type catalogRepository struct{}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository() CatalogRepository {
	return &catalogRepository{}
}

var _ CatalogRepository = (*catalogRepository)(nil)

func (r *catalogRepository) ListMedicalConditions(ctx context.Context) ([]*models.MedicalCondition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, condition_name, description, severity_level, is_active, created_at, updated_at
		FROM medical_conditions
		WHERE is_active
		ORDER BY condition_name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query medical conditions: %w", err)
	}
	defer rows.Close()

	var conditions []*models.MedicalCondition
	for rows.Next() {
		var c models.MedicalCondition
		if err := rows.Scan(&c.ID, &c.ConditionName, &c.Description, &c.SeverityLevel, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan medical condition: %w", err)
		}
		conditions = append(conditions, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medical conditions: %w", err)
	}

	return conditions, nil
}

func (r *catalogRepository) ListFoodIntolerances(ctx context.Context) ([]*models.FoodIntolerance, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, intolerance_name, description, is_active, created_at, updated_at
		FROM food_intolerances
		WHERE is_active
		ORDER BY intolerance_name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query food intolerances: %w", err)
	}
	defer rows.Close()

	var intolerances []*models.FoodIntolerance
	for rows.Next() {
		var fi models.FoodIntolerance
		if err := rows.Scan(&fi.ID, &fi.IntoleranceName, &fi.Description, &fi.IsActive, &fi.CreatedAt, &fi.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan food intolerance: %w", err)
		}
		intolerances = append(intolerances, &fi)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food intolerances: %w", err)
	}

	return intolerances, nil
}

func (r *catalogRepository) ListDietaryPreferences(ctx context.Context) ([]*models.DietaryPreference, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, preference_name, description, is_active, created_at, updated_at
		FROM dietary_preferences
		WHERE is_active
		ORDER BY preference_name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dietary preferences: %w", err)
	}
	defer rows.Close()

	var preferences []*models.DietaryPreference
	for rows.Next() {
		var dp models.DietaryPreference
		if err := rows.Scan(&dp.ID, &dp.PreferenceName, &dp.Description, &dp.IsActive, &dp.CreatedAt, &dp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dietary preference: %w", err)
		}
		preferences = append(preferences, &dp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dietary preferences: %w", err)
	}

	return preferences, nil
}

func (r *catalogRepository) ListIngredients(ctx context.Context) ([]*models.Ingredient, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, ingredient_name, category, calories_per_100g, protein_per_100g,
		       carbs_per_100g, fat_per_100g, fiber_per_100g, is_active, created_at, updated_at
		FROM ingredients
		WHERE is_active
		ORDER BY ingredient_name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []*models.Ingredient
	for rows.Next() {
		var ing models.Ingredient
		err := rows.Scan(
			&ing.ID, &ing.IngredientName, &ing.Category,
			&ing.CaloriesPer100g, &ing.ProteinPer100g, &ing.CarbsPer100g,
			&ing.FatPer100g, &ing.FiberPer100g,
			&ing.IsActive, &ing.CreatedAt, &ing.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, &ing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return ingredients, nil
}

func (r *catalogRepository) GetIntoleranceNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query := `
		SELECT id, intolerance_name
		FROM food_intolerances
		WHERE is_active AND id = ANY($1)`

	rows, err := scope.Conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query intolerance names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan intolerance name: %w", err)
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intolerance names: %w", err)
	}

	return names, nil
}

func (r *catalogRepository) GetIngredientIDsByNames(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	ids := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	query := `
		SELECT id, ingredient_name
		FROM ingredients
		WHERE is_active AND ingredient_name = ANY($1)`

	rows, err := scope.Conn.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredient ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient id: %w", err)
		}
		ids[name] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredient ids: %w", err)
	}

	return ids, nil
}
