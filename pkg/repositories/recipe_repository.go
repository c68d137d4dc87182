package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mealvita-inc/mealvita-engine/pkg/database"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// RecipeRepository provides read access to the recipe catalog.
type RecipeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error)

	// ListActiveWithIngredients returns every active recipe with its
	// ingredient links loaded, ready for restriction filtering.
	ListActiveWithIngredients(ctx context.Context) ([]*models.Recipe, error)
}

type recipeRepository struct{}

// NewRecipeRepository creates a new RecipeRepository.
func NewRecipeRepository() RecipeRepository {
	return &recipeRepository{}
}

var _ RecipeRepository = (*recipeRepository)(nil)

func (r *recipeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectRecipe + ` WHERE id = $1 AND is_active`

	row := scope.Conn.QueryRow(ctx, query, id)
	recipe, err := scanRecipe(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadIngredients(ctx, map[uuid.UUID]*models.Recipe{recipe.ID: recipe}); err != nil {
		return nil, err
	}

	return recipe, nil
}

func (r *recipeRepository) ListActiveWithIngredients(ctx context.Context) ([]*models.Recipe, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectRecipe + ` WHERE is_active ORDER BY meal_type, recipe_name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*models.Recipe
	byID := make(map[uuid.UUID]*models.Recipe)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
		byID[recipe.ID] = recipe
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if err := r.loadIngredients(ctx, byID); err != nil {
		return nil, err
	}

	return recipes, nil
}

// loadIngredients attaches ingredient links to the given recipes in one query.
func (r *recipeRepository) loadIngredients(ctx context.Context, recipes map[uuid.UUID]*models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	ids := make([]uuid.UUID, 0, len(recipes))
	for id := range recipes {
		ids = append(ids, id)
	}

	query := `
		SELECT ri.id, ri.recipe_id, ri.ingredient_id, i.ingredient_name, ri.quantity, ri.unit
		FROM recipe_ingredients ri
		JOIN ingredients i ON ri.ingredient_id = i.id
		WHERE ri.recipe_id = ANY($1)
		ORDER BY i.ingredient_name`

	rows, err := scope.Conn.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query recipe ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ri models.RecipeIngredient
		if err := rows.Scan(&ri.ID, &ri.RecipeID, &ri.IngredientID, &ri.IngredientName, &ri.Quantity, &ri.Unit); err != nil {
			return fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		if recipe, ok := recipes[ri.RecipeID]; ok {
			recipe.Ingredients = append(recipe.Ingredients, &ri)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe ingredients: %w", err)
	}

	return nil
}

const selectRecipe = `
	SELECT id, recipe_name, description, meal_type, preparation_time, cooking_time,
	       servings, difficulty_level, total_calories, total_protein, total_carbs,
	       total_fat, total_fiber, instructions, image_url, is_active,
	       created_by_uid, created_at, updated_at
	FROM recipes`

func scanRecipe(row pgx.Row) (*models.Recipe, error) {
	var rec models.Recipe

	err := row.Scan(
		&rec.ID, &rec.RecipeName, &rec.Description, &rec.MealType,
		&rec.PreparationTime, &rec.CookingTime, &rec.Servings, &rec.DifficultyLevel,
		&rec.TotalCalories, &rec.TotalProtein, &rec.TotalCarbs,
		&rec.TotalFat, &rec.TotalFiber, &rec.Instructions, &rec.ImageURL,
		&rec.IsActive, &rec.CreatedByUID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recipe: %w", err)
	}

	return &rec, nil
}
