package models

import (
	"time"

	"github.com/google/uuid"
)

// Meal type values. Snack is supported by the schema but the weekly
// generator only fills breakfast, lunch and dinner slots.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

// GeneratedMealTypes are the meal types the weekly generator fills.
var GeneratedMealTypes = []string{MealTypeBreakfast, MealTypeLunch, MealTypeDinner}

// Difficulty levels for recipes.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Recipe is a catalog recipe. Aggregate nutrition is advisory: it should
// equal the ingredient-weighted sum but is not enforced at write time.
type Recipe struct {
	ID              uuid.UUID `json:"id"`
	RecipeName      string    `json:"recipe_name"`
	Description     string    `json:"description,omitempty"`
	MealType        string    `json:"meal_type"`
	PreparationTime *int      `json:"preparation_time,omitempty"`
	CookingTime     *int      `json:"cooking_time,omitempty"`
	Servings        int       `json:"servings"`
	DifficultyLevel string    `json:"difficulty_level"`
	TotalCalories   *float64  `json:"total_calories,omitempty"`
	TotalProtein    *float64  `json:"total_protein,omitempty"`
	TotalCarbs      *float64  `json:"total_carbs,omitempty"`
	TotalFat        *float64  `json:"total_fat,omitempty"`
	TotalFiber      *float64  `json:"total_fiber,omitempty"`
	Instructions    string    `json:"instructions,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedByUID    string    `json:"created_by_uid,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Ingredient links, populated by RecipeRepository list/get queries.
	Ingredients []*RecipeIngredient `json:"ingredients,omitempty"`
}

// RecipeIngredient links a recipe to an ingredient with quantity and unit.
type RecipeIngredient struct {
	ID             uuid.UUID `json:"id"`
	RecipeID       uuid.UUID `json:"recipe_id"`
	IngredientID   uuid.UUID `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name,omitempty"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
}

// ContainsAny reports whether the recipe uses any ingredient in the excluded
// set. A recipe with one excluded ingredient is dropped entirely; there is no
// partial substitution.
func (r *Recipe) ContainsAny(excluded map[uuid.UUID]struct{}) bool {
	for _, ri := range r.Ingredients {
		if _, ok := excluded[ri.IngredientID]; ok {
			return true
		}
	}
	return false
}
