package services

import (
	"github.com/google/uuid"

	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// FilterRecipesByExclusions partitions active recipes into per-meal-type
// pools, dropping any recipe that uses an excluded ingredient. Filtering is
// conservative: one excluded ingredient removes the whole recipe, there is no
// substitution. Only the generated meal types (breakfast, lunch, dinner) get
// pools; snack recipes are ignored here.
func FilterRecipesByExclusions(recipes []*models.Recipe, excluded map[uuid.UUID]struct{}) map[string][]*models.Recipe {
	pools := make(map[string][]*models.Recipe, len(models.GeneratedMealTypes))
	for _, mt := range models.GeneratedMealTypes {
		pools[mt] = nil
	}

	for _, recipe := range recipes {
		if !recipe.IsActive {
			continue
		}
		if _, ok := pools[recipe.MealType]; !ok {
			continue
		}
		if recipe.ContainsAny(excluded) {
			continue
		}
		pools[recipe.MealType] = append(pools[recipe.MealType], recipe)
	}

	return pools
}
