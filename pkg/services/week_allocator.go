package services

import (
	"math/rand"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// MinRecipesPerMealType is the pool size required before allocation: one
// distinct recipe per day of the week.
const MinRecipesPerMealType = 7

// WeekAllocator fills a week's meal slots from filtered recipe pools.
// Allocation is deliberately a shuffle plus positional assignment, not an
// optimizer: variety comes from randomness, nothing is scored.
type WeekAllocator struct {
	rng *rand.Rand
}

// NewWeekAllocator creates a WeekAllocator with the given random source.
// Tests pass a seeded source for deterministic plans.
func NewWeekAllocator(rng *rand.Rand) *WeekAllocator {
	return &WeekAllocator{rng: rng}
}

// Allocate validates the pools and assigns one recipe per (day, meal type)
// slot. Each pool is shuffled independently; day i gets the recipe at index i,
// so a week never repeats a recipe within a meal type. Returns exactly 21
// meals with fixed scheduled times and servings of 1.0, or an
// InsufficientRecipesError naming the first meal type that cannot fill a week.
// No partial result is ever returned.
func (a *WeekAllocator) Allocate(pools map[string][]*models.Recipe) ([]*models.MealPlanMeal, error) {
	for _, mealType := range models.GeneratedMealTypes {
		if len(pools[mealType]) < MinRecipesPerMealType {
			return nil, &apperrors.InsufficientRecipesError{
				MealType:  mealType,
				Required:  MinRecipesPerMealType,
				Available: len(pools[mealType]),
			}
		}
	}

	meals := make([]*models.MealPlanMeal, 0, len(models.DayOrder)*len(models.GeneratedMealTypes))
	for _, mealType := range models.GeneratedMealTypes {
		pool := make([]*models.Recipe, len(pools[mealType]))
		copy(pool, pools[mealType])
		a.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		for i, day := range models.DayOrder {
			meals = append(meals, &models.MealPlanMeal{
				RecipeID:      pool[i].ID,
				RecipeName:    pool[i].RecipeName,
				DayOfWeek:     day,
				MealType:      mealType,
				ScheduledTime: models.DefaultMealTimes[mealType],
				Servings:      1.0,
			})
		}
	}

	return meals, nil
}
