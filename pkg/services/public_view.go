package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"

	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// PublicPlanView is the read model served to the patient page and consumed by
// the PDF exporter. It carries no internal IDs beyond the plan's own.
type PublicPlanView struct {
	PlanID      uuid.UUID        `json:"plan_id"`
	PlanName    string           `json:"plan_name"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Status      string           `json:"status"`
	Version     int              `json:"version"`
	PatientName string           `json:"patient_name"`
	Days        []*PublicDayView `json:"days"`
}

// PublicDayView groups a day's meals in scheduled-time order.
type PublicDayView struct {
	DayOfWeek string            `json:"day_of_week"`
	Meals     []*PublicMealView `json:"meals"`
}

// PublicMealView is one slot with recipe details expanded.
type PublicMealView struct {
	MealType      string   `json:"meal_type"`
	ScheduledTime string   `json:"scheduled_time"`
	Servings      float64  `json:"servings"`
	RecipeName    string   `json:"recipe_name"`
	Description   string   `json:"description,omitempty"`
	Instructions  string   `json:"instructions,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Ingredients   []string `json:"ingredients,omitempty"`
}

// BuildPublicPlanView assembles the public read model from a plan, its
// patient and the recipes its meals reference. Meals arrive from the
// repository already ordered by day and time.
func BuildPublicPlanView(patient *models.Patient, plan *models.MealPlan, recipes map[uuid.UUID]*models.Recipe) *PublicPlanView {
	view := &PublicPlanView{
		PlanID:      plan.ID,
		PlanName:    plan.PlanName,
		StartDate:   plan.StartDate.Format("2006-01-02"),
		EndDate:     plan.EndDate.Format("2006-01-02"),
		Status:      plan.Status,
		Version:     plan.Version,
		PatientName: strings.TrimSpace(patient.FirstName + " " + patient.LastName),
	}

	byDay := make(map[string][]*PublicMealView)
	for _, meal := range plan.Meals {
		mv := &PublicMealView{
			MealType:      meal.MealType,
			ScheduledTime: meal.ScheduledTime,
			Servings:      meal.Servings,
			RecipeName:    meal.RecipeName,
		}
		if recipe, ok := recipes[meal.RecipeID]; ok {
			mv.Description = recipe.Description
			mv.Instructions = recipe.Instructions
			mv.ImageURL = recipe.ImageURL
			for _, ri := range recipe.Ingredients {
				mv.Ingredients = append(mv.Ingredients, FormatIngredient(ri))
			}
		}
		byDay[meal.DayOfWeek] = append(byDay[meal.DayOfWeek], mv)
	}

	for _, day := range models.DayOrder {
		meals, ok := byDay[day]
		if !ok {
			continue
		}
		view.Days = append(view.Days, &PublicDayView{DayOfWeek: day, Meals: meals})
	}

	return view
}

// FormatIngredient renders an ingredient line like "2 cups rice" or
// "1 cup milk". Units pluralize with quantity; unitless ingredients render
// without one.
func FormatIngredient(ri *models.RecipeIngredient) string {
	qty := strconv.FormatFloat(ri.Quantity, 'f', -1, 64)
	if ri.Unit == "" {
		return fmt.Sprintf("%s %s", qty, ri.IngredientName)
	}

	unit := inflection.Singular(ri.Unit)
	if ri.Quantity != 1 {
		unit = inflection.Plural(ri.Unit)
	}
	return fmt.Sprintf("%s %s %s", qty, unit, ri.IngredientName)
}
