package models

import (
	"time"

	"github.com/google/uuid"
)

// Meal plan status values.
const (
	PlanStatusDraft    = "draft"
	PlanStatusApproved = "approved"
	PlanStatusSent     = "sent"
)

// DayOrder is the fixed weekly allocation order.
var DayOrder = []string{
	"monday", "tuesday", "wednesday", "thursday",
	"friday", "saturday", "sunday",
}

// DefaultMealTimes are the fixed scheduled times assigned by the generator.
var DefaultMealTimes = map[string]string{
	MealTypeBreakfast: "08:00",
	MealTypeLunch:     "13:00",
	MealTypeDinner:    "19:00",
	MealTypeSnack:     "16:00",
}

// MealPlan is one version of a patient's weekly plan. Exactly one plan per
// patient has IsLatest set at any time; approved plans are never hard-deleted.
type MealPlan struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	PlanName       string     `json:"plan_name"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	GeneratedByUID string     `json:"generated_by_uid"`
	ApprovedByUID  string     `json:"approved_by_uid,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	Version        int        `json:"version"`
	IsLatest       bool       `json:"is_latest"`
	ParentPlanID   *uuid.UUID `json:"parent_plan_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Meals []*MealPlanMeal `json:"meals,omitempty"`
}

// MealPlanMeal is one (day, meal type) slot in a plan. The pair is unique
// within a plan; the schema enforces it.
type MealPlanMeal struct {
	ID            uuid.UUID `json:"id"`
	PlanID        uuid.UUID `json:"plan_id"`
	RecipeID      uuid.UUID `json:"recipe_id"`
	RecipeName    string    `json:"recipe_name,omitempty"`
	DayOfWeek     string    `json:"day_of_week"`
	MealType      string    `json:"meal_type"`
	ScheduledTime string    `json:"scheduled_time,omitempty"`
	Servings      float64   `json:"servings"`
	CreatedAt     time.Time `json:"created_at"`
}

// MealPlanToken grants unauthenticated read access to one plan.
// A nil ExpiresAt means the token never expires.
type MealPlanToken struct {
	ID        uuid.UUID  `json:"id"`
	PlanID    uuid.UUID  `json:"plan_id"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsValid reports whether the token is still usable.
func (t *MealPlanToken) IsValid(now time.Time) bool {
	if t.ExpiresAt == nil {
		return true
	}
	return t.ExpiresAt.After(now)
}

// MealSlot identifies a (day, meal type) cell in the weekly calendar.
type MealSlot struct {
	DayOfWeek string `json:"day_of_week"`
	MealType  string `json:"meal_type"`
}

// SlotMap indexes a plan's meals by slot. Slots are unique per plan, so the
// last write wins only if the schema invariant were violated upstream.
func (p *MealPlan) SlotMap() map[MealSlot]uuid.UUID {
	slots := make(map[MealSlot]uuid.UUID, len(p.Meals))
	for _, m := range p.Meals {
		slots[MealSlot{DayOfWeek: m.DayOfWeek, MealType: m.MealType}] = m.RecipeID
	}
	return slots
}

// Duration returns the plan's span in whole days (6 for a Monday–Sunday week).
func (p *MealPlan) Duration() int {
	return int(p.EndDate.Sub(p.StartDate).Hours() / 24)
}
