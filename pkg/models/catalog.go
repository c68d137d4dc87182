package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity levels for medical conditions in the catalog.
const (
	ConditionSeverityLow      = "low"
	ConditionSeverityMedium   = "medium"
	ConditionSeverityHigh     = "high"
	ConditionSeverityCritical = "critical"
)

// MedicalCondition is a catalog entry describing a condition a patient can report.
type MedicalCondition struct {
	ID            uuid.UUID `json:"id"`
	ConditionName string    `json:"condition_name"`
	Description   string    `json:"description,omitempty"`
	SeverityLevel string    `json:"severity_level"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FoodIntolerance is a catalog entry for a food intolerance.
type FoodIntolerance struct {
	ID              uuid.UUID `json:"id"`
	IntoleranceName string    `json:"intolerance_name"`
	Description     string    `json:"description,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DietaryPreference is a catalog entry for a dietary preference.
type DietaryPreference struct {
	ID             uuid.UUID `json:"id"`
	PreferenceName string    `json:"preference_name"`
	Description    string    `json:"description,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ingredient is a catalog entry with a per-100g macro profile.
// Names are unique; the restriction resolver matches them exactly.
type Ingredient struct {
	ID              uuid.UUID `json:"id"`
	IngredientName  string    `json:"ingredient_name"`
	Category        string    `json:"category,omitempty"`
	CaloriesPer100g *float64  `json:"calories_per_100g,omitempty"`
	ProteinPer100g  *float64  `json:"protein_per_100g,omitempty"`
	CarbsPer100g    *float64  `json:"carbs_per_100g,omitempty"`
	FatPer100g      *float64  `json:"fat_per_100g,omitempty"`
	FiberPer100g    *float64  `json:"fiber_per_100g,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
