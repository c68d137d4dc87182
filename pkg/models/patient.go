package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile status values for patients. Staff review moves a profile from
// pending_review to approved; this is independent of meal-plan status.
const (
	ProfileStatusPendingReview = "pending_review"
	ProfileStatusApproved      = "approved"
)

// Gender values accepted on the intake form.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Intolerance severity values for patient intolerance links.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Patient is a clinic patient created on profile completion.
// Identity fields are immutable once created.
type Patient struct {
	ID              uuid.UUID  `json:"id"`
	InvitationID    *uuid.UUID `json:"invitation_id,omitempty"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	DateOfBirth     time.Time  `json:"date_of_birth"`
	Gender          string     `json:"gender"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	ProfileStatus   string     `json:"profile_status"`
	AdditionalNotes string     `json:"additional_notes,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Restriction links, populated by PatientRepository.GetWithRestrictions.
	MedicalConditions  []*PatientMedicalCondition  `json:"medical_conditions,omitempty"`
	Intolerances       []*PatientIntolerance       `json:"intolerances,omitempty"`
	DietaryPreferences []*PatientDietaryPreference `json:"dietary_preferences,omitempty"`
}

// PatientMedicalCondition links a patient to a medical condition from the catalog.
type PatientMedicalCondition struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ConditionID   uuid.UUID `json:"condition_id"`
	ConditionName string    `json:"condition_name,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"added_at"`
}

// PatientIntolerance links a patient to a food intolerance from the catalog.
type PatientIntolerance struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	IntoleranceID   uuid.UUID `json:"intolerance_id"`
	IntoleranceName string    `json:"intolerance_name,omitempty"`
	Severity        string    `json:"severity"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"added_at"`
}

// PatientDietaryPreference links a patient to a dietary preference from the catalog.
type PatientDietaryPreference struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PreferenceID   uuid.UUID `json:"preference_id"`
	PreferenceName string    `json:"preference_name,omitempty"`
	CreatedAt      time.Time `json:"added_at"`
}
