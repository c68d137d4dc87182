package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation status values.
const (
	InvitationStatusPending   = "pending"
	InvitationStatusCompleted = "completed"
	InvitationStatusExpired   = "expired"
)

// InvitationTTL is how long a newly issued (or regenerated) invitation is valid.
const InvitationTTL = 7 * 24 * time.Hour

// PatientInvitation is a nutritionist-issued invite that lets a patient
// complete their intake form. Completing the form creates the Patient.
type PatientInvitation struct {
	ID           uuid.UUID  `json:"id"`
	Token        string     `json:"token"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	InvitedByUID string     `json:"invited_by_uid"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsValid reports whether the invitation can still be used to submit a profile.
func (i *PatientInvitation) IsValid(now time.Time) bool {
	return i.Status == InvitationStatusPending && i.ExpiresAt.After(now)
}
