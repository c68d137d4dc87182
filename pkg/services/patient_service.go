package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/logging"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// ProfileSubmission is the intake form payload a patient submits against an
// invitation token.
type ProfileSubmission struct {
	FirstName       string             `json:"first_name"`
	LastName        string             `json:"last_name"`
	DateOfBirth     time.Time          `json:"date_of_birth"`
	Gender          string             `json:"gender"`
	Email           string             `json:"email,omitempty"`
	Phone           string             `json:"phone,omitempty"`
	AdditionalNotes string             `json:"additional_notes,omitempty"`
	Conditions      []ConditionInput   `json:"medical_conditions,omitempty"`
	Intolerances    []IntoleranceInput `json:"intolerances,omitempty"`
	Preferences     []uuid.UUID        `json:"dietary_preferences,omitempty"`
}

// ConditionInput links a reported medical condition with optional notes.
type ConditionInput struct {
	ConditionID uuid.UUID `json:"condition_id"`
	Notes       string    `json:"notes,omitempty"`
}

// IntoleranceInput links a reported intolerance with severity and notes.
type IntoleranceInput struct {
	IntoleranceID uuid.UUID `json:"intolerance_id"`
	Severity      string    `json:"severity,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// ProfileResult is returned from SubmitProfile. PlanPending is set when
// profile creation succeeded but plan generation could not complete; the
// plan is generated later by staff.
type ProfileResult struct {
	Patient     *models.Patient  `json:"patient"`
	Plan        *models.MealPlan `json:"plan,omitempty"`
	PlanPending bool             `json:"plan_pending"`
}

// PatientService manages patient profiles and the intake flow.
type PatientService interface {
	// SubmitProfile validates the invitation token, screens free-text
	// fields, creates the patient with restriction links, completes the
	// invitation and triggers plan generation. Generation failure does not
	// fail the submission; the result reports the plan as pending.
	SubmitProfile(ctx context.Context, invitationToken string, sub *ProfileSubmission) (*ProfileResult, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	List(ctx context.Context) ([]*models.Patient, error)

	// ApproveProfile flips the patient's profile to approved after staff
	// review. Independent of meal-plan status.
	ApproveProfile(ctx context.Context, id uuid.UUID) (*models.Patient, error)
}

type patientService struct {
	patientRepo   repositories.PatientRepository
	invitationSvc InvitationService
	planSvc       MealPlanService
	logger        *zap.Logger
}

// NewPatientService creates a new PatientService.
func NewPatientService(
	patientRepo repositories.PatientRepository,
	invitationSvc InvitationService,
	planSvc MealPlanService,
	logger *zap.Logger,
) PatientService {
	return &patientService{
		patientRepo:   patientRepo,
		invitationSvc: invitationSvc,
		planSvc:       planSvc,
		logger:        logger,
	}
}

var _ PatientService = (*patientService)(nil)

func (s *patientService) SubmitProfile(ctx context.Context, invitationToken string, sub *ProfileSubmission) (*ProfileResult, error) {
	inv, err := s.invitationSvc.ValidateToken(ctx, invitationToken)
	if err != nil {
		return nil, err
	}

	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	freeText := map[string]string{"additional_notes": sub.AdditionalNotes}
	for i, c := range sub.Conditions {
		freeText[fmt.Sprintf("condition_notes[%d]", i)] = c.Notes
	}
	for i, it := range sub.Intolerances {
		freeText[fmt.Sprintf("intolerance_notes[%d]", i)] = it.Notes
	}
	if dirty := ScreenIntakeFields(freeText); len(dirty) > 0 {
		for _, d := range dirty {
			s.logger.Warn("Rejected intake field with injection pattern",
				zap.String("field", d.Field),
				zap.Bool("sqli", d.IsSQLi),
				zap.Bool("xss", d.IsXSS),
				zap.String("fingerprint", d.Fingerprint))
		}
		return nil, fmt.Errorf("intake text rejected: %w", apperrors.ErrInvalidInput)
	}

	patient := &models.Patient{
		InvitationID:    &inv.ID,
		FirstName:       sub.FirstName,
		LastName:        sub.LastName,
		DateOfBirth:     sub.DateOfBirth,
		Gender:          sub.Gender,
		Email:           sub.Email,
		Phone:           sub.Phone,
		ProfileStatus:   models.ProfileStatusPendingReview,
		AdditionalNotes: sub.AdditionalNotes,
		IsActive:        true,
	}
	if patient.Email == "" {
		patient.Email = inv.Email
	}

	for _, c := range sub.Conditions {
		patient.MedicalConditions = append(patient.MedicalConditions, &models.PatientMedicalCondition{
			ConditionID: c.ConditionID,
			Notes:       c.Notes,
		})
	}
	for _, it := range sub.Intolerances {
		patient.Intolerances = append(patient.Intolerances, &models.PatientIntolerance{
			IntoleranceID: it.IntoleranceID,
			Severity:      it.Severity,
			Notes:         it.Notes,
		})
	}
	for _, p := range sub.Preferences {
		patient.DietaryPreferences = append(patient.DietaryPreferences, &models.PatientDietaryPreference{
			PreferenceID: p,
		})
	}

	if err := s.patientRepo.CreateWithRestrictions(ctx, patient); err != nil {
		return nil, &apperrors.PersistenceError{Op: "patient creation", Err: err}
	}

	if err := s.invitationSvc.Complete(ctx, inv.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Created patient profile",
		zap.String("patient_id", patient.ID.String()),
		zap.String("email", logging.MaskEmail(patient.Email)),
		zap.String("invitation_id", inv.ID.String()))

	result := &ProfileResult{Patient: patient}

	// Plan generation must not sink the submission. A thin catalog or a
	// storage hiccup leaves the profile intact and the plan pending.
	plan, err := s.planSvc.Generate(ctx, patient.ID, inv.InvitedByUID)
	if err != nil {
		s.logger.Warn("Plan generation deferred after profile submission",
			zap.String("patient_id", patient.ID.String()),
			zap.Error(err))
		result.PlanPending = true
		return result, nil
	}

	result.Plan = plan
	return result, nil
}

func (s *patientService) Get(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	patient, err := s.patientRepo.GetWithRestrictions(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperrors.ErrPatientNotFound
	}
	return patient, nil
}

func (s *patientService) List(ctx context.Context) ([]*models.Patient, error) {
	return s.patientRepo.List(ctx)
}

func (s *patientService) ApproveProfile(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	err := s.patientRepo.UpdateProfileStatus(ctx, id, models.ProfileStatusApproved)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrPatientNotFound
		}
		return nil, err
	}
	return s.patientRepo.GetByID(ctx, id)
}

func validateSubmission(sub *ProfileSubmission) error {
	if sub == nil || sub.FirstName == "" || sub.LastName == "" {
		return fmt.Errorf("first and last name are required: %w", apperrors.ErrInvalidInput)
	}
	if sub.DateOfBirth.IsZero() || sub.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("invalid date of birth: %w", apperrors.ErrInvalidInput)
	}
	switch sub.Gender {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
	default:
		return fmt.Errorf("invalid gender: %w", apperrors.ErrInvalidInput)
	}
	for _, it := range sub.Intolerances {
		switch it.Severity {
		case "", models.SeverityMild, models.SeverityModerate, models.SeveritySevere:
		default:
			return fmt.Errorf("invalid intolerance severity: %w", apperrors.ErrInvalidInput)
		}
	}
	return nil
}
