package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mealvita-inc/mealvita-engine/pkg/database"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
)

// PatientRepository provides data access for patients and their restriction links.
type PatientRepository interface {
	// CreateWithRestrictions persists the patient and all restriction links
	// in one transaction. Patient identity is immutable once created.
	CreateWithRestrictions(ctx context.Context, patient *models.Patient) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error)

	// GetWithRestrictions loads the patient plus intolerance, condition and
	// preference links, with catalog names resolved.
	GetWithRestrictions(ctx context.Context, id uuid.UUID) (*models.Patient, error)

	List(ctx context.Context) ([]*models.Patient, error)
	UpdateProfileStatus(ctx context.Context, id uuid.UUID, status string) error
}

type patientRepository struct{}

// NewPatientRepository creates a new PatientRepository.
func NewPatientRepository() PatientRepository {
	return &patientRepository{}
}

var _ PatientRepository = (*patientRepository)(nil)

func (r *patientRepository) CreateWithRestrictions(ctx context.Context, patient *models.Patient) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO patients (
			id, invitation_id, first_name, last_name, date_of_birth, gender,
			email, phone, profile_status, additional_notes, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, query,
		patient.ID, patient.InvitationID, patient.FirstName, patient.LastName,
		patient.DateOfBirth, patient.Gender, patient.Email, patient.Phone,
		patient.ProfileStatus, patient.AdditionalNotes, patient.IsActive,
		patient.CreatedAt, patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}

	for _, mc := range patient.MedicalConditions {
		if mc.ID == uuid.Nil {
			mc.ID = uuid.New()
		}
		mc.PatientID = patient.ID
		mc.CreatedAt = now

		_, err = tx.Exec(ctx,
			`INSERT INTO patient_medical_conditions (id, patient_id, condition_id, notes, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			mc.ID, mc.PatientID, mc.ConditionID, mc.Notes, mc.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create condition link: %w", err)
		}
	}

	for _, pi := range patient.Intolerances {
		if pi.ID == uuid.Nil {
			pi.ID = uuid.New()
		}
		pi.PatientID = patient.ID
		pi.CreatedAt = now
		if pi.Severity == "" {
			pi.Severity = models.SeverityMild
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO patient_intolerances (id, patient_id, intolerance_id, severity, notes, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			pi.ID, pi.PatientID, pi.IntoleranceID, pi.Severity, pi.Notes, pi.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create intolerance link: %w", err)
		}
	}

	for _, dp := range patient.DietaryPreferences {
		if dp.ID == uuid.Nil {
			dp.ID = uuid.New()
		}
		dp.PatientID = patient.ID
		dp.CreatedAt = now

		_, err = tx.Exec(ctx,
			`INSERT INTO patient_dietary_preferences (id, patient_id, preference_id, created_at)
			 VALUES ($1, $2, $3, $4)`,
			dp.ID, dp.PatientID, dp.PreferenceID, dp.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create preference link: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectPatient + ` WHERE id = $1 AND is_active`

	row := scope.Conn.QueryRow(ctx, query, id)
	patient, err := scanPatient(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return patient, nil
}

func (r *patientRepository) GetWithRestrictions(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	patient, err := r.GetByID(ctx, id)
	if err != nil || patient == nil {
		return patient, err
	}

	scope, _ := database.GetScope(ctx)

	rows, err := scope.Conn.Query(ctx, `
		SELECT pmc.id, pmc.patient_id, pmc.condition_id, mc.condition_name, pmc.notes, pmc.created_at
		FROM patient_medical_conditions pmc
		JOIN medical_conditions mc ON pmc.condition_id = mc.id
		WHERE pmc.patient_id = $1
		ORDER BY mc.condition_name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query condition links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mc models.PatientMedicalCondition
		if err := rows.Scan(&mc.ID, &mc.PatientID, &mc.ConditionID, &mc.ConditionName, &mc.Notes, &mc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan condition link: %w", err)
		}
		patient.MedicalConditions = append(patient.MedicalConditions, &mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating condition links: %w", err)
	}

	rows, err = scope.Conn.Query(ctx, `
		SELECT pi.id, pi.patient_id, pi.intolerance_id, fi.intolerance_name, pi.severity, pi.notes, pi.created_at
		FROM patient_intolerances pi
		JOIN food_intolerances fi ON pi.intolerance_id = fi.id
		WHERE pi.patient_id = $1
		ORDER BY fi.intolerance_name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query intolerance links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pi models.PatientIntolerance
		if err := rows.Scan(&pi.ID, &pi.PatientID, &pi.IntoleranceID, &pi.IntoleranceName, &pi.Severity, &pi.Notes, &pi.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan intolerance link: %w", err)
		}
		patient.Intolerances = append(patient.Intolerances, &pi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intolerance links: %w", err)
	}

	rows, err = scope.Conn.Query(ctx, `
		SELECT pdp.id, pdp.patient_id, pdp.preference_id, dp.preference_name, pdp.created_at
		FROM patient_dietary_preferences pdp
		JOIN dietary_preferences dp ON pdp.preference_id = dp.id
		WHERE pdp.patient_id = $1
		ORDER BY dp.preference_name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query preference links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dp models.PatientDietaryPreference
		if err := rows.Scan(&dp.ID, &dp.PatientID, &dp.PreferenceID, &dp.PreferenceName, &dp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference link: %w", err)
		}
		patient.DietaryPreferences = append(patient.DietaryPreferences, &dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preference links: %w", err)
	}

	return patient, nil
}

func (r *patientRepository) List(ctx context.Context) ([]*models.Patient, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectPatient + ` WHERE is_active ORDER BY last_name, first_name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	var patients []*models.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, nil
}

func (r *patientRepository) UpdateProfileStatus(ctx context.Context, id uuid.UUID, status string) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE patients
		SET profile_status = $2, updated_at = $3
		WHERE id = $1 AND is_active`

	tag, err := scope.Conn.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update profile status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

const selectPatient = `
	SELECT id, invitation_id, first_name, last_name, date_of_birth, gender,
	       email, phone, profile_status, additional_notes, is_active,
	       created_at, updated_at
	FROM patients`

func scanPatient(row pgx.Row) (*models.Patient, error) {
	var p models.Patient

	err := row.Scan(
		&p.ID, &p.InvitationID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Email, &p.Phone, &p.ProfileStatus, &p.AdditionalNotes, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}

	return &p, nil
}
