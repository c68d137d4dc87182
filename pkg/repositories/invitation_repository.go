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

// InvitationRepository provides data access for patient invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.PatientInvitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PatientInvitation, error)
	GetByToken(ctx context.Context, token string) (*models.PatientInvitation, error)
	List(ctx context.Context, invitedByUID string) ([]*models.PatientInvitation, error)
	Update(ctx context.Context, inv *models.PatientInvitation) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, invitedByUID string) (map[string]int, error)
}

type invitationRepository struct{}

// NewInvitationRepository creates a new InvitationRepository.
func NewInvitationRepository() InvitationRepository {
	return &invitationRepository{}
}

var _ InvitationRepository = (*invitationRepository)(nil)

func (r *invitationRepository) Create(ctx context.Context, inv *models.PatientInvitation) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	query := `
		INSERT INTO patient_invitations (
			id, token, email, first_name, last_name, invited_by_uid,
			status, expires_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := scope.Conn.Exec(ctx, query,
		inv.ID, inv.Token, inv.Email, inv.FirstName, inv.LastName, inv.InvitedByUID,
		inv.Status, inv.ExpiresAt, inv.CompletedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PatientInvitation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectInvitation + ` WHERE id = $1`

	row := scope.Conn.QueryRow(ctx, query, id)
	inv, err := scanInvitation(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return inv, nil
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.PatientInvitation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectInvitation + ` WHERE token = $1`

	row := scope.Conn.QueryRow(ctx, query, token)
	inv, err := scanInvitation(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return inv, nil
}

func (r *invitationRepository) List(ctx context.Context, invitedByUID string) ([]*models.PatientInvitation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := selectInvitation + ` WHERE invited_by_uid = $1 ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, invitedByUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.PatientInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invitations, nil
}

func (r *invitationRepository) Update(ctx context.Context, inv *models.PatientInvitation) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	inv.UpdatedAt = time.Now()

	query := `
		UPDATE patient_invitations
		SET token = $2, status = $3, expires_at = $4, completed_at = $5, updated_at = $6
		WHERE id = $1`

	_, err := scope.Conn.Exec(ctx, query,
		inv.ID, inv.Token, inv.Status, inv.ExpiresAt, inv.CompletedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	return nil
}

// ExpireStale flips pending invitations whose expiry has passed.
// Called by the background sweep; returns the number of rows changed.
func (r *invitationRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE patient_invitations
		SET status = 'expired', updated_at = $1
		WHERE status = 'pending' AND expires_at <= $1`

	tag, err := scope.Conn.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale invitations: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *invitationRepository) CountByStatus(ctx context.Context, invitedByUID string) (map[string]int, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT status, COUNT(*)
		FROM patient_invitations
		WHERE invited_by_uid = $1
		GROUP BY status`

	rows, err := scope.Conn.Query(ctx, query, invitedByUID)
	if err != nil {
		return nil, fmt.Errorf("failed to count invitations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan invitation count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitation counts: %w", err)
	}

	return counts, nil
}

const selectInvitation = `
	SELECT id, token, email, first_name, last_name, invited_by_uid,
	       status, expires_at, completed_at, created_at, updated_at
	FROM patient_invitations`

func scanInvitation(row pgx.Row) (*models.PatientInvitation, error) {
	var inv models.PatientInvitation

	err := row.Scan(
		&inv.ID, &inv.Token, &inv.Email, &inv.FirstName, &inv.LastName, &inv.InvitedByUID,
		&inv.Status, &inv.ExpiresAt, &inv.CompletedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}

	return &inv, nil
}
