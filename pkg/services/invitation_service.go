package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/logging"
	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// InvitationService manages the nutritionist-to-patient invitation flow.
type InvitationService interface {
	// Create issues a new pending invitation with a fresh token, valid for
	// seven days.
	Create(ctx context.Context, email, firstName, lastName, invitedByUID string) (*models.PatientInvitation, error)

	// ValidateToken returns the invitation when the token exists and is
	// still pending and unexpired. Unknown and expired tokens both yield
	// ErrInvitationNotFound.
	ValidateToken(ctx context.Context, token string) (*models.PatientInvitation, error)

	// Regenerate issues a new token for a pending or expired invitation and
	// restarts the seven-day window. Completed invitations cannot be
	// regenerated.
	Regenerate(ctx context.Context, id uuid.UUID) (*models.PatientInvitation, error)

	// Complete marks the invitation completed. Called when the patient
	// submits their profile.
	Complete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, invitedByUID string) ([]*models.PatientInvitation, error)
	Stats(ctx context.Context, invitedByUID string) (map[string]int, error)

	// SweepExpired flips stale pending invitations to expired. Run from the
	// background scheduler.
	SweepExpired(ctx context.Context) (int64, error)
}

type invitationService struct {
	invitationRepo repositories.InvitationRepository
	logger         *zap.Logger
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(invitationRepo repositories.InvitationRepository, logger *zap.Logger) InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		logger:         logger,
	}
}

var _ InvitationService = (*invitationService)(nil)

func (s *invitationService) Create(ctx context.Context, email, firstName, lastName, invitedByUID string) (*models.PatientInvitation, error) {
	if email == "" {
		return nil, apperrors.ErrInvalidInput
	}

	token, err := NewPlanToken()
	if err != nil {
		return nil, err
	}

	inv := &models.PatientInvitation{
		Token:        token,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		InvitedByUID: invitedByUID,
		Status:       models.InvitationStatusPending,
		ExpiresAt:    time.Now().Add(models.InvitationTTL),
	}

	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("Created patient invitation",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("email", logging.MaskEmail(inv.Email)),
		zap.String("invited_by", invitedByUID))

	return inv, nil
}

func (s *invitationService) ValidateToken(ctx context.Context, token string) (*models.PatientInvitation, error) {
	inv, err := s.invitationRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil || !inv.IsValid(time.Now()) {
		return nil, apperrors.ErrInvitationNotFound
	}
	return inv, nil
}

func (s *invitationService) Regenerate(ctx context.Context, id uuid.UUID) (*models.PatientInvitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperrors.ErrInvitationNotFound
	}
	if inv.Status == models.InvitationStatusCompleted {
		return nil, apperrors.ErrConflict
	}

	token, err := NewPlanToken()
	if err != nil {
		return nil, err
	}

	inv.Token = token
	inv.Status = models.InvitationStatusPending
	inv.ExpiresAt = time.Now().Add(models.InvitationTTL)

	if err := s.invitationRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("Regenerated invitation token",
		zap.String("invitation_id", inv.ID.String()))

	return inv, nil
}

func (s *invitationService) Complete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv == nil {
		return apperrors.ErrInvitationNotFound
	}

	now := time.Now()
	inv.Status = models.InvitationStatusCompleted
	inv.CompletedAt = &now

	return s.invitationRepo.Update(ctx, inv)
}

func (s *invitationService) List(ctx context.Context, invitedByUID string) ([]*models.PatientInvitation, error) {
	return s.invitationRepo.List(ctx, invitedByUID)
}

func (s *invitationService) Stats(ctx context.Context, invitedByUID string) (map[string]int, error) {
	return s.invitationRepo.CountByStatus(ctx, invitedByUID)
}

func (s *invitationService) SweepExpired(ctx context.Context) (int64, error) {
	expired, err := s.invitationRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info("Expired stale invitations", zap.Int64("count", expired))
	}
	return expired, nil
}
