package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/database"
)

// InvitationSweeper periodically expires stale pending invitations. It is the
// only background job in the service; everything else runs per request.
type InvitationSweeper struct {
	db          *database.DB
	invitations InvitationService
	cron        *cron.Cron
	logger      *zap.Logger
}

// NewInvitationSweeper creates a new InvitationSweeper.
func NewInvitationSweeper(db *database.DB, invitations InvitationService, logger *zap.Logger) *InvitationSweeper {
	return &InvitationSweeper{
		db:          db,
		invitations: invitations,
		cron:        cron.New(),
		logger:      logger,
	}
}

// Start schedules the hourly sweep and runs one immediately so a restart
// never leaves stale invitations pending for up to an hour.
func (s *InvitationSweeper) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

// Stop halts the schedule. A sweep already in flight finishes.
func (s *InvitationSweeper) Stop() {
	s.cron.Stop()
}

func (s *InvitationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scope, err := s.db.WithScope(ctx)
	if err != nil {
		s.logger.Error("Invitation sweep failed to acquire connection", zap.Error(err))
		return
	}
	defer scope.Close()

	if _, err := s.invitations.SweepExpired(database.SetScope(ctx, scope)); err != nil {
		s.logger.Error("Invitation sweep failed", zap.Error(err))
	}
}
