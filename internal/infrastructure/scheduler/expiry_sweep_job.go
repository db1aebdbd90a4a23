package scheduler

import (
	"context"

	"github.com/condo/backend/internal/application/payment"
	"go.uber.org/zap"
)

// ExpirySweeper is the part of the payment service the sweep job needs
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (*payment.ExpirySweepStats, error)
}

// ExpirySweepJob fails QR transactions left PENDING past the timeout
type ExpirySweepJob struct {
	sweeper ExpirySweeper
	logger  *zap.Logger
}

// NewExpirySweepJob creates the job
func NewExpirySweepJob(sweeper ExpirySweeper, logger *zap.Logger) *ExpirySweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweepJob{sweeper: sweeper, logger: logger}
}

// Name returns the job name
func (j *ExpirySweepJob) Name() string {
	return "payment-expiry-sweep"
}

// Run performs one sweep
func (j *ExpirySweepJob) Run(ctx context.Context) error {
	stats, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if stats.Expired > 0 || stats.FailedWrites > 0 {
		j.logger.Info("Expired pending payment transactions",
			zap.Int("expired", stats.Expired),
			zap.Int("lost_race", stats.LostRace),
			zap.Int("failed_writes", stats.FailedWrites),
			zap.Time("cutoff", stats.Cutoff))
	}
	return nil
}
