package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ExpirySweepStats contains statistics about one sweep
type ExpirySweepStats struct {
	Cutoff       time.Time `json:"cutoff"`
	TotalStale   int       `json:"total_stale"`
	Expired      int       `json:"expired"`
	LostRace     int       `json:"lost_race"`
	FailedWrites int       `json:"failed_writes"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// SweepExpired runs one sweep with the service clock and configured timeout.
// This is the entry point for the scheduler and the manual trigger.
func (s *PaymentService) SweepExpired(ctx context.Context) (*ExpirySweepStats, error) {
	return s.sweep(ctx, s.now(), s.pendingTimeout)
}

// SweepExpiredTransactions fails every PENDING transaction created before now - timeout
// and returns how many it changed. Transactions in any other state are never touched.
func (s *PaymentService) SweepExpiredTransactions(ctx context.Context, now time.Time, timeout time.Duration) (int, error) {
	stats, err := s.sweep(ctx, now, timeout)
	if err != nil {
		return 0, err
	}
	return stats.Expired, nil
}

func (s *PaymentService) sweep(ctx context.Context, now time.Time, timeout time.Duration) (*ExpirySweepStats, error) {
	if timeout <= 0 {
		timeout = s.pendingTimeout
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "sweep_expired")
	defer span.End()

	stats, err := s.expireStale(ctx, now, timeout)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "expired", stats.Expired, "lost_race", stats.LostRace)
	return stats, nil
}

func (s *PaymentService) expireStale(ctx context.Context, now time.Time, timeout time.Duration) (*ExpirySweepStats, error) {
	stats := &ExpirySweepStats{
		Cutoff:      now.Add(-timeout),
		ProcessedAt: now,
	}
	var events []shared.DomainEvent

	for {
		stale, err := s.txRepo.FindStalePending(ctx, stats.Cutoff, s.sweepBatchSize)
		if err != nil {
			s.logger.Error("Failed to find stale transactions", zap.Error(err))
			return nil, fmt.Errorf("failed to find stale transactions: %w", err)
		}
		stats.TotalStale += len(stale)

		progressed := 0
		for i := range stale {
			t := &stale[i]
			// each row is its own compare-and-set; a webhook may settle it first
			changed, err := s.txRepo.FailIfPending(ctx, t.ID, now)
			if err != nil {
				s.logger.Error("Failed to expire transaction",
					zap.Int64("transaction_id", t.ID),
					zap.Error(err))
				stats.FailedWrites++
				continue
			}
			progressed++
			if !changed {
				stats.LostRace++
				continue
			}
			stats.Expired++
			events = append(events, payment.NewPaymentFailedEvent(t, payment.FailureReasonExpired))
		}

		if len(stale) < s.sweepBatchSize || progressed == 0 {
			break
		}
	}

	if stats.TotalStale == 0 {
		s.logger.Debug("No stale payment transactions found")
		return stats, nil
	}

	s.logger.Info("Completed payment expiry sweep",
		zap.Time("cutoff", stats.Cutoff),
		zap.Int("total", stats.TotalStale),
		zap.Int("expired", stats.Expired),
		zap.Int("lost_race", stats.LostRace),
		zap.Int("failed", stats.FailedWrites))

	ledger.PublishCommitted(ctx, s.eventPublisher, s.logger, events)
	return stats, nil
}
