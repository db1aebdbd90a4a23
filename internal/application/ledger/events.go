package ledger

import (
	"context"

	"github.com/condo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PublishCommitted publishes events collected during a committed unit of work.
// Failures are logged and swallowed: the financial state change has already happened.
func PublishCommitted(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.String("first_event_type", events[0].EventType()),
			zap.Error(err))
	}
}
