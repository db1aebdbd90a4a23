package payment

import (
	"time"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultPendingTimeout is how long a QR transaction may stay PENDING before the sweeper fails it
const DefaultPendingTimeout = 15 * time.Minute

// defaultSweepBatchSize bounds how many stale transactions one sweep query loads
const defaultSweepBatchSize = 500

// PaymentService creates payment transactions, reconciles bank notifications
// against them and expires the ones nobody paid.
type PaymentService struct {
	billRepo       billing.BillRepository
	txRepo         payment.TransactionRepository
	residentRepo   billing.ResidentRepository
	txScope        ledger.TransactionScope
	eventPublisher shared.EventPublisher
	codec          *payment.CorrelationCodec
	qrTemplate     payment.QRTemplate
	pendingTimeout time.Duration
	sweepBatchSize int
	now            func() time.Time
	logger         *zap.Logger
}

// PaymentServiceConfig holds configuration for the payment service
type PaymentServiceConfig struct {
	BillRepo       billing.BillRepository
	TxRepo         payment.TransactionRepository
	ResidentRepo   billing.ResidentRepository
	TxScope        ledger.TransactionScope
	EventPublisher shared.EventPublisher
	// CorrelationPrefix is prepended to transaction IDs in transfer memos (default "BM")
	CorrelationPrefix string
	QRTemplate        payment.QRTemplate
	// PendingTimeout defaults to DefaultPendingTimeout
	PendingTimeout time.Duration
	SweepBatchSize int
	Clock          func() time.Time
	Logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := config.PendingTimeout
	if timeout <= 0 {
		timeout = DefaultPendingTimeout
	}
	batch := config.SweepBatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &PaymentService{
		billRepo:       config.BillRepo,
		txRepo:         config.TxRepo,
		residentRepo:   config.ResidentRepo,
		txScope:        config.TxScope,
		eventPublisher: config.EventPublisher,
		codec:          payment.NewCorrelationCodec(config.CorrelationPrefix),
		qrTemplate:     config.QRTemplate,
		pendingTimeout: timeout,
		sweepBatchSize: batch,
		now:            clock,
		logger:         logger,
	}
}

// PendingTimeout returns the configured expiry window
func (s *PaymentService) PendingTimeout() time.Duration {
	return s.pendingTimeout
}

// uniqueIDs removes duplicates while keeping the first occurrence order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// loadPayableBills loads bills by ID, failing with NOT_FOUND for missing IDs and
// INVALID_STATE for bills already paid. Bills come back in the requested order.
func loadPayableBills(bills []billing.Bill, ids []int64) ([]billing.Bill, error) {
	byID := make(map[int64]billing.Bill, len(bills))
	for _, b := range bills {
		byID[b.ID] = b
	}
	ordered := make([]billing.Bill, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, b)
	}
	if len(missing) > 0 {
		return nil, shared.NewNotFoundError("bills not found: %v", missing)
	}
	for i := range ordered {
		if ordered[i].IsPaid() {
			return nil, shared.NewInvalidStateError("bill %d is already paid", ordered[i].ID)
		}
	}
	return ordered, nil
}
