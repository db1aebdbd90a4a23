package billing

import (
	"time"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BillingService generates and maintains bills
type BillingService struct {
	apartmentRepo  billing.ApartmentRepository
	readingRepo    billing.MeterReadingRepository
	feeRepo        billing.ServiceFeeRepository
	billRepo       billing.BillRepository
	txScope        ledger.TransactionScope
	eventPublisher shared.EventPublisher
	now            func() time.Time
	logger         *zap.Logger
}

// BillingServiceConfig holds the dependencies of the billing service
type BillingServiceConfig struct {
	ApartmentRepo  billing.ApartmentRepository
	ReadingRepo    billing.MeterReadingRepository
	FeeRepo        billing.ServiceFeeRepository
	BillRepo       billing.BillRepository
	TxScope        ledger.TransactionScope
	EventPublisher shared.EventPublisher
	// Clock overrides time.Now, mainly for tests
	Clock  func() time.Time
	Logger *zap.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(config BillingServiceConfig) *BillingService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	return &BillingService{
		apartmentRepo:  config.ApartmentRepo,
		readingRepo:    config.ReadingRepo,
		feeRepo:        config.FeeRepo,
		billRepo:       config.BillRepo,
		txScope:        config.TxScope,
		eventPublisher: config.EventPublisher,
		now:            clock,
		logger:         logger,
	}
}
