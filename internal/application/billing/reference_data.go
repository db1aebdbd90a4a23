package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordReadingCommand records an apartment's meter readings for a month
type RecordReadingCommand struct {
	ApartmentID    string          `json:"apartment_id" validate:"required"`
	Month          int             `json:"month" validate:"min=1,max=12"`
	Year           int             `json:"year" validate:"min=2000,max=9999"`
	ElectricityOld decimal.Decimal `json:"electricity_old"`
	ElectricityNew decimal.Decimal `json:"electricity_new"`
	WaterOld       decimal.Decimal `json:"water_old"`
	WaterNew       decimal.Decimal `json:"water_new"`
}

// RecordMeterReading creates or replaces the reading of an apartment for a period
func (s *BillingService) RecordMeterReading(ctx context.Context, cmd RecordReadingCommand) (*billing.MeterReading, error) {
	if err := ledger.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	period := billing.Period{Month: cmd.Month, Year: cmd.Year}
	reading, err := billing.NewMeterReading(cmd.ApartmentID, period,
		cmd.ElectricityOld, cmd.ElectricityNew, cmd.WaterOld, cmd.WaterNew, s.now())
	if err != nil {
		return nil, err
	}

	if _, err := s.apartmentRepo.FindByID(ctx, cmd.ApartmentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("apartment %s not found", cmd.ApartmentID)
		}
		return nil, fmt.Errorf("failed to load apartment: %w", err)
	}

	if err := s.readingRepo.Upsert(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to save meter reading: %w", err)
	}

	s.logger.Info("Meter reading recorded",
		zap.String("apartment_id", reading.ApartmentID),
		zap.String("period", period.String()),
		zap.String("electricity_kwh", reading.ElectricityConsumption().String()),
		zap.String("water_m3", reading.WaterConsumption().String()))
	return reading, nil
}

// UpsertServiceFeeCommand creates or updates a building's service fee
type UpsertServiceFeeCommand struct {
	BuildingID string          `json:"building_id" validate:"required"`
	Name       string          `json:"name" validate:"required,max=100"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Kind       billing.FeeKind `json:"kind" validate:"omitempty,oneof=FIXED PER_AREA UTILITY"`
}

// UpsertServiceFee creates the fee or updates the one with the same building and name
func (s *BillingService) UpsertServiceFee(ctx context.Context, cmd UpsertServiceFeeCommand) (*billing.ServiceFee, error) {
	if err := ledger.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	fee, err := billing.NewServiceFee(cmd.BuildingID, cmd.Name, cmd.UnitPrice, cmd.Kind, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.feeRepo.Upsert(ctx, fee); err != nil {
		return nil, fmt.Errorf("failed to save service fee: %w", err)
	}

	s.logger.Info("Service fee saved",
		zap.String("building_id", fee.BuildingID),
		zap.String("name", fee.Name),
		zap.String("kind", string(fee.Kind)),
		zap.String("unit_price", fee.UnitPrice.String()))
	return fee, nil
}

// ListBillsQuery filters the bill listing
type ListBillsQuery struct {
	ApartmentID string             `form:"apartment_id"`
	Status      billing.BillStatus `form:"status" validate:"omitempty,oneof=UNPAID PAID"`
	Page        int                `form:"page" validate:"gte=0"`
	PageSize    int                `form:"page_size" validate:"gte=0,lte=200"`
}

// ListBills returns a page of bills, newest deadline first
func (s *BillingService) ListBills(ctx context.Context, query ListBillsQuery) (*shared.Paginated[billing.Bill], error) {
	if err := ledger.ValidateCommand(query); err != nil {
		return nil, err
	}
	filter := billing.BillFilter{
		Filter:      shared.DefaultFilter(),
		ApartmentID: query.ApartmentID,
		Status:      query.Status,
	}
	filter.OrderBy = "deadline"
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}

	bills, total, err := s.billRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	page := shared.NewPaginated(bills, total, filter.Page, filter.PageSize)
	return &page, nil
}
