package handler

import (
	"time"

	billingapp "github.com/condo/backend/internal/application/billing"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BillingHandler handles bill generation, manual bills and billing reference data
type BillingHandler struct {
	BaseHandler
	billingService     *billingapp.BillingService
	defaultDeadlineDay int
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *billingapp.BillingService, defaultDeadlineDay int) *BillingHandler {
	return &BillingHandler{
		billingService:     billingService,
		defaultDeadlineDay: defaultDeadlineDay,
	}
}

// GenerateBillsRequest asks for the automated bills of one month
type GenerateBillsRequest struct {
	Month       int  `json:"month" binding:"required,min=1,max=12"`
	Year        int  `json:"year" binding:"required,min=2000,max=9999"`
	DeadlineDay int  `json:"deadline_day" binding:"omitempty,min=1,max=31"`
	Overwrite   bool `json:"overwrite"`
}

// GenerateBills creates the electricity, water and service bills of a month.
// POST /api/v1/billing/bills/generate
func (h *BillingHandler) GenerateBills(c *gin.Context) {
	var req GenerateBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	deadlineDay := req.DeadlineDay
	if deadlineDay == 0 {
		deadlineDay = h.defaultDeadlineDay
	}

	result, err := h.billingService.GenerateMonthlyBills(c.Request.Context(), billingapp.GenerateBillsCommand{
		Month:       req.Month,
		Year:        req.Year,
		DeadlineDay: deadlineDay,
		ActorID:     middleware.GetActorID(c),
		Overwrite:   req.Overwrite,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// CreateManualBillRequest describes a one-off bill
type CreateManualBillRequest struct {
	ApartmentID string          `json:"apartment_id" binding:"required"`
	Deadline    string          `json:"deadline" binding:"required"`
	TypeTag     string          `json:"type" binding:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
}

// CreateManualBill creates a bill entered by an accountant.
// POST /api/v1/billing/bills
func (h *BillingHandler) CreateManualBill(c *gin.Context) {
	var req CreateManualBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	deadline, err := time.Parse(dto.DateLayout, req.Deadline)
	if err != nil {
		h.Error(c, dto.ErrCodeValidation, "deadline must be a date in YYYY-MM-DD format")
		return
	}

	bill, err := h.billingService.CreateManualBill(c.Request.Context(), billingapp.ManualBillCommand{
		ApartmentID: req.ApartmentID,
		ActorID:     middleware.GetActorID(c),
		Deadline:    deadline,
		TypeTag:     req.TypeTag,
		Amount:      req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToBillResponse(bill))
}

// ListBills returns a page of bills filtered by apartment and status.
// GET /api/v1/billing/bills?apartment_id=&status=&page=&page_size=
func (h *BillingHandler) ListBills(c *gin.Context) {
	var query billingapp.ListBillsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.billingService.ListBills(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToBillResponses(page.Items), page.Total, page.Page, page.PageSize, page.TotalPages)
}

// RecordMeterReadingRequest carries one apartment's readings for a month
type RecordMeterReadingRequest struct {
	ApartmentID    string          `json:"apartment_id" binding:"required"`
	Month          int             `json:"month" binding:"required,min=1,max=12"`
	Year           int             `json:"year" binding:"required,min=2000,max=9999"`
	ElectricityOld decimal.Decimal `json:"electricity_old"`
	ElectricityNew decimal.Decimal `json:"electricity_new"`
	WaterOld       decimal.Decimal `json:"water_old"`
	WaterNew       decimal.Decimal `json:"water_new"`
}

// RecordMeterReading creates or replaces a reading.
// POST /api/v1/billing/meter-readings
func (h *BillingHandler) RecordMeterReading(c *gin.Context) {
	var req RecordMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	reading, err := h.billingService.RecordMeterReading(c.Request.Context(), billingapp.RecordReadingCommand{
		ApartmentID:    req.ApartmentID,
		Month:          req.Month,
		Year:           req.Year,
		ElectricityOld: req.ElectricityOld,
		ElectricityNew: req.ElectricityNew,
		WaterOld:       req.WaterOld,
		WaterNew:       req.WaterNew,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToMeterReadingResponse(reading))
}

// UpsertServiceFeeRequest creates or updates a building's fee
type UpsertServiceFeeRequest struct {
	BuildingID string          `json:"building_id" binding:"required"`
	Name       string          `json:"name" binding:"required,max=100"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Kind       string          `json:"kind" binding:"omitempty,oneof=FIXED PER_AREA UTILITY"`
}

// UpsertServiceFee saves a service fee keyed by building and name.
// PUT /api/v1/billing/service-fees
func (h *BillingHandler) UpsertServiceFee(c *gin.Context) {
	var req UpsertServiceFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	fee, err := h.billingService.UpsertServiceFee(c.Request.Context(), billingapp.UpsertServiceFeeCommand{
		BuildingID: req.BuildingID,
		Name:       req.Name,
		UnitPrice:  req.UnitPrice,
		Kind:       billing.FeeKind(req.Kind),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToServiceFeeResponse(fee))
}
