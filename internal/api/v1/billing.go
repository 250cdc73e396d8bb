package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curaflow/curaflow/internal/api/dto"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/service"
)

type BillingHandler struct {
	billingService service.BillingService
	logger         *logger.Logger
}

func NewBillingHandler(billingService service.BillingService, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// PrepareDraftBills computes the period's draft bills without persisting
// anything. The response feeds CreateBills unchanged.
func (h *BillingHandler) PrepareDraftBills(c *gin.Context) {
	var req dto.PrepareDraftBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	draft, err := h.billingService.PrepareDraftBills(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to prepare draft bills", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// CreateBills persists a batch of draft bills atomically
func (h *BillingHandler) CreateBills(c *gin.Context) {
	var req dto.CreateBillBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billingService.CreateBills(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create bills", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CreateManualBill creates one ad-hoc bill from priced billing items
func (h *BillingHandler) CreateManualBill(c *gin.Context) {
	var req dto.CreateManualBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billingService.CreateManualBill(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create manual bill", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CreateCreditNote reverses all or part of a bill
func (h *BillingHandler) CreateCreditNote(c *gin.Context) {
	var req dto.CreateCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billingService.CreateCreditNote(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create credit note", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetBill returns one bill by id
func (h *BillingHandler) GetBill(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invalid bill id").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billingService.GetBill(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListBills returns bills for a period, optionally filtered by customer or payer
func (h *BillingHandler) ListBills(c *gin.Context) {
	var req dto.ListBillsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billingService.ListBills(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportBills streams the selected bills as CSV
func (h *BillingHandler) ExportBills(c *gin.Context) {
	var req dto.ListBillsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="bills.csv"`)

	if err := h.billingService.ExportBillsCSV(c.Request.Context(), &req, c.Writer); err != nil {
		h.logger.Errorw("failed to export bills", "error", err)
		c.Error(err)
		return
	}
}
