package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curaflow/curaflow/internal/api/dto"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/service"
)

type FundingHandler struct {
	fundingService service.FundingService
	logger         *logger.Logger
}

func NewFundingHandler(fundingService service.FundingService, logger *logger.Logger) *FundingHandler {
	return &FundingHandler{
		fundingService: fundingService,
		logger:         logger,
	}
}

// CreateFunding registers a new funding after the non-overlap check
func (h *FundingHandler) CreateFunding(c *gin.Context) {
	var req dto.CreateFundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.fundingService.CreateFunding(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create funding", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
