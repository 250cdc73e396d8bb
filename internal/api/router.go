package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/curaflow/curaflow/internal/api/v1"
	"github.com/curaflow/curaflow/internal/rest/middleware"
)

type Handlers struct {
	Billing *v1.BillingHandler
	Funding *v1.FundingHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CompanyScopeMiddleware)
	router.Use(middleware.ErrorHandler())

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Billing routes
	bills := router.Group("/bills")
	{
		bills.POST("/drafts", handlers.Billing.PrepareDraftBills)
		bills.POST("/batch", handlers.Billing.CreateBills)
		bills.POST("/manual", handlers.Billing.CreateManualBill)
		bills.GET("", handlers.Billing.ListBills)
		bills.GET("/export", handlers.Billing.ExportBills)
		bills.GET("/:id", handlers.Billing.GetBill)
	}

	// Credit note routes
	creditNotes := router.Group("/creditnotes")
	{
		creditNotes.POST("", handlers.Billing.CreateCreditNote)
	}

	// Funding routes
	fundings := router.Group("/fundings")
	{
		fundings.POST("", handlers.Funding.CreateFunding)
	}
}
