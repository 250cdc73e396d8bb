package service

import (
	"github.com/curaflow/curaflow/internal/config"
	"github.com/curaflow/curaflow/internal/domain/bill"
	"github.com/curaflow/curaflow/internal/domain/company"
	"github.com/curaflow/curaflow/internal/domain/creditnote"
	"github.com/curaflow/curaflow/internal/domain/customer"
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/payer"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	CompanyRepo        company.Repository
	CustomerRepo       customer.Repository
	PayerRepo          payer.Repository
	EventRepo          serviceevent.Repository
	FundingRepo        funding.Repository
	FundingHistoryRepo funding.HistoryRepository
	BillRepo           bill.Repository
	BillSequenceRepo   bill.SequenceRepository
	CreditNoteRepo     creditnote.Repository
}

// NewServiceParams assembles the shared service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	companyRepo company.Repository,
	customerRepo customer.Repository,
	payerRepo payer.Repository,
	eventRepo serviceevent.Repository,
	fundingRepo funding.Repository,
	fundingHistoryRepo funding.HistoryRepository,
	billRepo bill.Repository,
	billSequenceRepo bill.SequenceRepository,
	creditNoteRepo creditnote.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		CompanyRepo:        companyRepo,
		CustomerRepo:       customerRepo,
		PayerRepo:          payerRepo,
		EventRepo:          eventRepo,
		FundingRepo:        fundingRepo,
		FundingHistoryRepo: fundingHistoryRepo,
		BillRepo:           billRepo,
		BillSequenceRepo:   billSequenceRepo,
		CreditNoteRepo:     creditNoteRepo,
	}
}
