package repository

import (
	"github.com/curaflow/curaflow/internal/domain/bill"
	"github.com/curaflow/curaflow/internal/domain/company"
	"github.com/curaflow/curaflow/internal/domain/creditnote"
	"github.com/curaflow/curaflow/internal/domain/customer"
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/payer"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	repo "github.com/curaflow/curaflow/internal/repository/postgres"
)

func NewCompanyRepository(client postgres.IClient, log *logger.Logger) company.Repository {
	return repo.NewCompanyRepository(client, log)
}

func NewCustomerRepository(client postgres.IClient, log *logger.Logger) customer.Repository {
	return repo.NewCustomerRepository(client, log)
}

func NewPayerRepository(client postgres.IClient, log *logger.Logger) payer.Repository {
	return repo.NewPayerRepository(client, log)
}

func NewServiceEventRepository(client postgres.IClient, log *logger.Logger) serviceevent.Repository {
	return repo.NewServiceEventRepository(client, log)
}

func NewFundingRepository(client postgres.IClient, log *logger.Logger) funding.Repository {
	return repo.NewFundingRepository(client, log)
}

func NewFundingHistoryRepository(client postgres.IClient, log *logger.Logger) funding.HistoryRepository {
	return repo.NewFundingHistoryRepository(client, log)
}

func NewBillRepository(client postgres.IClient, log *logger.Logger) bill.Repository {
	return repo.NewBillRepository(client, log)
}

func NewBillSequenceRepository(client postgres.IClient, log *logger.Logger) bill.SequenceRepository {
	return repo.NewBillSequenceRepository(client, log)
}

func NewCreditNoteRepository(client postgres.IClient, log *logger.Logger) creditnote.Repository {
	return repo.NewCreditNoteRepository(client, log)
}
