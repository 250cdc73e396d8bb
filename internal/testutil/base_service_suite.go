package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

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

// Stores holds all the repository interfaces for testing
type Stores struct {
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

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.db = &testDB{}
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		CompanyRepo:        NewInMemoryCompanyStore(),
		CustomerRepo:       NewInMemoryCustomerStore(),
		PayerRepo:          NewInMemoryPayerStore(),
		EventRepo:          NewInMemoryEventStore(),
		FundingRepo:        NewInMemoryFundingStore(),
		FundingHistoryRepo: NewInMemoryFundingHistoryStore(),
		BillRepo:           NewInMemoryBillStore(),
		BillSequenceRepo:   NewInMemoryBillSequenceStore(),
		CreditNoteRepo:     NewInMemoryCreditNoteStore(),
	}
}

// ClearStores wipes every in-memory store
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.CompanyRepo.(*InMemoryCompanyStore).Clear()
	s.stores.CustomerRepo.(*InMemoryCustomerStore).Clear()
	s.stores.PayerRepo.(*InMemoryPayerStore).Clear()
	s.stores.EventRepo.(*InMemoryEventStore).Clear()
	s.stores.FundingRepo.(*InMemoryFundingStore).Clear()
	s.stores.FundingHistoryRepo.(*InMemoryFundingHistoryStore).Clear()
	s.stores.BillRepo.(*InMemoryBillStore).Clear()
	s.stores.BillSequenceRepo.(*InMemoryBillSequenceStore).Clear()
	s.stores.CreditNoteRepo.(*InMemoryCreditNoteStore).Clear()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// testDB satisfies postgres.IClient for service tests: the in-memory stores
// have no transactions, so WithTx just runs the function.
type testDB struct{}

func (db *testDB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (db *testDB) Querier(ctx context.Context) postgres.Querier {
	return nil
}
