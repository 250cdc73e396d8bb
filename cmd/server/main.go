package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/curaflow/curaflow/internal/api"
	v1 "github.com/curaflow/curaflow/internal/api/v1"
	"github.com/curaflow/curaflow/internal/config"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/repository"
	"github.com/curaflow/curaflow/internal/service"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// .env is optional, real deployments configure through the environment
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			providePostgresClient,

			// Repositories
			repository.NewCompanyRepository,
			repository.NewCustomerRepository,
			repository.NewPayerRepository,
			repository.NewServiceEventRepository,
			repository.NewFundingRepository,
			repository.NewFundingHistoryRepository,
			repository.NewBillRepository,
			repository.NewBillSequenceRepository,
			repository.NewCreditNoteRepository,

			// Services
			service.NewServiceParams,
			service.NewBillingService,
			service.NewFundingService,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func providePostgresClient(cfg *config.Configuration, log *logger.Logger) (postgres.IClient, error) {
	return postgres.NewClient(cfg, log)
}

func provideHandlers(
	billingService service.BillingService,
	fundingService service.FundingService,
	logger *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Billing: v1.NewBillingHandler(billingService, logger),
		Funding: v1.NewFundingHandler(fundingService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			return nil
		},
	})
}
