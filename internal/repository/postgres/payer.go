package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/curaflow/curaflow/internal/domain/payer"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type payerRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPayerRepository(client postgres.IClient, log *logger.Logger) payer.Repository {
	return &payerRepository{
		client: client,
		logger: log,
	}
}

type payerRow struct {
	ID              string `db:"id"`
	CompanyID       string `db:"company_id"`
	Name            string `db:"name"`
	ExternalBilling bool   `db:"external_billing"`
	baseModelRow
}

func (r *payerRepository) Create(ctx context.Context, p *payer.Payer) error {
	r.logger.Debugw("creating payer", "payer_id", p.ID)

	query := `
		INSERT INTO payers (
			id, company_id, name, external_billing,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		p.ID, p.CompanyID, p.Name, p.ExternalBilling,
		p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create payer").
			WithReportableDetails(map[string]any{"payer_id": p.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *payerRepository) Get(ctx context.Context, id string) (*payer.Payer, error) {
	var row payerRow

	query := `
		SELECT id, company_id, name, external_billing,
		       status, created_at, updated_at, created_by, updated_by
		FROM payers
		WHERE id = $1 AND company_id = $2 AND status = $3`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query,
		id, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("payer not found").
				WithHint("The payer does not exist").
				WithReportableDetails(map[string]any{"payer_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payer").
			Mark(ierr.ErrDatabase)
	}

	return &payer.Payer{
		ID:              row.ID,
		Name:            row.Name,
		ExternalBilling: row.ExternalBilling,
		BaseModel:       row.baseModel(row.CompanyID),
	}, nil
}
