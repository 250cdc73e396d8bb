package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/curaflow/curaflow/internal/domain/company"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type companyRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCompanyRepository(client postgres.IClient, log *logger.Logger) company.Repository {
	return &companyRepository{
		client: client,
		logger: log,
	}
}

type companyRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	ShortCode string `db:"short_code"`
	LegalName string `db:"legal_name"`
	VATNumber string `db:"vat_number"`
	Address   string `db:"address"`
	baseModelRow
}

func (r *companyRepository) Create(ctx context.Context, c *company.Company) error {
	r.logger.Debugw("creating company", "company_id", c.ID)

	query := `
		INSERT INTO companies (
			id, name, short_code, legal_name, vat_number, address,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		c.ID, c.Name, c.ShortCode, c.LegalName, c.VATNumber, c.Address,
		c.Status, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create company").
			WithReportableDetails(map[string]any{"company_id": c.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *companyRepository) Get(ctx context.Context, id string) (*company.Company, error) {
	var row companyRow

	query := `
		SELECT id, name, short_code, legal_name, vat_number, address,
		       status, created_at, updated_at, created_by, updated_by
		FROM companies
		WHERE id = $1 AND status = $2`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query, id, types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("company not found").
				WithHint("The company does not exist").
				WithReportableDetails(map[string]any{"company_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get company").
			Mark(ierr.ErrDatabase)
	}

	return &company.Company{
		ID:        row.ID,
		Name:      row.Name,
		ShortCode: row.ShortCode,
		LegalName: row.LegalName,
		VATNumber: row.VATNumber,
		Address:   row.Address,
		BaseModel: row.baseModel(row.ID),
	}, nil
}
