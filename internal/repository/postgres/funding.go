package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/funding"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type fundingRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewFundingRepository(client postgres.IClient, log *logger.Logger) funding.Repository {
	return &fundingRepository{
		client: client,
		logger: log,
	}
}

type fundingRow struct {
	ID              string                 `db:"id"`
	CustomerID      string                 `db:"customer_id"`
	SubscriptionID  string                 `db:"subscription_id"`
	CompanyID       string                 `db:"company_id"`
	PayerID         string                 `db:"payer_id"`
	Nature          types.BillingNature    `db:"nature"`
	Frequency       types.FundingFrequency `db:"frequency"`
	FolderNumber    string                 `db:"folder_number"`
	ShortfallPolicy types.ShortfallPolicy  `db:"shortfall_policy"`
	Versions        []byte                 `db:"versions"`
	baseModelRow
}

func (row *fundingRow) toDomain() (*funding.Funding, error) {
	var versions []*funding.Version
	if err := unmarshalJSON(row.Versions, &versions, "funding versions"); err != nil {
		return nil, err
	}
	return &funding.Funding{
		ID:              row.ID,
		CustomerID:      row.CustomerID,
		SubscriptionID:  row.SubscriptionID,
		PayerID:         row.PayerID,
		Nature:          row.Nature,
		Frequency:       row.Frequency,
		FolderNumber:    row.FolderNumber,
		ShortfallPolicy: row.ShortfallPolicy,
		Versions:        versions,
		BaseModel:       row.baseModel(row.CompanyID),
	}, nil
}

func (r *fundingRepository) Create(ctx context.Context, f *funding.Funding) error {
	r.logger.Debugw("creating funding",
		"funding_id", f.ID,
		"subscription_id", f.SubscriptionID,
		"payer_id", f.PayerID)

	versions, err := marshalJSON(f.Versions, "funding versions")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fundings (
			id, customer_id, subscription_id, company_id, payer_id, nature,
			frequency, folder_number, shortfall_policy, versions,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.client.Querier(ctx).ExecContext(ctx, query,
		f.ID, f.CustomerID, f.SubscriptionID, f.CompanyID, f.PayerID, f.Nature,
		f.Frequency, f.FolderNumber, f.ShortfallPolicy, versions,
		f.Status, f.CreatedAt, f.UpdatedAt, f.CreatedBy, f.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create funding").
			WithReportableDetails(map[string]any{"funding_id": f.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *fundingRepository) Get(ctx context.Context, id string) (*funding.Funding, error) {
	var row fundingRow

	query := `
		SELECT id, customer_id, subscription_id, company_id, payer_id, nature,
		       frequency, folder_number, shortfall_policy, versions,
		       status, created_at, updated_at, created_by, updated_by
		FROM fundings
		WHERE id = $1 AND company_id = $2 AND status = $3`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query,
		id, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("funding not found").
				WithHint("The funding does not exist").
				WithReportableDetails(map[string]any{"funding_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get funding").
			Mark(ierr.ErrDatabase)
	}

	return row.toDomain()
}

func (r *fundingRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*funding.Funding, error) {
	var rows []fundingRow

	query := `
		SELECT id, customer_id, subscription_id, company_id, payer_id, nature,
		       frequency, folder_number, shortfall_policy, versions,
		       status, created_at, updated_at, created_by, updated_by
		FROM fundings
		WHERE subscription_id = $1 AND company_id = $2 AND status = $3
		ORDER BY created_at`

	err := r.client.Querier(ctx).SelectContext(ctx, &rows, query,
		subscriptionID, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list fundings").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*funding.Funding, 0, len(rows))
	for _, row := range rows {
		f, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}

type fundingHistoryRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewFundingHistoryRepository(client postgres.IClient, log *logger.Logger) funding.HistoryRepository {
	return &fundingHistoryRepository{
		client: client,
		logger: log,
	}
}

type fundingHistoryRow struct {
	ID        string          `db:"id"`
	FundingID string          `db:"funding_id"`
	CompanyID string          `db:"company_id"`
	MonthKey  sql.NullString  `db:"month_key"`
	Hours     decimal.Decimal `db:"hours"`
	Amount    decimal.Decimal `db:"amount"`
	baseModelRow
}

func (row *fundingHistoryRow) toDomain() *funding.History {
	h := &funding.History{
		ID:        row.ID,
		FundingID: row.FundingID,
		Hours:     row.Hours,
		Amount:    row.Amount,
		BaseModel: row.baseModel(row.CompanyID),
	}
	if row.MonthKey.Valid {
		key := row.MonthKey.String
		h.MonthKey = &key
	}
	return h
}

// Increment upserts the counter atomically with a single statement so that
// two billing runs touching the same funding cannot lose an update. Lifetime
// counters use the empty string as their month slot; the unique index is on
// (funding_id, coalesce(month_key, '')).
func (r *fundingHistoryRepository) Increment(ctx context.Context, fundingID string, monthKey *string, hours, amount decimal.Decimal) (*funding.History, error) {
	var row fundingHistoryRow

	base := types.GetDefaultBaseModel(ctx)
	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FUNDING_HISTORY)

	query := `
		INSERT INTO funding_histories (
			id, funding_id, company_id, month_key, hours, amount,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (funding_id, coalesce(month_key, ''))
		DO UPDATE SET
			hours = funding_histories.hours + EXCLUDED.hours,
			amount = funding_histories.amount + EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		RETURNING id, funding_id, company_id, month_key, hours, amount,
		          status, created_at, updated_at, created_by, updated_by`

	err := r.client.Querier(ctx).QueryRowxContext(ctx, query,
		id, fundingID, base.CompanyID, monthKey, hours, amount,
		base.Status, base.CreatedAt, base.UpdatedAt, base.CreatedBy, base.UpdatedBy,
	).StructScan(&row)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to record funding consumption").
			WithReportableDetails(map[string]any{"funding_id": fundingID}).
			Mark(ierr.ErrDatabase)
	}

	return row.toDomain(), nil
}

func (r *fundingHistoryRepository) Get(ctx context.Context, fundingID string, monthKey *string) (*funding.History, error) {
	var row fundingHistoryRow

	query := `
		SELECT id, funding_id, company_id, month_key, hours, amount,
		       status, created_at, updated_at, created_by, updated_by
		FROM funding_histories
		WHERE funding_id = $1 AND coalesce(month_key, '') = coalesce($2, '')`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query, fundingID, monthKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("funding history not found").
				WithHint("No consumption has been recorded yet").
				WithReportableDetails(map[string]any{"funding_id": fundingID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get funding history").
			Mark(ierr.ErrDatabase)
	}

	return row.toDomain(), nil
}
