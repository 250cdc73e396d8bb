package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/curaflow/curaflow/internal/domain/customer"
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/subscription"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type customerRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCustomerRepository(client postgres.IClient, log *logger.Logger) customer.Repository {
	return &customerRepository{
		client: client,
		logger: log,
	}
}

type customerRow struct {
	ID        string `db:"id"`
	CompanyID string `db:"company_id"`
	Name      string `db:"name"`
	baseModelRow
}

type subscriptionRow struct {
	ID          string              `db:"id"`
	CustomerID  string              `db:"customer_id"`
	CompanyID   string              `db:"company_id"`
	ServiceName string              `db:"service_name"`
	Nature      types.BillingNature `db:"nature"`
	Versions    []byte              `db:"versions"`
	baseModelRow
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	r.logger.Debugw("creating customer", "customer_id", c.ID)

	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO customers (
				id, company_id, name,
				status, created_at, updated_at, created_by, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		_, err := r.client.Querier(ctx).ExecContext(ctx, query,
			c.ID, c.CompanyID, c.Name,
			c.Status, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
		)
		if err != nil {
			return err
		}

		for _, s := range c.Subscriptions {
			if err := r.createSubscription(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ierr.IsDatabase(err) {
			return err
		}
		return ierr.WithError(err).
			WithHint("Failed to create customer").
			WithReportableDetails(map[string]any{"customer_id": c.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *customerRepository) createSubscription(ctx context.Context, s *subscription.Subscription) error {
	versions, err := marshalJSON(s.Versions, "subscription versions")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (
			id, customer_id, company_id, service_name, nature, versions,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.client.Querier(ctx).ExecContext(ctx, query,
		s.ID, s.CustomerID, s.CompanyID, s.ServiceName, s.Nature, versions,
		s.Status, s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy,
	)
	return err
}

// Get loads a customer together with its subscriptions and fundings. The
// billing engine always needs all three and never writes any of them back.
func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var row customerRow

	query := `
		SELECT id, company_id, name,
		       status, created_at, updated_at, created_by, updated_by
		FROM customers
		WHERE id = $1 AND company_id = $2 AND status = $3`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query,
		id, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("customer not found").
				WithHint("The customer does not exist").
				WithReportableDetails(map[string]any{"customer_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get customer").
			Mark(ierr.ErrDatabase)
	}

	subscriptions, err := r.listSubscriptions(ctx, id)
	if err != nil {
		return nil, err
	}

	fundings, err := r.listFundings(ctx, id)
	if err != nil {
		return nil, err
	}

	return &customer.Customer{
		ID:            row.ID,
		Name:          row.Name,
		Subscriptions: subscriptions,
		Fundings:      fundings,
		BaseModel:     row.baseModel(row.CompanyID),
	}, nil
}

func (r *customerRepository) listSubscriptions(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	var rows []subscriptionRow

	query := `
		SELECT id, customer_id, company_id, service_name, nature, versions,
		       status, created_at, updated_at, created_by, updated_by
		FROM subscriptions
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at`

	err := r.client.Querier(ctx).SelectContext(ctx, &rows, query,
		customerID, types.StatusPublished)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*subscription.Subscription, 0, len(rows))
	for _, row := range rows {
		var versions []*subscription.Version
		if err := unmarshalJSON(row.Versions, &versions, "subscription versions"); err != nil {
			return nil, err
		}
		result = append(result, &subscription.Subscription{
			ID:          row.ID,
			CustomerID:  row.CustomerID,
			ServiceName: row.ServiceName,
			Nature:      row.Nature,
			Versions:    versions,
			BaseModel:   row.baseModel(row.CompanyID),
		})
	}
	return result, nil
}

func (r *customerRepository) listFundings(ctx context.Context, customerID string) ([]*funding.Funding, error) {
	var rows []fundingRow

	query := `
		SELECT id, customer_id, subscription_id, company_id, payer_id, nature,
		       frequency, folder_number, shortfall_policy, versions,
		       status, created_at, updated_at, created_by, updated_by
		FROM fundings
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at`

	err := r.client.Querier(ctx).SelectContext(ctx, &rows, query,
		customerID, types.StatusPublished)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list customer fundings").
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
