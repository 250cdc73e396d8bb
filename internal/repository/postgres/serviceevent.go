package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type serviceEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewServiceEventRepository(client postgres.IClient, log *logger.Logger) serviceevent.Repository {
	return &serviceEventRepository{
		client: client,
		logger: log,
	}
}

type serviceEventRow struct {
	ID             string              `db:"id"`
	CustomerID     string              `db:"customer_id"`
	SubscriptionID string              `db:"subscription_id"`
	CompanyID      string              `db:"company_id"`
	WorkerID       string              `db:"worker_id"`
	StartsAt       time.Time           `db:"starts_at"`
	EndsAt         time.Time           `db:"ends_at"`
	Nature         types.BillingNature `db:"nature"`
	Surcharges     []byte              `db:"surcharges"`
	Billed         bool                `db:"billed"`
	BillLineID     sql.NullString      `db:"bill_line_id"`
	baseModelRow
}

func (row *serviceEventRow) toDomain() (*serviceevent.ServiceEvent, error) {
	var surcharges []serviceevent.SurchargeRule
	if err := unmarshalJSON(row.Surcharges, &surcharges, "event surcharges"); err != nil {
		return nil, err
	}
	e := &serviceevent.ServiceEvent{
		ID:             row.ID,
		CustomerID:     row.CustomerID,
		SubscriptionID: row.SubscriptionID,
		WorkerID:       row.WorkerID,
		StartsAt:       row.StartsAt,
		EndsAt:         row.EndsAt,
		Nature:         row.Nature,
		Surcharges:     surcharges,
		Billed:         row.Billed,
		BaseModel:      row.baseModel(row.CompanyID),
	}
	if row.BillLineID.Valid {
		lineID := row.BillLineID.String
		e.BillLineID = &lineID
	}
	return e, nil
}

func (r *serviceEventRepository) Create(ctx context.Context, event *serviceevent.ServiceEvent) error {
	r.logger.Debugw("creating service event",
		"event_id", event.ID,
		"subscription_id", event.SubscriptionID)

	surcharges, err := marshalJSON(event.Surcharges, "event surcharges")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO service_events (
			id, customer_id, subscription_id, company_id, worker_id,
			starts_at, ends_at, nature, surcharges, billed, bill_line_id,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.client.Querier(ctx).ExecContext(ctx, query,
		event.ID, event.CustomerID, event.SubscriptionID, event.CompanyID, event.WorkerID,
		event.StartsAt, event.EndsAt, event.Nature, surcharges, event.Billed, event.BillLineID,
		event.Status, event.CreatedAt, event.UpdatedAt, event.CreatedBy, event.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create service event").
			WithReportableDetails(map[string]any{"event_id": event.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *serviceEventRepository) Get(ctx context.Context, id string) (*serviceevent.ServiceEvent, error) {
	var row serviceEventRow

	query := `
		SELECT id, customer_id, subscription_id, company_id, worker_id,
		       starts_at, ends_at, nature, surcharges, billed, bill_line_id,
		       status, created_at, updated_at, created_by, updated_by
		FROM service_events
		WHERE id = $1 AND company_id = $2 AND status = $3`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query,
		id, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("service event not found").
				WithHint("The service event does not exist").
				WithReportableDetails(map[string]any{"event_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get service event").
			Mark(ierr.ErrDatabase)
	}

	return row.toDomain()
}

func (r *serviceEventRepository) ListUnbilled(ctx context.Context, filter serviceevent.UnbilledFilter) ([]*serviceevent.ServiceEvent, error) {
	var rows []serviceEventRow

	query := `
		SELECT id, customer_id, subscription_id, company_id, worker_id,
		       starts_at, ends_at, nature, surcharges, billed, bill_line_id,
		       status, created_at, updated_at, created_by, updated_by
		FROM service_events
		WHERE company_id = $1 AND status = $2 AND billed = false
		  AND starts_at >= $3 AND starts_at <= $4
		  AND ($5 = '' OR customer_id = $5)
		ORDER BY starts_at`

	err := r.client.Querier(ctx).SelectContext(ctx, &rows, query,
		types.GetCompanyID(ctx), types.StatusPublished,
		filter.PeriodStart, filter.PeriodEnd, filter.CustomerID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list unbilled service events").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*serviceevent.ServiceEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, nil
}

// MarkBilled consumes events in bulk. The billed guard in the WHERE clause
// makes double billing fail loudly instead of silently overwriting the line
// reference.
func (r *serviceEventRepository) MarkBilled(ctx context.Context, marks []serviceevent.BilledMark) error {
	if len(marks) == 0 {
		return nil
	}

	query := `
		UPDATE service_events
		SET billed = true, bill_line_id = $2, updated_at = now(), updated_by = $3
		WHERE id = $1 AND billed = false`

	userID := types.GetUserID(ctx)
	for _, mark := range marks {
		res, err := r.client.Querier(ctx).ExecContext(ctx, query,
			mark.EventID, mark.BillLineID, userID)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to mark service event billed").
				WithReportableDetails(map[string]any{"event_id": mark.EventID}).
				Mark(ierr.ErrDatabase)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to mark service event billed").
				Mark(ierr.ErrDatabase)
		}
		if affected == 0 {
			return ierr.NewError("service event already billed").
				WithHint("The event was billed by a concurrent run").
				WithReportableDetails(map[string]any{"event_id": mark.EventID}).
				Mark(ierr.ErrConflict)
		}
	}
	return nil
}

func (r *serviceEventRepository) MarkUnbilled(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE service_events
		SET billed = false, bill_line_id = NULL, updated_at = now(), updated_by = $2
		WHERE id = ANY($1)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		pq.Array(ids), types.GetUserID(ctx))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to reopen service events").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
