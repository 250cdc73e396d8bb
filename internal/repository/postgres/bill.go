package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/bill"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type billRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewBillRepository(client postgres.IClient, log *logger.Logger) bill.Repository {
	return &billRepository{
		client: client,
		logger: log,
	}
}

type billRow struct {
	ID           string           `db:"id"`
	Number       sql.NullString   `db:"number"`
	PayerID      sql.NullString   `db:"payer_id"`
	CustomerID   string           `db:"customer_id"`
	CompanyID    string           `db:"company_id"`
	BillDate     time.Time        `db:"bill_date"`
	PeriodStart  time.Time        `db:"period_start"`
	PeriodEnd    time.Time        `db:"period_end"`
	TotalInclTax decimal.Decimal  `db:"total_incl_tax"`
	Lines        []byte           `db:"lines"`
	Items        []byte           `db:"items"`
	Origin       types.BillOrigin `db:"origin"`
	Type         types.BillType   `db:"type"`
	baseModelRow
}

func (row *billRow) toDomain() (*bill.Bill, error) {
	var lines []*bill.SubscriptionLine
	if err := unmarshalJSON(row.Lines, &lines, "bill lines"); err != nil {
		return nil, err
	}
	var items []*bill.BillingItemLine
	if err := unmarshalJSON(row.Items, &items, "bill items"); err != nil {
		return nil, err
	}

	b := &bill.Bill{
		ID:           row.ID,
		CustomerID:   row.CustomerID,
		BillDate:     row.BillDate,
		PeriodStart:  row.PeriodStart,
		PeriodEnd:    row.PeriodEnd,
		TotalInclTax: row.TotalInclTax,
		Lines:        lines,
		Items:        items,
		Origin:       row.Origin,
		Type:         row.Type,
		BaseModel:    row.baseModel(row.CompanyID),
	}
	if row.Number.Valid {
		number := row.Number.String
		b.Number = &number
	}
	if row.PayerID.Valid {
		payerID := row.PayerID.String
		b.PayerID = &payerID
	}
	return b, nil
}

// CreateWithLines persists the bill and its lines as one row; lines and items
// are immutable once written so they travel as jsonb with their parent.
func (r *billRepository) CreateWithLines(ctx context.Context, b *bill.Bill) error {
	r.logger.Debugw("creating bill",
		"bill_id", b.ID,
		"customer_id", b.CustomerID,
		"line_count", len(b.Lines))

	lines, err := marshalJSON(b.Lines, "bill lines")
	if err != nil {
		return err
	}
	items, err := marshalJSON(b.Items, "bill items")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bills (
			id, number, payer_id, customer_id, company_id,
			bill_date, period_start, period_end, total_incl_tax,
			lines, items, origin, type,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = r.client.Querier(ctx).ExecContext(ctx, query,
		b.ID, b.Number, b.PayerID, b.CustomerID, b.CompanyID,
		b.BillDate, b.PeriodStart, b.PeriodEnd, b.TotalInclTax,
		lines, items, b.Origin, b.Type,
		b.Status, b.CreatedAt, b.UpdatedAt, b.CreatedBy, b.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create bill").
			WithReportableDetails(map[string]any{"bill_id": b.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billRepository) Get(ctx context.Context, id string) (*bill.Bill, error) {
	var row billRow

	query := `
		SELECT id, number, payer_id, customer_id, company_id,
		       bill_date, period_start, period_end, total_incl_tax,
		       lines, items, origin, type,
		       status, created_at, updated_at, created_by, updated_by
		FROM bills
		WHERE id = $1 AND company_id = $2 AND status = $3`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query,
		id, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("bill not found").
				WithHint("The bill does not exist").
				WithReportableDetails(map[string]any{"bill_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get bill").
			Mark(ierr.ErrDatabase)
	}

	return row.toDomain()
}

func (r *billRepository) List(ctx context.Context, filter bill.ListFilter) ([]*bill.Bill, error) {
	var rows []billRow

	query := `
		SELECT id, number, payer_id, customer_id, company_id,
		       bill_date, period_start, period_end, total_incl_tax,
		       lines, items, origin, type,
		       status, created_at, updated_at, created_by, updated_by
		FROM bills
		WHERE company_id = $1 AND status = $2
		  AND period_start >= $3 AND period_end <= $4
		  AND ($5 = '' OR customer_id = $5)
		  AND ($6 = '' OR payer_id = $6)
		ORDER BY created_at`

	err := r.client.Querier(ctx).SelectContext(ctx, &rows, query,
		types.GetCompanyID(ctx), types.StatusPublished,
		filter.PeriodStart, filter.PeriodEnd, filter.CustomerID, filter.PayerID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list bills").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*bill.Bill, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, nil
}

type billSequenceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewBillSequenceRepository(client postgres.IClient, log *logger.Logger) bill.SequenceRepository {
	return &billSequenceRepository{
		client: client,
		logger: log,
	}
}

// Peek reads the next bill number for a (company, prefix) pair, creating the
// record at 1 on first use. The insert-or-noop keeps first use atomic; the
// row lock taken by the commit protects the batch against itself, not against
// concurrent batches, which the service serializes.
func (r *billSequenceRepository) Peek(ctx context.Context, companyID, prefix string) (int64, error) {
	var next int64

	query := `
		INSERT INTO bill_sequences (id, company_id, prefix, next_value, created_at, updated_at)
		VALUES ($1, $2, $3, 1, now(), now())
		ON CONFLICT (company_id, prefix)
		DO UPDATE SET updated_at = bill_sequences.updated_at
		RETURNING next_value`

	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL_SEQUENCE)
	err := r.client.Querier(ctx).QueryRowxContext(ctx, query, id, companyID, prefix).Scan(&next)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to read bill number sequence").
			WithReportableDetails(map[string]any{
				"company_id": companyID,
				"prefix":     prefix,
			}).
			Mark(ierr.ErrDatabase)
	}

	return next, nil
}

// Commit advances the sequence to the given next value. Moving backwards is
// rejected so a stale batch can never reissue numbers.
func (r *billSequenceRepository) Commit(ctx context.Context, companyID, prefix string, next int64) error {
	query := `
		UPDATE bill_sequences
		SET next_value = $3, updated_at = now()
		WHERE company_id = $1 AND prefix = $2 AND next_value <= $3`

	res, err := r.client.Querier(ctx).ExecContext(ctx, query, companyID, prefix, next)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit bill number sequence").
			Mark(ierr.ErrDatabase)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit bill number sequence").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("bill number sequence moved past the batch").
			WithHint("A concurrent billing run advanced the sequence").
			WithReportableDetails(map[string]any{
				"company_id": companyID,
				"prefix":     prefix,
				"next":       next,
			}).
			Mark(ierr.ErrConflict)
	}
	return nil
}
