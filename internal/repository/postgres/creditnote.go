package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/creditnote"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/logger"
	"github.com/curaflow/curaflow/internal/postgres"
	"github.com/curaflow/curaflow/internal/types"
)

type creditNoteRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCreditNoteRepository(client postgres.IClient, log *logger.Logger) creditnote.Repository {
	return &creditNoteRepository{
		client: client,
		logger: log,
	}
}

type creditNoteRow struct {
	ID            string                 `db:"id"`
	Number        string                 `db:"number"`
	BillID        string                 `db:"bill_id"`
	CustomerID    string                 `db:"customer_id"`
	CompanyID     string                 `db:"company_id"`
	EventIDs      pq.StringArray         `db:"event_ids"`
	InclTaxAmount decimal.Decimal        `db:"incl_tax_amount"`
	Date          time.Time              `db:"date"`
	EditStatus    types.CreditNoteStatus `db:"edit_status"`
	baseModelRow
}

func (row *creditNoteRow) toDomain() *creditnote.CreditNote {
	return &creditnote.CreditNote{
		ID:            row.ID,
		Number:        row.Number,
		BillID:        row.BillID,
		CustomerID:    row.CustomerID,
		EventIDs:      row.EventIDs,
		InclTaxAmount: row.InclTaxAmount,
		Date:          row.Date,
		EditStatus:    row.EditStatus,
		BaseModel:     row.baseModel(row.CompanyID),
	}
}

func (r *creditNoteRepository) Create(ctx context.Context, cn *creditnote.CreditNote) error {
	r.logger.Debugw("creating credit note",
		"credit_note_id", cn.ID,
		"bill_id", cn.BillID)

	query := `
		INSERT INTO credit_notes (
			id, number, bill_id, customer_id, company_id,
			event_ids, incl_tax_amount, date, edit_status,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		cn.ID, cn.Number, cn.BillID, cn.CustomerID, cn.CompanyID,
		pq.Array(cn.EventIDs), cn.InclTaxAmount, cn.Date, cn.EditStatus,
		cn.Status, cn.CreatedAt, cn.UpdatedAt, cn.CreatedBy, cn.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create credit note").
			WithReportableDetails(map[string]any{"credit_note_id": cn.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *creditNoteRepository) Get(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	var row creditNoteRow

	query := `
		SELECT id, number, bill_id, customer_id, company_id,
		       event_ids, incl_tax_amount, date, edit_status,
		       status, created_at, updated_at, created_by, updated_by
		FROM credit_notes
		WHERE id = $1 AND company_id = $2 AND status = $3`

	err := r.client.Querier(ctx).GetContext(ctx, &row, query,
		id, types.GetCompanyID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("credit note not found").
				WithHint("The credit note does not exist").
				WithReportableDetails(map[string]any{"credit_note_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get credit note").
			Mark(ierr.ErrDatabase)
	}

	return row.toDomain(), nil
}

func (r *creditNoteRepository) ListEditableByEvents(ctx context.Context, eventIDs []string) ([]*creditnote.CreditNote, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	var rows []creditNoteRow

	query := `
		SELECT id, number, bill_id, customer_id, company_id,
		       event_ids, incl_tax_amount, date, edit_status,
		       status, created_at, updated_at, created_by, updated_by
		FROM credit_notes
		WHERE company_id = $1 AND status = $2 AND edit_status = $3
		  AND event_ids && $4`

	err := r.client.Querier(ctx).SelectContext(ctx, &rows, query,
		types.GetCompanyID(ctx), types.StatusPublished,
		types.CreditNoteStatusEditable, pq.Array(eventIDs))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list credit notes by events").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*creditnote.CreditNote, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (r *creditNoteRepository) Lock(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE credit_notes
		SET edit_status = $2, updated_at = now(), updated_by = $3
		WHERE id = ANY($1)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		pq.Array(ids), types.CreditNoteStatusLocked, types.GetUserID(ctx))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to lock credit notes").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
