package postgres

import (
	"encoding/json"
	"time"

	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/types"
)

// baseModelRow maps the audit columns every table carries. The company_id
// column is scanned separately because the companies table scopes to itself.
type baseModelRow struct {
	Status    types.Status `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
	CreatedBy string       `db:"created_by"`
	UpdatedBy string       `db:"updated_by"`
}

func (r baseModelRow) baseModel(companyID string) types.BaseModel {
	return types.BaseModel{
		CompanyID: companyID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		CreatedBy: r.CreatedBy,
		UpdatedBy: r.UpdatedBy,
	}
}

// marshalJSON serializes a nested value into a jsonb column
func marshalJSON(v any, what string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to serialize %s", what).
			Mark(ierr.ErrDatabase)
	}
	return data, nil
}

// unmarshalJSON deserializes a jsonb column into a nested value
func unmarshalJSON(data []byte, v any, what string) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to deserialize %s", what).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
