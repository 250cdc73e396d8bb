package testutil

import (
	"context"
	"fmt"

	"github.com/curaflow/curaflow/internal/domain/company"
	"github.com/curaflow/curaflow/internal/domain/payer"
	ierr "github.com/curaflow/curaflow/internal/errors"
)

// InMemoryCompanyStore implements company.Repository
type InMemoryCompanyStore struct {
	*InMemoryStore[*company.Company]
}

func NewInMemoryCompanyStore() *InMemoryCompanyStore {
	return &InMemoryCompanyStore{
		InMemoryStore: NewInMemoryStore[*company.Company](),
	}
}

func (s *InMemoryCompanyStore) Create(ctx context.Context, c *company.Company) error {
	if c == nil {
		return fmt.Errorf("company cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, c.ID, deepCopy(c))
}

func (s *InMemoryCompanyStore) Get(ctx context.Context, id string) (*company.Company, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("company not found").
			WithReportableDetails(map[string]any{"company_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(c), nil
}

// InMemoryPayerStore implements payer.Repository
type InMemoryPayerStore struct {
	*InMemoryStore[*payer.Payer]
}

func NewInMemoryPayerStore() *InMemoryPayerStore {
	return &InMemoryPayerStore{
		InMemoryStore: NewInMemoryStore[*payer.Payer](),
	}
}

func (s *InMemoryPayerStore) Create(ctx context.Context, p *payer.Payer) error {
	if p == nil {
		return fmt.Errorf("payer cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, p.ID, deepCopy(p))
}

func (s *InMemoryPayerStore) Get(ctx context.Context, id string) (*payer.Payer, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("payer not found").
			WithReportableDetails(map[string]any{"payer_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(p), nil
}
