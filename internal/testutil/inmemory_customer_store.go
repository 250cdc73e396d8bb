package testutil

import (
	"context"
	"fmt"

	"github.com/curaflow/curaflow/internal/domain/customer"
	ierr "github.com/curaflow/curaflow/internal/errors"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return fmt.Errorf("customer cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, c.ID, deepCopy(c))
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("customer not found").
			WithReportableDetails(map[string]any{"customer_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(c), nil
}

// UpdateCustomer replaces a stored customer
func (s *InMemoryCustomerStore) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	return s.InMemoryStore.Update(ctx, c.ID, deepCopy(c))
}
