package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/curaflow/curaflow/internal/domain/bill"
	ierr "github.com/curaflow/curaflow/internal/errors"
)

// InMemoryBillStore implements bill.Repository
type InMemoryBillStore struct {
	*InMemoryStore[*bill.Bill]
}

func NewInMemoryBillStore() *InMemoryBillStore {
	return &InMemoryBillStore{
		InMemoryStore: NewInMemoryStore[*bill.Bill](),
	}
}

func (s *InMemoryBillStore) CreateWithLines(ctx context.Context, b *bill.Bill) error {
	if b == nil {
		return fmt.Errorf("bill cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, b.ID, deepCopy(b))
}

func (s *InMemoryBillStore) Get(ctx context.Context, id string) (*bill.Bill, error) {
	b, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("bill not found").
			WithReportableDetails(map[string]any{"bill_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(b), nil
}

func (s *InMemoryBillStore) List(ctx context.Context, filter bill.ListFilter) ([]*bill.Bill, error) {
	bills, err := s.InMemoryStore.List(ctx, filter, func(ctx context.Context, b *bill.Bill, f interface{}) bool {
		flt := f.(bill.ListFilter)
		if flt.CustomerID != "" && b.CustomerID != flt.CustomerID {
			return false
		}
		if flt.PayerID != "" && lo.FromPtr(b.PayerID) != flt.PayerID {
			return false
		}
		if !flt.PeriodStart.IsZero() && b.PeriodEnd.Before(flt.PeriodStart) {
			return false
		}
		if !flt.PeriodEnd.IsZero() && b.PeriodStart.After(flt.PeriodEnd) {
			return false
		}
		return true
	}, func(i, j *bill.Bill) bool {
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(bills, func(b *bill.Bill, _ int) *bill.Bill { return deepCopy(b) }), nil
}

// InMemoryBillSequenceStore implements bill.SequenceRepository with the same
// peek-then-commit contract as the postgres implementation
type InMemoryBillSequenceStore struct {
	mu        sync.Mutex
	sequences map[string]*bill.Sequence
}

func NewInMemoryBillSequenceStore() *InMemoryBillSequenceStore {
	return &InMemoryBillSequenceStore{
		sequences: make(map[string]*bill.Sequence),
	}
}

func sequenceKey(companyID, prefix string) string {
	return companyID + "/" + prefix
}

func (s *InMemoryBillSequenceStore) Peek(ctx context.Context, companyID, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sequenceKey(companyID, prefix)
	if seq, ok := s.sequences[key]; ok {
		return seq.NextValue, nil
	}

	now := time.Now().UTC()
	s.sequences[key] = &bill.Sequence{
		ID:        key,
		CompanyID: companyID,
		Prefix:    prefix,
		NextValue: 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return 1, nil
}

func (s *InMemoryBillSequenceStore) Commit(ctx context.Context, companyID, prefix string, next int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[sequenceKey(companyID, prefix)]
	if !ok {
		return fmt.Errorf("sequence not found for %s/%s", companyID, prefix)
	}
	if next < seq.NextValue {
		return fmt.Errorf("sequence cannot move backwards")
	}
	seq.NextValue = next
	seq.UpdatedAt = time.Now().UTC()
	return nil
}

// Clear resets all sequences
func (s *InMemoryBillSequenceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences = make(map[string]*bill.Sequence)
}
