package testutil

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/funding"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/types"
)

// InMemoryFundingStore implements funding.Repository
type InMemoryFundingStore struct {
	*InMemoryStore[*funding.Funding]
}

func NewInMemoryFundingStore() *InMemoryFundingStore {
	return &InMemoryFundingStore{
		InMemoryStore: NewInMemoryStore[*funding.Funding](),
	}
}

func (s *InMemoryFundingStore) Create(ctx context.Context, f *funding.Funding) error {
	if f == nil {
		return fmt.Errorf("funding cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, f.ID, deepCopy(f))
}

func (s *InMemoryFundingStore) Get(ctx context.Context, id string) (*funding.Funding, error) {
	f, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("funding not found").
			WithReportableDetails(map[string]any{"funding_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(f), nil
}

func (s *InMemoryFundingStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*funding.Funding, error) {
	fundings, err := s.InMemoryStore.List(ctx, subscriptionID, func(ctx context.Context, f *funding.Funding, filter interface{}) bool {
		return f.SubscriptionID == filter.(string) && f.Status == types.StatusPublished
	}, func(i, j *funding.Funding) bool {
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(fundings, func(f *funding.Funding, _ int) *funding.Funding { return deepCopy(f) }), nil
}

// InMemoryFundingHistoryStore implements funding.HistoryRepository with the
// same read-or-create-then-add semantics as the postgres upsert
type InMemoryFundingHistoryStore struct {
	*InMemoryStore[*funding.History]
}

func NewInMemoryFundingHistoryStore() *InMemoryFundingHistoryStore {
	return &InMemoryFundingHistoryStore{
		InMemoryStore: NewInMemoryStore[*funding.History](),
	}
}

func historyKey(fundingID string, monthKey *string) string {
	return fundingID + "/" + lo.FromPtr(monthKey)
}

func (s *InMemoryFundingHistoryStore) Increment(ctx context.Context, fundingID string, monthKey *string, hours, amount decimal.Decimal) (*funding.History, error) {
	key := historyKey(fundingID, monthKey)

	existing, err := s.InMemoryStore.Get(ctx, key)
	if err != nil {
		created := &funding.History{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FUNDING_HISTORY),
			FundingID: fundingID,
			MonthKey:  monthKey,
			Hours:     hours,
			Amount:    amount,
			BaseModel: types.GetDefaultBaseModel(ctx),
		}
		if err := s.InMemoryStore.Create(ctx, key, deepCopy(created)); err != nil {
			return nil, err
		}
		return created, nil
	}

	updated := deepCopy(existing)
	updated.Hours = updated.Hours.Add(hours)
	updated.Amount = updated.Amount.Add(amount)
	if err := s.InMemoryStore.Update(ctx, key, deepCopy(updated)); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *InMemoryFundingHistoryStore) Get(ctx context.Context, fundingID string, monthKey *string) (*funding.History, error) {
	h, err := s.InMemoryStore.Get(ctx, historyKey(fundingID, monthKey))
	if err != nil {
		return nil, ierr.NewError("funding history not found").
			WithReportableDetails(map[string]any{"funding_id": fundingID}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(h), nil
}
