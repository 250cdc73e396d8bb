package testutil

import (
	"context"
	"fmt"
	"sort"

	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/samber/lo"
)

// InMemoryEventStore implements serviceevent.Repository
type InMemoryEventStore struct {
	*InMemoryStore[*serviceevent.ServiceEvent]
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		InMemoryStore: NewInMemoryStore[*serviceevent.ServiceEvent](),
	}
}

func (s *InMemoryEventStore) Create(ctx context.Context, event *serviceevent.ServiceEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, event.ID, deepCopy(event))
}

func (s *InMemoryEventStore) Get(ctx context.Context, id string) (*serviceevent.ServiceEvent, error) {
	event, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("event not found").
			WithReportableDetails(map[string]any{"event_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(event), nil
}

func (s *InMemoryEventStore) ListUnbilled(ctx context.Context, filter serviceevent.UnbilledFilter) ([]*serviceevent.ServiceEvent, error) {
	events, err := s.InMemoryStore.List(ctx, filter, func(ctx context.Context, e *serviceevent.ServiceEvent, f interface{}) bool {
		flt := f.(serviceevent.UnbilledFilter)
		if e.Billed {
			return false
		}
		if flt.CustomerID != "" && e.CustomerID != flt.CustomerID {
			return false
		}
		return !e.StartsAt.Before(flt.PeriodStart) && !e.StartsAt.After(flt.PeriodEnd)
	}, func(i, j *serviceevent.ServiceEvent) bool {
		return i.StartsAt.Before(j.StartsAt)
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(events, func(e *serviceevent.ServiceEvent, _ int) *serviceevent.ServiceEvent {
		return deepCopy(e)
	}), nil
}

func (s *InMemoryEventStore) MarkBilled(ctx context.Context, marks []serviceevent.BilledMark) error {
	for _, mark := range marks {
		event, err := s.InMemoryStore.Get(ctx, mark.EventID)
		if err != nil {
			return ierr.NewError("event not found").
				WithReportableDetails(map[string]any{"event_id": mark.EventID}).
				Mark(ierr.ErrNotFound)
		}
		if event.Billed {
			return ierr.NewError("event is already billed").
				WithReportableDetails(map[string]any{"event_id": mark.EventID}).
				Mark(ierr.ErrConflict)
		}
		updated := deepCopy(event)
		updated.Billed = true
		updated.BillLineID = lo.ToPtr(mark.BillLineID)
		if err := s.InMemoryStore.Update(ctx, mark.EventID, updated); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryEventStore) MarkUnbilled(ctx context.Context, ids []string) error {
	sort.Strings(ids)
	for _, id := range ids {
		event, err := s.InMemoryStore.Get(ctx, id)
		if err != nil {
			return ierr.NewError("event not found").
				WithReportableDetails(map[string]any{"event_id": id}).
				Mark(ierr.ErrNotFound)
		}
		updated := deepCopy(event)
		updated.Billed = false
		updated.BillLineID = nil
		if err := s.InMemoryStore.Update(ctx, id, updated); err != nil {
			return err
		}
	}
	return nil
}
