package testutil

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/curaflow/curaflow/internal/domain/creditnote"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/types"
)

// InMemoryCreditNoteStore implements creditnote.Repository
type InMemoryCreditNoteStore struct {
	*InMemoryStore[*creditnote.CreditNote]
}

func NewInMemoryCreditNoteStore() *InMemoryCreditNoteStore {
	return &InMemoryCreditNoteStore{
		InMemoryStore: NewInMemoryStore[*creditnote.CreditNote](),
	}
}

func (s *InMemoryCreditNoteStore) Create(ctx context.Context, cn *creditnote.CreditNote) error {
	if cn == nil {
		return fmt.Errorf("credit note cannot be nil")
	}
	return s.InMemoryStore.Create(ctx, cn.ID, deepCopy(cn))
}

func (s *InMemoryCreditNoteStore) Get(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	cn, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("credit note not found").
			WithReportableDetails(map[string]any{"credit_note_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return deepCopy(cn), nil
}

func (s *InMemoryCreditNoteStore) ListEditableByEvents(ctx context.Context, eventIDs []string) ([]*creditnote.CreditNote, error) {
	notes, err := s.InMemoryStore.List(ctx, eventIDs, func(ctx context.Context, cn *creditnote.CreditNote, filter interface{}) bool {
		if cn.EditStatus != types.CreditNoteStatusEditable {
			return false
		}
		ids := filter.([]string)
		return lo.Some(cn.EventIDs, ids)
	}, func(i, j *creditnote.CreditNote) bool {
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(notes, func(cn *creditnote.CreditNote, _ int) *creditnote.CreditNote { return deepCopy(cn) }), nil
}

func (s *InMemoryCreditNoteStore) Lock(ctx context.Context, ids []string) error {
	for _, id := range ids {
		cn, err := s.InMemoryStore.Get(ctx, id)
		if err != nil {
			return ierr.NewError("credit note not found").
				WithReportableDetails(map[string]any{"credit_note_id": id}).
				Mark(ierr.ErrNotFound)
		}
		updated := deepCopy(cn)
		updated.EditStatus = types.CreditNoteStatusLocked
		if err := s.InMemoryStore.Update(ctx, id, updated); err != nil {
			return err
		}
	}
	return nil
}
