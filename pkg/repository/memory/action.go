package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

type actionRepository struct {
	mu      sync.RWMutex
	actions map[types.ActionID]*model.ActionRecord
}

func newActionRepository() *actionRepository {
	return &actionRepository{
		actions: make(map[types.ActionID]*model.ActionRecord),
	}
}

func (r *actionRepository) Create(ctx context.Context, action *model.ActionRecord) (*model.ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := action.Clone()
	if created.ID == "" {
		created.ID = types.NewActionID()
	}
	if _, exists := r.actions[created.ID]; exists {
		return nil, goerr.New("action ID already exists", goerr.V("id", created.ID))
	}

	r.actions[created.ID] = created
	return created.Clone(), nil
}

func (r *actionRepository) Get(ctx context.Context, id types.ActionID) (*model.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}
	return a.Clone(), nil
}

// filter must be called with mu held; result is sorted newest first
func (r *actionRepository) filter(f interfaces.ActionFilter) []*model.ActionRecord {
	var matched []*model.ActionRecord
	for _, a := range r.actions {
		if f.Match(a) {
			matched = append(matched, a)
		}
	}
	slices.SortFunc(matched, func(a, b *model.ActionRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(b.ID), string(a.ID))
	})
	return matched
}

func (r *actionRepository) List(ctx context.Context, f interfaces.ActionFilter, page interfaces.Page) ([]*model.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := paginate(r.filter(f), page)
	result := make([]*model.ActionRecord, len(matched))
	for i, a := range matched {
		result[i] = a.Clone()
	}
	return result, nil
}

func (r *actionRepository) Count(ctx context.Context, f interfaces.ActionFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.actions {
		if f.Match(a) {
			n++
		}
	}
	return n, nil
}

func (r *actionRepository) Update(ctx context.Context, action *model.ActionRecord) (*model.ActionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.actions[action.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", action.ID))
	}

	updated := existing.Clone()
	updated.Data = action.Data.Clone()
	updated.UpdatedAt = action.UpdatedAt
	r.actions[updated.ID] = updated
	return updated.Clone(), nil
}

func (r *actionRepository) Delete(ctx context.Context, id types.ActionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[id]; !ok {
		return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}
	delete(r.actions, id)
	return nil
}

func (r *actionRepository) DeleteByOwner(ctx context.Context, ownerID types.UserID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, a := range r.actions {
		if a.OwnerID == ownerID {
			delete(r.actions, id)
			n++
		}
	}
	return n, nil
}
