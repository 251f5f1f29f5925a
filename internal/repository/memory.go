package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// MemoryEventRepository keeps aggregates in process memory. It serves local
// development without a database and the use-case tests, and follows the same
// versioning rules as EventRepository.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[model.EventKey]*model.Event
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{events: make(map[model.EventKey]*model.Event)}
}

func (r *MemoryEventRepository) FindByKey(_ context.Context, key model.EventKey) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.events[key]
	if !ok {
		return nil, ErrNotFound
	}
	return ev.Clone(), nil
}

func (r *MemoryEventRepository) ListByYear(_ context.Context, year int) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Event
	for _, ev := range r.events {
		if ev.Details.Start.UTC().Year() == year {
			out = append(out, ev.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Event) int {
		return cmp.Or(
			a.Details.Start.Compare(b.Details.Start),
			cmp.Compare(a.Details.Key, b.Details.Key),
		)
	})
	return out, nil
}

func (r *MemoryEventRepository) Create(_ context.Context, ev *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[ev.Details.Key]; exists {
		return fmt.Errorf("event %s already exists: %w", ev.Details.Key, model.ErrConflict)
	}
	ev.Details.Version = 1
	r.events[ev.Details.Key] = ev.Clone()
	return nil
}

func (r *MemoryEventRepository) Update(_ context.Context, ev *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[ev.Details.Key]
	if !ok {
		return ErrNotFound
	}
	if stored.Details.Version != ev.Details.Version {
		return ErrStaleVersion
	}
	ev.Details.Version++
	r.events[ev.Details.Key] = ev.Clone()
	return nil
}

func (r *MemoryEventRepository) DeleteByKey(_ context.Context, key model.EventKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[key]; !ok {
		return ErrNotFound
	}
	delete(r.events, key)
	return nil
}
