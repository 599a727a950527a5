package city

import (
	"context"
	"sync"
	"time"
)

type Repository interface {
	List(ctx context.Context) ([]Hospital, error)
	GetByID(ctx context.Context, id string) (*Hospital, error)
	Upsert(ctx context.Context, h *Hospital) error
}

// memRepo keeps summaries in memory, in insertion order.
type memRepo struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Hospital
}

// NewMemoryRepo returns a Repository preloaded with the given summaries.
func NewMemoryRepo(seed []Hospital) Repository {
	r := &memRepo{byID: make(map[string]Hospital, len(seed))}
	for _, h := range seed {
		r.put(h)
	}
	return r
}

func (r *memRepo) put(h Hospital) {
	if _, ok := r.byID[h.ID]; !ok {
		r.order = append(r.order, h.ID)
	}
	r.byID[h.ID] = h
}

func (r *memRepo) List(_ context.Context) ([]Hospital, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hospital, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Hospital, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[id]
	if !ok {
		return nil, ErrHospitalNotFound
	}
	return &h, nil
}

func (r *memRepo) Upsert(_ context.Context, h *Hospital) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.UpdatedAt = time.Now()
	r.put(*h)
	return nil
}
