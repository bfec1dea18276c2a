package escrow

import (
	"context"
	"sync"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// MemoryRepository keeps escrow records in process memory. Used in no-db
// deployments and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]domain.EscrowRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]domain.EscrowRecord)}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*domain.EscrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := rec
	return &copied, nil
}

func (r *MemoryRepository) Save(_ context.Context, rec *domain.EscrowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

func (r *MemoryRepository) ListOpen(_ context.Context) ([]*domain.EscrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.EscrowRecord, 0)
	for _, rec := range r.records {
		if rec.State.Terminal() {
			continue
		}
		copied := rec
		out = append(out, &copied)
	}
	return out, nil
}

var _ RecordRepository = (*MemoryRepository)(nil)
