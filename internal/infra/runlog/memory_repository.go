package runlog

import (
	"context"
	"sync"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
)

// MemoryRepository is an in-memory RunRepository used for tests/dev. It keeps
// at most capacity records, dropping the oldest.
type MemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	records  []inference.RunRecord
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryRepository{capacity: capacity}
}

// Append implements inference.RunRepository.
func (r *MemoryRepository) Append(_ context.Context, rec inference.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = append([]inference.RunRecord(nil), r.records[over:]...)
	}
	return nil
}

// Recent implements inference.RunRepository.
func (r *MemoryRepository) Recent(_ context.Context, limit int) ([]inference.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]inference.RunRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

var _ inference.RunRepository = (*MemoryRepository)(nil)
