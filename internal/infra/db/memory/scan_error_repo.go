package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	mu      sync.Mutex
	entries []domain.ScanError
}

func NewScanErrorRepository() *ScanErrorRepository { return &ScanErrorRepository{} }

func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := *e
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.entries = append(r.entries, stored)
	r.mu.Unlock()
	return nil
}

// ListByScan returns newest first.
func (r *ScanErrorRepository) ListByScan(ctx context.Context, ownerID string, scanID string, limit int) ([]*domain.ScanError, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.Lock()
	var out []*domain.ScanError
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.OwnerID == ownerID && e.ScanID == scanID {
			out = append(out, &e)
		}
	}
	r.mu.Unlock()

	slices.SortStableFunc(out, func(a, b *domain.ScanError) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
