// Package memory holds in-process repositories for development and tests.
package memory

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

// ownerShard holds one owner's records behind its own lock, so writes for
// owner A never block reads for owner B.
type ownerShard struct {
	mu      sync.RWMutex
	records map[domain.ScanID]domain.ScanRecord
}

type ScanRepository struct {
	mu     sync.RWMutex
	shards map[string]*ownerShard
	owners map[domain.ScanID]string
}

func NewScanRepository() *ScanRepository {
	return &ScanRepository{
		shards: make(map[string]*ownerShard),
		owners: make(map[domain.ScanID]string),
	}
}

func (r *ScanRepository) shard(ownerID string, create bool) *ownerShard {
	r.mu.RLock()
	sh, ok := r.shards[ownerID]
	r.mu.RUnlock()
	if ok || !create {
		return sh
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sh, ok := r.shards[ownerID]; ok {
		return sh
	}
	sh = &ownerShard{records: make(map[domain.ScanID]domain.ScanRecord)}
	r.shards[ownerID] = sh
	return sh
}

// Create stores a copy of rec.
func (r *ScanRepository) Create(ctx context.Context, rec *domain.ScanRecord) (*domain.ScanRecord, error) {
	const op = "memory.create"
	if err := ctx.Err(); err != nil {
		return nil, domain.E(domain.KindRepository, op, err)
	}
	if rec == nil || rec.OwnerID == "" {
		return nil, domain.Errorf(domain.KindRepository, op, "record owner is required")
	}

	stored := *rec
	if stored.ID == "" {
		stored.ID = domain.ScanID(uuid.NewString())
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	if _, dup := r.owners[stored.ID]; dup {
		r.mu.Unlock()
		return nil, domain.Errorf(domain.KindRepository, op, "duplicate scan id %s", stored.ID)
	}
	r.owners[stored.ID] = stored.OwnerID
	r.mu.Unlock()

	sh := r.shard(stored.OwnerID, true)
	sh.mu.Lock()
	sh.records[stored.ID] = stored
	sh.mu.Unlock()

	out := stored
	return &out, nil
}

func (r *ScanRepository) FindByID(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	const op = "memory.find"
	if err := ctx.Err(); err != nil {
		return nil, domain.E(domain.KindRepository, op, err)
	}

	r.mu.RLock()
	owner, ok := r.owners[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, op, "scan %s", id)
	}

	sh := r.shard(owner, false)
	if sh == nil {
		return nil, domain.Errorf(domain.KindNotFound, op, "scan %s", id)
	}
	sh.mu.RLock()
	rec, ok := sh.records[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, op, "scan %s", id)
	}
	return &rec, nil
}

// ListByOwner snapshots the owner's shard on every range.
func (r *ScanRepository) ListByOwner(ctx context.Context, ownerID string) iter.Seq2[*domain.ScanRecord, error] {
	return func(yield func(*domain.ScanRecord, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, domain.E(domain.KindRepository, "memory.list", err))
			return
		}
		sh := r.shard(ownerID, false)
		if sh == nil {
			return
		}

		sh.mu.RLock()
		snapshot := make([]domain.ScanRecord, 0, len(sh.records))
		for _, rec := range sh.records {
			snapshot = append(snapshot, rec)
		}
		sh.mu.RUnlock()

		slices.SortFunc(snapshot, func(a, b domain.ScanRecord) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})

		for i := range snapshot {
			if !yield(&snapshot[i], nil) {
				return
			}
		}
	}
}

func (r *ScanRepository) Delete(ctx context.Context, id domain.ScanID) error {
	const op = "memory.delete"
	if err := ctx.Err(); err != nil {
		return domain.E(domain.KindRepository, op, err)
	}

	r.mu.Lock()
	owner, ok := r.owners[id]
	if ok {
		delete(r.owners, id)
	}
	r.mu.Unlock()
	if !ok {
		return domain.Errorf(domain.KindNotFound, op, "scan %s", id)
	}

	if sh := r.shard(owner, false); sh != nil {
		sh.mu.Lock()
		delete(sh.records, id)
		sh.mu.Unlock()
	}
	return nil
}
