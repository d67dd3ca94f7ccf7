package postgres

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/google/uuid"

    domain "github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
    db *sql.DB
}

func NewScanErrorRepository(db *sql.DB) *ScanErrorRepository { return &ScanErrorRepository{db: db} }

// Save inserts one incident
func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
    const q = `
INSERT INTO scan_errors
  (id, owner_id, scan_id, stage, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

    id := e.ID
    if id == "" {
        id = uuid.NewString()
    }
    msg := e.Message
    if strings.TrimSpace(msg) == "" {
        msg = "-"
    }
    created := e.CreatedAt
    if created.IsZero() {
        created = time.Now().UTC()
    }

    _, err := r.db.ExecContext(ctx, q, id, stringOrDash(e.OwnerID), stringOrDash(e.ScanID), stringOrDash(string(e.Stage)), msg, created)
    return err
}

// ListByScan returns the latest incidents for a given scan
func (r *ScanErrorRepository) ListByScan(ctx context.Context, ownerID string, scanID string, limit int) ([]*domain.ScanError, error) {
    if limit <= 0 {
        limit = 20
    }
    const q = `
SELECT id, owner_id, scan_id, stage, message, created_at
FROM scan_errors
WHERE owner_id=$1 AND scan_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
    rows, err := r.db.QueryContext(ctx, q, ownerID, scanID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*domain.ScanError
    for rows.Next() {
        var e domain.ScanError
        if err := rows.Scan(&e.ID, &e.OwnerID, &e.ScanID, &e.Stage, &e.Message, &e.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &e)
    }
    return out, rows.Err()
}
