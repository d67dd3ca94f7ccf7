package postgres

import (
    "context"
    "database/sql"
    "errors"
    "iter"
    "time"

    "github.com/google/uuid"

    domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

type ScanRepository struct{ db *sql.DB }

func NewScanRepository(db *sql.DB) *ScanRepository { return &ScanRepository{db: db} }

// Create insert ScanRecord
func (r *ScanRepository) Create(ctx context.Context, rec *domain.ScanRecord) (*domain.ScanRecord, error) {
    const q = `
INSERT INTO scan_records
(id, owner_id, image_locator, content_type, diagnosis_text, confidence, analyzed_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

    stored := *rec
    if stored.ID == "" {
        stored.ID = domain.ScanID(uuid.NewString())
    }
    if stored.CreatedAt.IsZero() {
        stored.CreatedAt = time.Now().UTC()
    }

    _, err := r.db.ExecContext(ctx, q,
        stored.ID, stored.OwnerID, stored.ImageLocator, stored.ContentType,
        stored.DiagnosisText, stored.Confidence, stored.AnalyzedAt.UTC(), stored.CreatedAt.UTC(),
    )
    if err != nil {
        return nil, domain.E(domain.KindRepository, "postgres.create", err)
    }
    return &stored, nil
}

// FindByID by ID
func (r *ScanRepository) FindByID(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
    const q = `SELECT ` + scanColumns + ` FROM scan_records WHERE id=$1 LIMIT 1;`

    rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, domain.Errorf(domain.KindNotFound, "postgres.find", "scan %s", id)
    }
    if err != nil {
        return nil, domain.E(domain.KindRepository, "postgres.find", err)
    }
    return rec, nil
}

// ListByOwner scans per owner, newest first
func (r *ScanRepository) ListByOwner(ctx context.Context, ownerID string) iter.Seq2[*domain.ScanRecord, error] {
    const q = `
SELECT ` + scanColumns + `
FROM scan_records
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC;`

    return func(yield func(*domain.ScanRecord, error) bool) {
        rows, err := r.db.QueryContext(ctx, q, ownerID)
        if err != nil {
            yield(nil, domain.E(domain.KindRepository, "postgres.list", err))
            return
        }
        defer rows.Close()

        for rows.Next() {
            rec, err := scanRecord(rows)
            if err != nil {
                yield(nil, domain.E(domain.KindRepository, "postgres.list", err))
                return
            }
            if !yield(rec, nil) {
                return
            }
        }
        if err := rows.Err(); err != nil {
            yield(nil, domain.E(domain.KindRepository, "postgres.list", err))
        }
    }
}

func (r *ScanRepository) Delete(ctx context.Context, id domain.ScanID) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM scan_records WHERE id=$1;`, id)
    if err != nil {
        return domain.E(domain.KindRepository, "postgres.delete", err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return domain.E(domain.KindRepository, "postgres.delete", err)
    }
    if n == 0 {
        return domain.Errorf(domain.KindNotFound, "postgres.delete", "scan %s", id)
    }
    return nil
}
