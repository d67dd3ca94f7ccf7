package mysql

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create insert ScanRecord. Records are immutable, so there is no upsert.
func (r *ScanRepository) Create(ctx context.Context, rec *domain.ScanRecord) (*domain.ScanRecord, error) {
	const q = `
INSERT INTO scan_records
(id, owner_id, image_locator, content_type, diagnosis_text, confidence, analyzed_at, created_at)
VALUES (?,?,?,?,?,?,?,?);
`
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
		return nil, domain.E(domain.KindRepository, "mysql.create", err)
	}
	return &stored, nil
}

// FindByID by ID saja; ownership dicek di service
func (r *ScanRepository) FindByID(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	const q = `SELECT ` + scanColumns + ` FROM scan_records WHERE id=? LIMIT 1;`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "mysql.find", "scan %s", id)
	}
	if err != nil {
		return nil, domain.E(domain.KindRepository, "mysql.find", err)
	}
	return rec, nil
}

// ListByOwner runs the query when ranged over, newest first.
func (r *ScanRepository) ListByOwner(ctx context.Context, ownerID string) iter.Seq2[*domain.ScanRecord, error] {
	const q = `
SELECT ` + scanColumns + `
FROM scan_records
WHERE owner_id=?
ORDER BY created_at DESC, id DESC;
`
	return func(yield func(*domain.ScanRecord, error) bool) {
		rows, err := r.db.QueryContext(ctx, q, ownerID)
		if err != nil {
			yield(nil, domain.E(domain.KindRepository, "mysql.list", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				yield(nil, domain.E(domain.KindRepository, "mysql.list", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, domain.E(domain.KindRepository, "mysql.list", err))
		}
	}
}

func (r *ScanRepository) Delete(ctx context.Context, id domain.ScanID) error {
	const q = `DELETE FROM scan_records WHERE id=?;`

	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return domain.E(domain.KindRepository, "mysql.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.E(domain.KindRepository, "mysql.delete", err)
	}
	if n == 0 {
		return domain.Errorf(domain.KindNotFound, "mysql.delete", "scan %s", id)
	}
	return nil
}
