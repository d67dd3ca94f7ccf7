package postgres

import (
	"strings"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

const scanColumns = `id, owner_id, image_locator, content_type, diagnosis_text, confidence, analyzed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.ScanRecord, error) {
	var rec domain.ScanRecord
	if err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.ImageLocator, &rec.ContentType,
		&rec.DiagnosisText, &rec.Confidence, &rec.AnalyzedAt, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.AnalyzedAt = rec.AnalyzedAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
