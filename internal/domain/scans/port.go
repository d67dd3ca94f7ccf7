package scans

import (
	"context"
	"io"
	"iter"
)

// Repository port (interface untuk persistence)
type Repository interface {
	// Create assigns ID and CreatedAt when empty. It is the only point where a
	// record becomes visible to FindByID and ListByOwner.
	Create(ctx context.Context, r *ScanRecord) (*ScanRecord, error)
	FindByID(ctx context.Context, id ScanID) (*ScanRecord, error)
	// ListByOwner yields the owner's records, newest first. Each range over the
	// returned sequence runs a fresh query.
	ListByOwner(ctx context.Context, ownerID string) iter.Seq2[*ScanRecord, error]
	Delete(ctx context.Context, id ScanID) error
}

// BlobStore port (penyimpanan gambar scan)
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Exists(ctx context.Context, locator string) (bool, error)
	// Delete is idempotent: a missing locator is not an error.
	Delete(ctx context.Context, locator string) error
}

// DiagnosisClient port. One request, no retry.
type DiagnosisClient interface {
	Analyze(ctx context.Context, image []byte, contentType string) (Diagnosis, error)
}

// Notifier port
type Notifier interface {
	Notify(ctx context.Context, e Email) error
}

// ReportRenderer port. Renders never mutate the record or its blob.
type ReportRenderer interface {
	Render(ctx context.Context, r *ScanRecord, owner Owner) ([]byte, error)
}
