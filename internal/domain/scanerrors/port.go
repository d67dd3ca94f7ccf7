package scanerrors

import (
	"context"
)

// Repository defines persistence for pipeline incidents
type Repository interface {
	Save(ctx context.Context, e *ScanError) error
	ListByScan(ctx context.Context, ownerID string, scanID string, limit int) ([]*ScanError, error)
}
