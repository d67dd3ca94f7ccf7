package scanerrors

import "time"

// Stage names the pipeline step an incident was observed in.
type Stage string

const (
	StageBlob     Stage = "blob"
	StageAnalysis Stage = "analysis"
	StageRecord   Stage = "record"
	StageCleanup  Stage = "cleanup"
	StageNotify   Stage = "notify"
)

// ScanError represents a persisted pipeline incident. ScanID is the id the
// submission attempt was assigned, so entries exist even when no record does.
type ScanError struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ScanID    string    `json:"scan_id"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
