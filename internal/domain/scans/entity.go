package scans

import (
	"strings"
	"time"
)

// ID tipe untuk ScanRecord
type ScanID string

// ScanRecord is the durable diagnosis produced by one successful submission.
// Every field is written once by Repository.Create and never updated.
type ScanRecord struct {
	ID            ScanID    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	ImageLocator  string    `json:"image_locator"`
	ContentType   string    `json:"content_type,omitempty"`
	DiagnosisText string    `json:"diagnosis_text"`
	Confidence    float64   `json:"confidence"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnedBy reports whether ownerID is the record's owner.
func (r *ScanRecord) OwnedBy(ownerID string) bool {
	return r != nil && ownerID != "" && r.OwnerID == ownerID
}

// Diagnosis value object returned by the DiagnosisClient
type Diagnosis struct {
	Text       string    `json:"analysis"`
	Confidence float64   `json:"confidence"`
	AnalyzedAt time.Time `json:"timestamp"`
}

// Owner is the authenticated caller. It is also the display info printed on
// reports and used to address notification emails.
type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns "First Last", falling back to the email.
func (o Owner) DisplayName() string {
	name := strings.TrimSpace(o.FirstName + " " + o.LastName)
	if name == "" {
		return o.Email
	}
	return name
}

// Email is one outbound notification.
type Email struct {
	To      string
	Subject string
	Body    string
}
