package scans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/brainscan/internal/application"
	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
	"github.com/bryanwahyu/brainscan/internal/logging"
)

const (
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultNotifyTimeout   = 30 * time.Second
	cleanupTimeout         = 10 * time.Second
)

var errNoFile = errors.New("no file uploaded")

// Metrics receives pipeline counters. Optional.
type Metrics interface {
	ScanSubmitted()
	ScanFailed(stage string)
	OrphanCleanup(ok bool)
	Notified(ok bool)
	ReportExported()
}

// Service implements use-cases untuk ScanRecord: submit, list, get, delete, export.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Repo      domain.Repository
	Blobs     domain.BlobStore
	Diagnoser domain.DiagnosisClient
	Notifier  domain.Notifier
	Reports   domain.ReportRenderer

	// Incidents journals failures, including best-effort ones. Optional.
	Incidents scanerrors.Repository
	Metrics   Metrics
	Clock     application.Clock
	Log       logging.Logger

	AnalysisTimeout time.Duration
	NotifyTimeout   time.Duration

	notifications sync.WaitGroup
}

//
// ==== USE CASES ====
//

// SubmitScanCommand carries one upload.
type SubmitScanCommand struct {
	Owner       domain.Owner
	Image       []byte
	ContentType string
}

type SubmitScanResult struct {
	ID            string    `json:"id"`
	DiagnosisText string    `json:"diagnosisResult"`
	Confidence    float64   `json:"confidence"`
	AnalyzedAt    time.Time `json:"analysisTimestamp"`
}

// SubmitScan simpan blob → analisa → simpan record → kirim email (async).
//
// The submission is detached from ctx cancellation: once accepted it runs to a
// terminal state even if the caller goes away. On failure the result still
// carries the attempt ID so the caller can look up incidents.
func (s *Service) SubmitScan(ctx context.Context, cmd SubmitScanCommand) (SubmitScanResult, error) {
	const op = "scans.submit"

	if strings.TrimSpace(cmd.Owner.ID) == "" {
		return SubmitScanResult{}, domain.Errorf(domain.KindValidation, op, "owner is required")
	}
	if len(cmd.Image) == 0 {
		return SubmitScanResult{}, domain.E(domain.KindValidation, op, errNoFile)
	}

	ctx = context.WithoutCancel(ctx)
	id := domain.ScanID(uuid.NewString())
	log := s.logger().With("scan_id", id, "owner_id", cmd.Owner.ID)
	failed := SubmitScanResult{ID: string(id)}

	// 1. Received → BlobStored
	locator, err := s.Blobs.Store(ctx, blobKey(cmd.Owner.ID, id, cmd.ContentType), cmd.Image, cmd.ContentType)
	if err != nil {
		s.fail(ctx, log, cmd.Owner.ID, id, scanerrors.StageBlob, err)
		return failed, domain.E(domain.KindStorage, op, err)
	}

	// 2. BlobStored → Analyzed
	diag, err := s.analyze(ctx, cmd.Image, cmd.ContentType)
	if err != nil {
		s.fail(ctx, log, cmd.Owner.ID, id, scanerrors.StageAnalysis, err)
		s.discardBlob(ctx, log, cmd.Owner.ID, id, locator)
		return failed, domain.E(domain.KindAnalysis, op, err)
	}

	// 3. Analyzed → Recorded
	rec, err := s.Repo.Create(ctx, &domain.ScanRecord{
		ID:            id,
		OwnerID:       cmd.Owner.ID,
		ImageLocator:  locator,
		ContentType:   cmd.ContentType,
		DiagnosisText: diag.Text,
		Confidence:    diag.Confidence,
		AnalyzedAt:    diag.AnalyzedAt,
		CreatedAt:     s.clock().Now(),
	})
	if err != nil {
		s.fail(ctx, log, cmd.Owner.ID, id, scanerrors.StageRecord, err)
		s.discardBlob(ctx, log, cmd.Owner.ID, id, locator)
		return failed, domain.E(domain.KindRepository, op, err)
	}

	// 4. Recorded → Done, notification tidak menentukan hasil
	s.dispatchNotification(ctx, log, cmd.Owner, rec)

	if s.Metrics != nil {
		s.Metrics.ScanSubmitted()
	}
	log.Info(ctx, "scan recorded", "confidence", rec.Confidence, "locator", rec.ImageLocator)

	return SubmitScanResult{
		ID:            string(rec.ID),
		DiagnosisText: rec.DiagnosisText,
		Confidence:    rec.Confidence,
		AnalyzedAt:    rec.AnalyzedAt,
	}, nil
}

// ListScans returns the owner's records newest first. limit <= 0 means all.
func (s *Service) ListScans(ctx context.Context, ownerID string, limit int) ([]*domain.ScanRecord, error) {
	const op = "scans.list"
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.Errorf(domain.KindValidation, op, "owner is required")
	}

	out := make([]*domain.ScanRecord, 0)
	for rec, err := range s.Repo.ListByOwner(ctx, ownerID) {
		if err != nil {
			return nil, domain.E(domain.KindRepository, op, err)
		}
		if !rec.OwnedBy(ownerID) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetScan ambil 1 scan milik owner
func (s *Service) GetScan(ctx context.Context, ownerID string, id domain.ScanID) (*domain.ScanRecord, error) {
	return s.authorize(ctx, "scans.get", ownerID, id)
}

// DeleteScan removes the record, then its blob. The record goes first so no
// record ever points at a missing blob; a blob that survives is journaled as
// a cleanup incident.
func (s *Service) DeleteScan(ctx context.Context, ownerID string, id domain.ScanID) error {
	const op = "scans.delete"
	rec, err := s.authorize(ctx, op, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, rec.ID); err != nil {
		return domain.E(domain.KindRepository, op, err)
	}

	log := s.logger().With("scan_id", rec.ID, "owner_id", ownerID)
	if err := s.Blobs.Delete(context.WithoutCancel(ctx), rec.ImageLocator); err != nil {
		log.Error(ctx, "blob delete failed after record delete", "locator", rec.ImageLocator, "error", err)
		s.journal(ctx, log, ownerID, rec.ID, scanerrors.StageCleanup, err)
		if s.Metrics != nil {
			s.Metrics.OrphanCleanup(false)
		}
		return nil
	}
	log.Info(ctx, "scan deleted", "locator", rec.ImageLocator)
	return nil
}

// ExportReport renders the owner's record as a PDF.
func (s *Service) ExportReport(ctx context.Context, owner domain.Owner, id domain.ScanID) ([]byte, string, error) {
	const op = "scans.export"
	rec, err := s.authorize(ctx, op, owner.ID, id)
	if err != nil {
		return nil, "", err
	}

	pdf, err := s.Reports.Render(ctx, rec, owner)
	if err != nil {
		s.logger().Error(ctx, "report render failed", "scan_id", rec.ID, "error", err)
		return nil, "", domain.E(domain.KindRender, op, err)
	}
	if s.Metrics != nil {
		s.Metrics.ReportExported()
	}
	return pdf, ReportFilename(rec.ID), nil
}

// ListIncidents lists journaled failures for one submission attempt of the owner.
func (s *Service) ListIncidents(ctx context.Context, ownerID string, id domain.ScanID, limit int) ([]*scanerrors.ScanError, error) {
	const op = "scans.incidents"
	if err := validateID(op, id); err != nil {
		return nil, err
	}
	if s.Incidents == nil {
		return []*scanerrors.ScanError{}, nil
	}
	list, err := s.Incidents.ListByScan(ctx, ownerID, string(id), limit)
	if err != nil {
		return nil, domain.E(domain.KindRepository, op, err)
	}
	if list == nil {
		list = []*scanerrors.ScanError{}
	}
	return list, nil
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.notifications.Wait()
}

// ReportFilename is the attachment name for an exported report.
func ReportFilename(id domain.ScanID) string {
	return fmt.Sprintf("ScanReport_%s.pdf", id)
}

//
// ==== helpers ====
//

func (s *Service) analyze(ctx context.Context, image []byte, contentType string) (domain.Diagnosis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.analysisTimeout())
	defer cancel()

	diag, err := s.Diagnoser.Analyze(ctx, image, contentType)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Diagnosis{}, fmt.Errorf("diagnosis timed out after %s: %w", s.analysisTimeout(), err)
		}
		return domain.Diagnosis{}, err
	}
	if strings.TrimSpace(diag.Text) == "" {
		return domain.Diagnosis{}, errors.New("diagnosis text is empty")
	}
	if diag.Confidence < 0 || diag.Confidence > 1 || math.IsNaN(diag.Confidence) {
		return domain.Diagnosis{}, fmt.Errorf("confidence %v outside [0,1]", diag.Confidence)
	}
	if diag.AnalyzedAt.IsZero() {
		diag.AnalyzedAt = s.clock().Now()
	}
	return diag, nil
}

func (s *Service) authorize(ctx context.Context, op, ownerID string, id domain.ScanID) (*domain.ScanRecord, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.Errorf(domain.KindValidation, op, "owner is required")
	}
	if err := validateID(op, id); err != nil {
		return nil, err
	}
	rec, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.KindNotFound, op, err)
		}
		return nil, domain.E(domain.KindRepository, op, err)
	}
	if !rec.OwnedBy(ownerID) {
		return nil, domain.Errorf(domain.KindAuthorization, op, "scan %s is not owned by caller", id)
	}
	return rec, nil
}

// discardBlob is the orphan policy: after a later-stage failure the stored
// blob is deleted best-effort. Its failure never replaces the original error.
func (s *Service) discardBlob(ctx context.Context, log logging.Logger, ownerID string, id domain.ScanID, locator string) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	err := s.Blobs.Delete(ctx, locator)
	if s.Metrics != nil {
		s.Metrics.OrphanCleanup(err == nil)
	}
	if err != nil {
		log.Error(ctx, "orphaned blob cleanup failed", "locator", locator, "error", err)
		s.journal(ctx, log, ownerID, id, scanerrors.StageCleanup, err)
		return
	}
	log.Info(ctx, "orphaned blob removed", "locator", locator)
}

func (s *Service) fail(ctx context.Context, log logging.Logger, ownerID string, id domain.ScanID, stage scanerrors.Stage, err error) {
	log.Error(ctx, "scan submission failed", "stage", stage, "error", err)
	if s.Metrics != nil {
		s.Metrics.ScanFailed(string(stage))
	}
	s.journal(ctx, log, ownerID, id, stage, err)
}

func (s *Service) journal(ctx context.Context, log logging.Logger, ownerID string, id domain.ScanID, stage scanerrors.Stage, cause error) {
	if s.Incidents == nil {
		return
	}
	e := &scanerrors.ScanError{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ScanID:    string(id),
		Stage:     stage,
		Message:   cause.Error(),
		CreatedAt: s.clock().Now(),
	}
	if err := s.Incidents.Save(ctx, e); err != nil {
		log.Warn(ctx, "incident journal write failed", "stage", stage, "error", err)
	}
}

func validateID(op string, id domain.ScanID) error {
	if strings.TrimSpace(string(id)) == "" {
		return domain.Errorf(domain.KindValidation, op, "scan id is required")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return domain.Errorf(domain.KindValidation, op, "malformed scan id %q", id)
	}
	return nil
}

func blobKey(ownerID string, id domain.ScanID, contentType string) string {
	return fmt.Sprintf("%s/%s%s", ownerID, id, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) logger() logging.Logger {
	if s.Log == nil {
		return logging.Discard()
	}
	return s.Log
}

func (s *Service) analysisTimeout() time.Duration {
	if s.AnalysisTimeout <= 0 {
		return DefaultAnalysisTimeout
	}
	return s.AnalysisTimeout
}

func (s *Service) notifyTimeout() time.Duration {
	if s.NotifyTimeout <= 0 {
		return DefaultNotifyTimeout
	}
	return s.NotifyTimeout
}
