package scans

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

type fakeBlobs struct {
	mu        sync.Mutex
	data      map[string][]byte
	stores    int
	deletes   int
	storeErr  error
	deleteErr error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{data: map[string][]byte{}} }

func (f *fakeBlobs) Store(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.storeErr != nil {
		return "", domain.E(domain.KindStorage, "blob.store", f.storeErr)
	}
	f.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (f *fakeBlobs) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[locator]
	if !ok {
		return nil, domain.Errorf(domain.KindStorage, "blob.open", "%s not found", locator)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBlobs) Exists(_ context.Context, locator string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[locator]
	return ok, nil
}

func (f *fakeBlobs) Delete(_ context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return domain.E(domain.KindStorage, "blob.delete", f.deleteErr)
	}
	delete(f.data, locator)
	return nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

type fakeDiagnoser struct {
	mu    sync.Mutex
	calls int
	diag  domain.Diagnosis
	err   error
	// block waits for ctx to end before answering.
	block bool
}

func (f *fakeDiagnoser) Analyze(ctx context.Context, _ []byte, _ string) (domain.Diagnosis, error) {
	f.mu.Lock()
	f.calls++
	block, diag, err := f.block, f.diag, f.err
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return domain.Diagnosis{}, ctx.Err()
	}
	return diag, err
}

func (f *fakeDiagnoser) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingRepo wraps a repository and fails Create.
type failingRepo struct {
	domain.Repository
	err error
}

func (r failingRepo) Create(context.Context, *domain.ScanRecord) (*domain.ScanRecord, error) {
	return nil, domain.E(domain.KindRepository, "repo.create", r.err)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Email
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, e domain.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return f.err
}

func (f *fakeNotifier) Sent() []domain.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Email(nil), f.sent...)
}

type fakeReports struct {
	calls int
	err   error
}

func (f *fakeReports) Render(_ context.Context, rec *domain.ScanRecord, _ domain.Owner) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + rec.DiagnosisText), nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	submitted int
	failed    []string
	cleanups  []bool
	notified  []bool
	exported  int
}

func (m *fakeMetrics) ScanSubmitted() { m.mu.Lock(); m.submitted++; m.mu.Unlock() }
func (m *fakeMetrics) ScanFailed(stage string) {
	m.mu.Lock()
	m.failed = append(m.failed, stage)
	m.mu.Unlock()
}
func (m *fakeMetrics) OrphanCleanup(ok bool) {
	m.mu.Lock()
	m.cleanups = append(m.cleanups, ok)
	m.mu.Unlock()
}
func (m *fakeMetrics) Notified(ok bool) {
	m.mu.Lock()
	m.notified = append(m.notified, ok)
	m.mu.Unlock()
}
func (m *fakeMetrics) ReportExported() { m.mu.Lock(); m.exported++; m.mu.Unlock() }

var errBoom = errors.New("boom")

var fixedNow = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
