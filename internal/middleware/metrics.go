package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics. It also receives pipeline counters
// from the scan service.
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64

	ScansTotal          atomic.Uint64
	ScansFailedBlob     atomic.Uint64
	ScansFailedAnalysis atomic.Uint64
	ScansFailedRecord   atomic.Uint64
	NotifySent          atomic.Uint64
	NotifyFailed        atomic.Uint64
	OrphansRemoved      atomic.Uint64
	OrphansLeft         atomic.Uint64
	ReportsExported     atomic.Uint64

	StartTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) ScanSubmitted() { m.ScansTotal.Add(1) }

func (m *Metrics) ScanFailed(stage string) {
	switch stage {
	case "blob":
		m.ScansFailedBlob.Add(1)
	case "analysis":
		m.ScansFailedAnalysis.Add(1)
	case "record":
		m.ScansFailedRecord.Add(1)
	}
}

func (m *Metrics) OrphanCleanup(ok bool) {
	if ok {
		m.OrphansRemoved.Add(1)
		return
	}
	m.OrphansLeft.Add(1)
}

func (m *Metrics) Notified(ok bool) {
	if ok {
		m.NotifySent.Add(1)
		return
	}
	m.NotifyFailed.Add(1)
}

func (m *Metrics) ReportExported() { m.ReportsExported.Add(1) }

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"scans_total":          m.ScansTotal.Load(),
		"scans_failed": map[string]uint64{
			"blob":     m.ScansFailedBlob.Load(),
			"analysis": m.ScansFailedAnalysis.Load(),
			"record":   m.ScansFailedRecord.Load(),
		},
		"notifications_sent":   m.NotifySent.Load(),
		"notifications_failed": m.NotifyFailed.Load(),
		"orphans_removed":      m.OrphansRemoved.Load(),
		"orphans_left":         m.OrphansLeft.Load(),
		"reports_exported":     m.ReportsExported.Load(),
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
