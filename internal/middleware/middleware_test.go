package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/logging"
)

func TestMetrics_PipelineCounters(t *testing.T) {
	m := NewMetrics()
	m.ScanSubmitted()
	m.ScanFailed("analysis")
	m.ScanFailed("record")
	m.OrphanCleanup(true)
	m.OrphanCleanup(false)
	m.Notified(false)
	m.ReportExported()

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap["scans_total"])
	assert.Equal(t, map[string]uint64{"blob": 0, "analysis": 1, "record": 1}, snap["scans_failed"])
	assert.Equal(t, uint64(1), snap["orphans_removed"])
	assert.Equal(t, uint64(1), snap["orphans_left"])
	assert.Equal(t, uint64(1), snap["notifications_failed"])
	assert.Equal(t, uint64(1), snap["reports_exported"])
}

func TestMetrics_Middleware(t *testing.T) {
	m := NewMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	for _, p := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	assert.Equal(t, uint64(3), m.RequestsTotal.Load())
	assert.Equal(t, uint64(2), m.RequestsSuccess.Load())
	assert.Equal(t, uint64(1), m.RequestsFailed.Load())
	assert.Equal(t, int64(0), m.RequestsInProgress.Load())

	rec := httptest.NewRecorder()
	m.Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["requests_total"])
}

func TestHealthHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	bad := CheckFunc(func(context.Context) error { return errors.New("bucket missing") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok, "blobs": bad})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "bucket missing", status.Checks["blobs"].Message)
	assert.Equal(t, "healthy", status.Checks["db"].Status)
}

func TestRateLimiter_PerOwner(t *testing.T) {
	rl := NewRateLimiter(2, 0)
	defer rl.Close()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	call := func(ownerID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/scan/my-scans", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req = req.WithContext(WithOwner(req.Context(), domain.Owner{ID: ownerID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("u1"))
	assert.Equal(t, http.StatusOK, call("u1"))
	assert.Equal(t, http.StatusTooManyRequests, call("u1"))
	assert.Equal(t, http.StatusOK, call("u2"))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "info")
	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/scan/upload", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.EqualValues(t, 201, entry["status"])
	assert.EqualValues(t, 5, entry["bytes"])
	assert.Equal(t, "/api/scan/upload", entry["path"])
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateOwnerID("user_1-a"))
	assert.Error(t, ValidateOwnerID(""))
	assert.Error(t, ValidateOwnerID("a/b"))

	assert.NoError(t, ValidateScanID("0b6a3f0e-8a63-4f3e-9a0b-3b8f0a5f7a11"))
	assert.Error(t, ValidateScanID("not-a-uuid"))

	n, err := ValidateLimit("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = ValidateLimit("500")
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	_, err = ValidateLimit("-1")
	assert.Error(t, err)

	ct, err := DetectImage([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	_, err = DetectImage([]byte("%PDF-1.4"))
	assert.Error(t, err)
	_, err = DetectImage(nil)
	assert.Error(t, err)

	assert.Equal(t, "ab", SanitizeString(" a\x00b\x07 "))
}
