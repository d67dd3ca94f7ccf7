package httpserver

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/cors"

    appscans "github.com/bryanwahyu/brainscan/internal/application/scans"
    domai "github.com/bryanwahyu/brainscan/internal/domain/ai"
    "github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
    domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
    "github.com/bryanwahyu/brainscan/internal/logging"
    "github.com/bryanwahyu/brainscan/internal/middleware"
)

const (
    DefaultMaxUploadBytes = 10 << 20
    uploadField           = "scan"
)

var errUnauthenticated = errors.New("unauthenticated")

// Options wires the router. Scans and JWTSecret are required.
type Options struct {
    Scans     *appscans.Service
    JWTSecret []byte
    Log       logging.Logger
    Metrics   *middleware.Metrics
    Limiter   *middleware.RateLimiter
    Health    map[string]middleware.HealthChecker

    CORSOrigins    []string
    MaxUploadBytes int64
    // ImageURL turns a blob locator into a URL for list responses. Optional.
    ImageURL func(locator string) string
    Version  string
}

type Router struct {
    scansSvc  *appscans.Service
    log       logging.Logger
    maxUpload int64
    imageURL  func(string) string
    version   string
}

func NewRouter(opts Options) http.Handler {
    r := &Router{
        scansSvc:  opts.Scans,
        log:       opts.Log,
        maxUpload: opts.MaxUploadBytes,
        imageURL:  opts.ImageURL,
        version:   opts.Version,
    }
    if r.log == nil {
        r.log = logging.Discard()
    }
    if r.maxUpload <= 0 {
        r.maxUpload = DefaultMaxUploadBytes
    }
    metrics := opts.Metrics
    if metrics == nil {
        metrics = middleware.NewMetrics()
    }

    mux := chi.NewRouter()
    mux.Use(middleware.LoggingMiddleware(r.log))
    mux.Use(metrics.Middleware)
    mux.Use(cors.Handler(cors.Options{
        AllowedOrigins:   corsOrigins(opts.CORSOrigins),
        AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
        AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
        ExposedHeaders:   []string{"Content-Disposition"},
        AllowCredentials: false,
        MaxAge:           300,
    }))

    mux.Get("/", r.handleWelcome)
    mux.Get("/health", middleware.HealthHandler(opts.Health))
    mux.Get("/health/ready", middleware.ReadinessHandler)
    mux.Get("/health/live", middleware.LivenessHandler)
    mux.Get("/metrics", metrics.Handler)

    mux.Route("/api/scan", func(rt chi.Router) {
        rt.Use(middleware.JWTAuth(opts.JWTSecret))
        if opts.Limiter != nil {
            rt.Use(opts.Limiter.Middleware)
        }
        rt.Post("/upload", r.wrap(r.handleUpload, "Error processing scan"))
        rt.Get("/my-scans", r.wrap(r.handleMyScans, "Error fetching scans"))
        rt.Get("/export/{id}", r.wrap(r.handleExport, "Error exporting report"))
        rt.Get("/{id}", r.wrap(r.handleGet, "Error fetching scan"))
        rt.Get("/{id}/incidents", r.wrap(r.handleIncidents, "Error fetching incidents"))
        rt.Delete("/{id}", r.wrap(r.handleDelete, "Error deleting scan"))
    })

    return mux
}

func corsOrigins(origins []string) []string {
    if len(origins) == 0 {
        return []string{"*"}
    }
    return origins
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// attemptError carries the submission id of a failed upload to the response.
type attemptError struct {
    id  string
    err error
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

func (r *Router) wrap(h handlerFunc, failure string) http.HandlerFunc {
    return func(w http.ResponseWriter, req *http.Request) {
        err := h(w, req)
        if err == nil {
            return
        }

        var tooLarge *http.MaxBytesError
        switch {
        case errors.Is(err, errUnauthenticated):
            writeJSON(w, http.StatusUnauthorized, message("Not authenticated"))
            return
        case errors.As(err, &tooLarge):
            writeJSON(w, http.StatusRequestEntityTooLarge, message("File too large"))
            return
        case errors.Is(err, domai.ErrQuotaExceeded):
            writeJSON(w, http.StatusTooManyRequests, message("AI quota exceeded, please try again later"))
            return
        }

        switch domain.KindOf(err) {
        case domain.KindValidation:
            writeJSON(w, http.StatusBadRequest, message(publicMessage(err)))
        case domain.KindAuthorization:
            writeJSON(w, http.StatusForbidden, message("Not authorized"))
        case domain.KindNotFound:
            writeJSON(w, http.StatusNotFound, message("Scan not found"))
        default:
            r.log.Error(req.Context(), "request failed", "path", req.URL.Path, "error", err)
            body := message(failure)
            var ae *attemptError
            if errors.As(err, &ae) && ae.id != "" {
                body["scanId"] = ae.id
            }
            writeJSON(w, http.StatusInternalServerError, body)
        }
    }
}

// publicMessage is the innermost message of a tagged error, without op and
// kind prefixes.
func publicMessage(err error) string {
    var de *domain.Error
    if !errors.As(err, &de) {
        return err.Error()
    }
    for de.Err != nil {
        next, ok := de.Err.(*domain.Error)
        if !ok {
            return de.Err.Error()
        }
        de = next
    }
    return de.Kind.String() + " error"
}

func message(msg string) map[string]any { return map[string]any{"message": msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func owner(req *http.Request) (domain.Owner, error) {
    o, ok := middleware.OwnerFromContext(req.Context())
    if !ok {
        return domain.Owner{}, errUnauthenticated
    }
    if err := middleware.ValidateOwnerID(o.ID); err != nil {
        return domain.Owner{}, domain.E(domain.KindValidation, "http.owner", err)
    }
    return o, nil
}

func scanID(req *http.Request) (domain.ScanID, error) {
    id := chi.URLParam(req, "id")
    if err := middleware.ValidateScanID(id); err != nil {
        return "", domain.E(domain.KindValidation, "http.scan_id", err)
    }
    return domain.ScanID(id), nil
}

// scanSummary is the list/get representation of a record.
type scanSummary struct {
    ID                string    `json:"id"`
    ImageURL          string    `json:"imageUrl"`
    DiagnosisResult   string    `json:"diagnosisResult"`
    Confidence        float64   `json:"confidence"`
    AnalysisTimestamp time.Time `json:"analysisTimestamp"`
    CreatedAt         time.Time `json:"createdAt"`
}

func (r *Router) summarize(rec *domain.ScanRecord) scanSummary {
    url := rec.ImageLocator
    if r.imageURL != nil {
        url = r.imageURL(rec.ImageLocator)
    }
    return scanSummary{
        ID:                string(rec.ID),
        ImageURL:          url,
        DiagnosisResult:   rec.DiagnosisText,
        Confidence:        rec.Confidence,
        AnalysisTimestamp: rec.AnalyzedAt,
        CreatedAt:         rec.CreatedAt,
    }
}

// GET /
func (r *Router) handleWelcome(w http.ResponseWriter, req *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{
        "message": "Welcome to BrainScan API",
        "version": r.version,
        "endpoints": map[string]string{
            "upload":  "POST /api/scan/upload",
            "list":    "GET /api/scan/my-scans",
            "get":     "GET /api/scan/{id}",
            "delete":  "DELETE /api/scan/{id}",
            "export":  "GET /api/scan/export/{id}",
            "health":  "GET /health",
            "metrics": "GET /metrics",
        },
    })
}

// POST /api/scan/upload (multipart, field "scan")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
    const op = "http.upload"
    o, err := owner(req)
    if err != nil {
        return err
    }

    req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
    if err := req.ParseMultipartForm(r.maxUpload); err != nil {
        var tooLarge *http.MaxBytesError
        if errors.As(err, &tooLarge) {
            return err
        }
        return domain.Errorf(domain.KindValidation, op, "No file uploaded")
    }
    defer func() {
        if req.MultipartForm != nil {
            _ = req.MultipartForm.RemoveAll()
        }
    }()

    file, header, err := req.FormFile(uploadField)
    if err != nil {
        return domain.Errorf(domain.KindValidation, op, "No file uploaded")
    }
    defer file.Close()

    data, err := io.ReadAll(file)
    if err != nil {
        return domain.E(domain.KindValidation, op, err)
    }
    contentType, err := middleware.DetectImage(data)
    if err != nil {
        return domain.E(domain.KindValidation, op, err)
    }

    r.log.Debug(req.Context(), "scan upload received",
        "owner_id", o.ID, "filename", middleware.SanitizeString(header.Filename), "bytes", len(data), "content_type", contentType)

    res, err := r.scansSvc.SubmitScan(req.Context(), appscans.SubmitScanCommand{
        Owner:       o,
        Image:       data,
        ContentType: contentType,
    })
    if err != nil {
        return &attemptError{id: res.ID, err: err}
    }

    writeJSON(w, http.StatusCreated, map[string]any{
        "message": "Scan uploaded and analyzed successfully",
        "scan":    res,
    })
    return nil
}

// GET /api/scan/my-scans?limit=
func (r *Router) handleMyScans(w http.ResponseWriter, req *http.Request) error {
    o, err := owner(req)
    if err != nil {
        return err
    }
    limit, err := middleware.ValidateLimit(req.URL.Query().Get("limit"))
    if err != nil {
        return domain.E(domain.KindValidation, "http.my_scans", err)
    }

    list, err := r.scansSvc.ListScans(req.Context(), o.ID, limit)
    if err != nil {
        return err
    }
    out := make([]scanSummary, 0, len(list))
    for _, rec := range list {
        out = append(out, r.summarize(rec))
    }
    writeJSON(w, http.StatusOK, out)
    return nil
}

// GET /api/scan/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
    o, err := owner(req)
    if err != nil {
        return err
    }
    id, err := scanID(req)
    if err != nil {
        return err
    }

    rec, err := r.scansSvc.GetScan(req.Context(), o.ID, id)
    if err != nil {
        return err
    }
    writeJSON(w, http.StatusOK, r.summarize(rec))
    return nil
}

// GET /api/scan/{id}/incidents?limit=
func (r *Router) handleIncidents(w http.ResponseWriter, req *http.Request) error {
    o, err := owner(req)
    if err != nil {
        return err
    }
    id, err := scanID(req)
    if err != nil {
        return err
    }
    limit, err := middleware.ValidateLimit(req.URL.Query().Get("limit"))
    if err != nil {
        return domain.E(domain.KindValidation, "http.incidents", err)
    }

    list, err := r.scansSvc.ListIncidents(req.Context(), o.ID, id, limit)
    if err != nil {
        return err
    }
    if list == nil {
        list = []*scanerrors.ScanError{}
    }
    writeJSON(w, http.StatusOK, list)
    return nil
}

// DELETE /api/scan/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
    o, err := owner(req)
    if err != nil {
        return err
    }
    id, err := scanID(req)
    if err != nil {
        return err
    }

    if err := r.scansSvc.DeleteScan(req.Context(), o.ID, id); err != nil {
        return err
    }
    writeJSON(w, http.StatusOK, message("Scan deleted successfully"))
    return nil
}

// GET /api/scan/export/{id}
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
    o, err := owner(req)
    if err != nil {
        return err
    }
    id, err := scanID(req)
    if err != nil {
        return err
    }

    pdf, filename, err := r.scansSvc.ExportReport(req.Context(), o, id)
    if err != nil {
        return err
    }
    w.Header().Set("Content-Type", "application/pdf")
    w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
    w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
    w.WriteHeader(http.StatusOK)
    _, err = w.Write(pdf)
    if err != nil {
        r.log.Warn(req.Context(), "report write failed", "scan_id", id, "error", err)
    }
    return nil
}
