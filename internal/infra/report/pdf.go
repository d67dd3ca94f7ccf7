package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-pdf/fpdf"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/logging"
)

const (
	title          = "BrainScan Diagnosis Report"
	noDiagnosis    = "No diagnosis available."
	maxImageBytes  = 20 << 20
	dateLayout     = "January 2, 2006"
	timestampStyle = "2006-01-02 15:04:05 MST"
)

// Generator renders scan records as PDF reports. The output depends only on
// the record, the owner and the stored image. Blobs is optional; without
// it the report never carries the image.
type Generator struct {
	Blobs    domain.BlobStore
	Compress bool
	Log      logging.Logger
}

func (g *Generator) Render(ctx context.Context, rec *domain.ScanRecord, owner domain.Owner) ([]byte, error) {
	const op = "report.render"
	if rec == nil {
		return nil, domain.Errorf(domain.KindRender, op, "nil record")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.Compress)
	pdf.SetTitle(title, true)
	pdf.SetCreator("BrainScan", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr("Name: "+owner.DisplayName()), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr("Email: "+owner.Email), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Date: "+rec.CreatedAt.UTC().Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Diagnosis Result:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	text := strings.TrimSpace(rec.DiagnosisText)
	if text == "" {
		text = noDiagnosis
	}
	pdf.MultiCell(0, 7, tr(text), "", "L", false)
	pdf.Ln(4)

	pdf.CellFormat(0, 8, fmt.Sprintf("Confidence: %.1f%%", rec.Confidence*100), "", 1, "L", false, 0, "")
	if !rec.AnalyzedAt.IsZero() {
		pdf.CellFormat(0, 8, "Analyzed at: "+rec.AnalyzedAt.UTC().Format(timestampStyle), "", 1, "L", false, 0, "")
	}

	g.addImage(ctx, pdf, rec)

	if err := pdf.Error(); err != nil {
		return nil, domain.E(domain.KindRender, op, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.E(domain.KindRender, op, err)
	}
	return buf.Bytes(), nil
}

// addImage puts the scan on its own page. Any problem with the blob only
// drops the image from the report.
func (g *Generator) addImage(ctx context.Context, pdf *fpdf.Fpdf, rec *domain.ScanRecord) {
	if g.Blobs == nil || rec.ImageLocator == "" {
		return
	}
	log := g.logger().With("scan_id", rec.ID, "locator", rec.ImageLocator)

	data, err := g.readBlob(ctx, rec.ImageLocator)
	if err != nil {
		log.Warn(ctx, "report image unavailable", "error", err)
		return
	}
	imageType := fpdfType(http.DetectContentType(data))
	if imageType == "" {
		log.Warn(ctx, "report image type not supported", "content_type", rec.ContentType)
		return
	}

	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	name := "scan-" + string(rec.ID)
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() || info == nil {
		log.Warn(ctx, "report image could not be decoded", "error", pdf.Error())
		pdf.ClearError()
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Scan Image", "", 1, "C", false, 0, "")

	pageW, pageH := pdf.GetPageSize()
	left, top, right, bottom := pdf.GetMargins()
	maxW := pageW - left - right
	maxH := pageH - top - bottom - 20
	w, h := fit(info.Width(), info.Height(), maxW, maxH)
	pdf.ImageOptions(name, (pageW-w)/2, pdf.GetY()+4, w, h, false, opts, 0, "")
}

func (g *Generator) readBlob(ctx context.Context, locator string) ([]byte, error) {
	rc, err := g.Blobs.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxImageBytes))
}

func fpdfType(contentType string) string {
	switch contentType {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

// fit scales w×h to fit inside maxW×maxH keeping the aspect ratio.
func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, 0
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

func (g *Generator) logger() logging.Logger {
	if g.Log == nil {
		return logging.Discard()
	}
	return g.Log
}
