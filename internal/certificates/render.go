package certificates

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/smarteventhub/internal/assets"
	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/jung-kurt/gofpdf"
)

// fixed layout, A4 landscape in millimetres. Every certificate for an
// event uses the same bands so the batch looks uniform; only the name
// line differs between participants.
const (
	pageWidth  = 297.0
	pageHeight = 210.0

	nameBandY      = 72.0
	nameBandH      = 18.0
	subtitleBandY  = 98.0
	subtitleBandH  = 10.0
	dateBandY      = 112.0
	dateBandH      = 8.0
	signatureX     = 100.0
	signatureY     = 158.0
	signatureWidth = 55.0
)

// Renderer produces one certificate document per participant. It is a
// pure function of its inputs apart from reading the two image assets.
type Renderer struct {
	store assets.Store
	log   *slog.Logger
}

func NewRenderer(store assets.Store, log *slog.Logger) *Renderer {
	return &Renderer{
		store: store,
		log:   log,
	}
}

// Render builds the single-page landscape certificate for one
// participant. A declared template or signature that cannot be fetched
// is skipped rather than sinking the whole certificate; a fetched image
// that fails to decode fails this render only.
func (r *Renderer) Render(ctx context.Context, participantName string, ev event.Event) ([]byte, error) {
	participantName = strings.TrimSpace(participantName)

	if participantName == "" {
		return nil, ErrNoParticipantName
	}

	issuedOn, ok := issueDate(ev)

	if !ok {
		return nil, ErrNoIssueDate
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// layer 1: template stretched to the full page, blank page otherwise
	r.drawImage(ctx, pdf, ev.CertTemplateURL, "template", 0, 0, pageWidth, pageHeight)

	// layer 2: participant name, large bold, upper-middle third
	pdf.SetTextColor(33, 33, 33)
	pdf.SetFont("Helvetica", "B", 36)
	pdf.SetXY(0, nameBandY)
	pdf.CellFormat(pageWidth, nameBandH, tr(participantName), "", 0, "C", false, 0, "")

	// layer 3: what the certificate is for
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetXY(0, subtitleBandY)
	pdf.CellFormat(pageWidth, subtitleBandH, tr("for participating in "+ev.Title), "", 0, "C", false, 0, "")

	// layer 4: issue date as a long calendar date
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetXY(0, dateBandY)
	pdf.CellFormat(pageWidth, dateBandH, issuedOn.Format("January 2, 2006"), "", 0, "C", false, 0, "")

	// layer 5: optional signature, bottom-center-left
	r.drawImage(ctx, pdf, ev.SignatureURL, "signature", signatureX, signatureY, signatureWidth, 0)

	var buf bytes.Buffer

	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	return buf.Bytes(), nil
}

// the date printed on the certificate: event end when set, start otherwise
func issueDate(ev event.Event) (time.Time, bool) {
	if !ev.EndAt.IsZero() {
		return ev.EndAt, true
	}

	if !ev.StartAt.IsZero() {
		return ev.StartAt, true
	}

	return time.Time{}, false
}

func (r *Renderer) drawImage(ctx context.Context, pdf *gofpdf.Fpdf, ref, name string, x, y, w, h float64) {
	// no asset declared is a normal state, not an error
	if strings.TrimSpace(ref) == "" {
		return
	}

	b, err := r.store.Fetch(ctx, ref)

	if err != nil {
		// unreadable declared asset: drop the layer, keep the certificate
		r.log.Warn("certificate asset skipped", "asset", name, "ref", ref, "err", err)
		return
	}

	imgType := imageType(b)

	if imgType == "" {
		r.log.Warn("certificate asset skipped", "asset", name, "ref", ref, "err", "unsupported image format")
		return
	}

	opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(b))
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

// gofpdf wants the format spelled out rather than sniffing it
func imageType(b []byte) string {
	switch http.DetectContentType(b) {
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
