package pdf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ContentType is the MIME type of every rendered document.
const ContentType = "application/pdf"

// Page layout in millimeters (A4 portrait).
const (
	margin   = 20.0
	lineStep = 7.0
	// Bounding box for the logo and signature images; images are scaled to
	// fit while preserving aspect ratio.
	imageBoxW = 40.0
	imageBoxH = 20.0
)

// creationDate is pinned so that identical inputs produce byte-identical output.
var creationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Item is a single line item on a receipt.
type Item struct {
	Name     string
	Quantity int
	Price    float64
}

// Receipt holds everything the renderer lays out on the page. Logo and
// signature are raster images encoded as data URIs (or bare base64).
type Receipt struct {
	ReceiptNumber   string
	Date            string
	CustomerName    string
	CustomerNumber  string
	CustomerAddress string
	CompanyName     string
	CompanyLogo     string
	Items           []Item
	Currency        string
	Subtotal        float64
	TaxRate         float64
	Tax             float64
	Total           float64
	PaymentMethod   string
	Signature       string
	Title           string
}

// Document is an immutable rendered receipt.
type Document struct {
	data []byte
}

// Bytes returns the raw PDF bytes.
func (d *Document) Bytes() []byte {
	return d.data
}

// DataURI returns the document as a transportable data URI.
func (d *Document) DataURI() string {
	return "data:" + ContentType + ";base64," + base64.StdEncoding.EncodeToString(d.data)
}

// FromDataURI rebuilds a Document from a data URI (or bare base64) produced
// elsewhere, e.g. by a client that rendered the receipt itself.
func FromDataURI(s string) (*Document, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, errors.New("pdf: malformed data URI")
		}
		payload = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("pdf: invalid base64 payload: %w", err)
	}
	return &Document{data: data}, nil
}

// RenderError reports that the document itself could not be produced.
// Image decode failures are not render errors; they are logged and skipped.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "pdf: render failed: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Render lays out a receipt on a single A4 page and returns the document.
// The layout runs top to bottom with an explicit y cursor: header (logo +
// company name), receipt number and date, bill-to block, items table,
// totals, payment method, signature and optional title.
func Render(r *Receipt) (*Document, error) {
	if r == nil || r.Items == nil {
		return nil, &RenderError{Err: errors.New("receipt items are not defined")}
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(creationDate)
	doc.SetModificationDate(creationDate)
	doc.AddPage()
	pageW, _ := doc.GetPageSize()
	y := 20.0

	doc.SetFont("Helvetica", "", 16)

	// Header: logo with company name beside it, or company name alone. A
	// logo that fails to decode falls back to the plain company name.
	drewLogo := false
	if r.CompanyLogo != "" {
		if h, ok := drawImage(doc, "logo", r.CompanyLogo, margin, y); ok {
			doc.Text(margin+45, y+10, r.CompanyName)
			y += math.Max(h, imageBoxH) + 10
			drewLogo = true
		}
	}
	if !drewLogo {
		doc.Text(margin, y, r.CompanyName)
		y += 10
	}

	doc.SetFontSize(12)

	y += 15
	doc.Text(margin, y, "Receipt #: "+r.ReceiptNumber)
	y += lineStep
	doc.Text(margin, y, "Date: "+r.Date)

	// Bill-to block
	y += 13
	doc.Text(margin, y, "Bill To:")
	y += lineStep
	doc.Text(margin, y, r.CustomerName)
	if r.CustomerNumber != "" {
		y += lineStep
		doc.Text(margin, y, "Contact Number: "+r.CustomerNumber)
	}
	if r.CustomerAddress != "" {
		lines := doc.SplitText(r.CustomerAddress, pageW-2*margin)
		y += lineStep
		for i, line := range lines {
			doc.Text(margin, y+float64(i)*lineStep, line)
		}
		y += float64(len(lines)-1) * lineStep
	}

	y += 10
	y = drawItemsTable(doc, r, y, pageW)

	// Totals block, right-aligned
	y += 10
	totalsX := pageW - margin - 60
	doc.Text(totalsX, y, fmt.Sprintf("Subtotal: %s %.2f", r.Currency, r.Subtotal))
	doc.Text(totalsX, y+lineStep, fmt.Sprintf("Tax (%s%%): %s %.2f", formatRate(r.TaxRate), r.Currency, r.Tax))
	doc.Text(totalsX, y+2*lineStep, fmt.Sprintf("Total: %s %.2f", r.Currency, r.Total))

	doc.Text(margin, y+25, "Payment Method: "+r.PaymentMethod)

	if r.Signature != "" {
		drawImage(doc, "signature", r.Signature, margin, y+35)
	}

	if r.Title != "" {
		doc.Text(margin, y+65, r.Title)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}

	return &Document{data: buf.Bytes()}, nil
}

// drawItemsTable renders the items table starting at y and returns the y
// position below the table.
func drawItemsTable(doc *gofpdf.Fpdf, r *Receipt, y, pageW float64) float64 {
	tableW := pageW - 2*margin
	colW := [4]float64{tableW * 0.45, tableW * 0.15, tableW * 0.2, tableW * 0.2}
	rowH := 8.0
	headers := [4]string{"Description", "Quantity", "Unit Price", "Total"}

	doc.SetXY(margin, y)
	doc.SetFillColor(248, 249, 250)
	doc.SetFont("Helvetica", "B", 12)
	for i, h := range headers {
		doc.CellFormat(colW[i], rowH, h, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 12)
	for _, it := range r.Items {
		doc.SetX(margin)
		doc.CellFormat(colW[0], rowH, it.Name, "1", 0, "L", false, 0, "")
		doc.CellFormat(colW[1], rowH, strconv.Itoa(it.Quantity), "1", 0, "L", false, 0, "")
		doc.CellFormat(colW[2], rowH, fmt.Sprintf("%s %.2f", r.Currency, it.Price), "1", 0, "L", false, 0, "")
		doc.CellFormat(colW[3], rowH, fmt.Sprintf("%s %.2f", r.Currency, it.Price*float64(it.Quantity)), "1", 0, "L", false, 0, "")
		doc.Ln(-1)
	}

	return doc.GetY()
}

// drawImage decodes and places an image scaled to fit the image box. On any
// decode failure the image is skipped and the failure logged; rendering
// continues. Returns the drawn height and whether the image was placed.
func drawImage(doc *gofpdf.Fpdf, name, encoded string, x, y float64) (float64, bool) {
	raw, err := decodeImage(encoded)
	if err != nil {
		log.Printf("pdf: skipping %s image: %v", name, err)
		return 0, false
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		log.Printf("pdf: skipping %s image: %v", name, err)
		return 0, false
	}

	var imageType string
	switch format {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPEG"
	case "gif":
		imageType = "GIF"
	default:
		log.Printf("pdf: skipping %s image: unsupported format %q", name, format)
		return 0, false
	}

	opts := gofpdf.ImageOptions{ImageType: imageType}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	if doc.Err() {
		log.Printf("pdf: skipping %s image: %v", name, doc.Error())
		doc.ClearError()
		return 0, false
	}

	w, h := fitBox(float64(cfg.Width), float64(cfg.Height), imageBoxW, imageBoxH)
	doc.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	if doc.Err() {
		log.Printf("pdf: skipping %s image: %v", name, doc.Error())
		doc.ClearError()
		return 0, false
	}

	return h, true
}

// fitBox scales (w, h) down to fit inside (maxW, maxH) preserving aspect ratio.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}
	return w, h
}

// decodeImage strips an optional data URI prefix and base64-decodes the payload.
func decodeImage(s string) ([]byte, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URI")
		}
		payload = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
}

// formatRate renders a tax rate without trailing zeros, e.g. 10 -> "10",
// 7.5 -> "7.5".
func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
