// Package invoice draws order summaries into PDF files.
package invoice

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"

	"telegram-food-bot/menu"
	"telegram-food-bot/orders"
)

// RenderError means the invoice could not be produced. The order itself is
// unaffected.
type RenderError struct {
	Token string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render invoice %s: %v", e.Token, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// File is a rendered invoice on disk. The caller owns it and must Remove it.
type File struct {
	Path string
	// Name is the file name shown to the user.
	Name string
}

// Open opens the invoice for reading.
func (f *File) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Remove deletes the file. Removing twice is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDir puts invoices in dir instead of the system temp directory.
func WithDir(dir string) Option {
	return func(r *Renderer) { r.dir = dir }
}

// WithTitle sets the heading printed on every invoice.
func WithTitle(title string) Option {
	return func(r *Renderer) { r.title = title }
}

// WithoutCompression leaves page streams readable, which tests rely on.
func WithoutCompression() Option {
	return func(r *Renderer) { r.compress = false }
}

// Renderer turns summaries into paginated A4 invoices.
type Renderer struct {
	currency menu.Currency
	dir      string
	title    string
	compress bool
}

func NewRenderer(currency menu.Currency, opts ...Option) *Renderer {
	r := &Renderer{
		currency: currency,
		title:    "Order Invoice",
		compress: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the invoice for s into a new uniquely named file.
func (r *Renderer) Render(s orders.Summary, userID int64) (*File, error) {
	f, err := os.CreateTemp(r.dir, fmt.Sprintf("invoice-%d-*.pdf", userID))
	if err != nil {
		return nil, &RenderError{Token: s.Token, Err: err}
	}
	file := &File{Path: f.Name(), Name: "invoice_" + s.Token + ".pdf"}

	if err := r.Write(f, s, userID); err != nil {
		f.Close()
		file.Remove()
		return nil, &RenderError{Token: s.Token, Err: err}
	}
	if err := f.Close(); err != nil {
		file.Remove()
		return nil, &RenderError{Token: s.Token, Err: err}
	}
	return file, nil
}

var (
	widths = [4]float64{80, 25, 30, 35}
	aligns = [4]string{"L", "C", "R", "R"}
)

const (
	margin = 20.0
	rowH   = 8.0
)

// Write draws the invoice for s into w.
func (r *Renderer) Write(w io.Writer, s orders.Summary, userID int64) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(r.title+" #"+s.Token, false)
	pdf.SetCreationDate(s.CreatedAt)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, "Order ID: #"+s.Token, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("User ID: %d", userID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Date: "+s.CreatedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	_, pageH := pdf.GetPageSize()
	rows := Rows(s, r.currency)
	header := rows[0]
	for _, row := range rows {
		if row.Kind != HeaderRow && pdf.GetY()+rowH > pageH-margin {
			pdf.AddPage()
			drawRow(pdf, tr, header)
		}
		drawRow(pdf, tr, row)
	}

	if s.Comment != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, "Customer Comment:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 6, tr(s.Comment), "", "L", false)
	}

	return pdf.Output(w)
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, row Row) {
	switch row.Kind {
	case HeaderRow:
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(128, 128, 128)
		pdf.SetTextColor(245, 245, 245)
	case TotalRow:
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
	default:
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
	}
	fill := row.Kind != ItemRow
	for i, cell := range row.Cells {
		pdf.CellFormat(widths[i], rowH, tr(cell), "1", 0, aligns[i], fill, 0, "")
	}
	pdf.Ln(-1)
}
