package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator generates PDF reports
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	options PDFOptions
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize        string     `json:"page_size"`   // A4, Letter, Legal
	Orientation     string     `json:"orientation"` // portrait, landscape
	HeaderColor     PDFColor   `json:"header_color"`
	HeaderTextColor PDFColor   `json:"header_text_color"`
	BodyColor       PDFColor   `json:"body_color"`
	AlternateRows   bool       `json:"alternate_rows"`
	AlternateColor  PDFColor   `json:"alternate_color"`
	FontFamily      string     `json:"font_family"`
	FontSize        float64    `json:"font_size"`
	TitleFontSize   float64    `json:"title_font_size"`
	Margins         PDFMargins `json:"margins"`
	LogoWidth       float64    `json:"logo_width"`
	LogoHeight      float64    `json:"logo_height"`
	ChartWidth      float64    `json:"chart_width"`
	ChartHeight     float64    `json:"chart_height"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func pdfColor(c RGB) PDFColor {
	return PDFColor{R: int(c.R), G: int(c.G), B: int(c.B)}
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:        "A4",
		Orientation:     "portrait",
		HeaderColor:     pdfColor(ColorGrey),
		HeaderTextColor: pdfColor(ColorWhiteSmoke),
		BodyColor:       pdfColor(ColorBeige),
		AlternateRows:   true,
		AlternateColor:  pdfColor(ColorWhite),
		FontFamily:      "Helvetica",
		FontSize:        12,
		TitleFontSize:   16,
		Margins: PDFMargins{
			Left:   15,
			Right:  15,
			Top:    20,
			Bottom: 20,
		},
		LogoWidth:   35,
		LogoHeight:  17.5,
		ChartWidth:  140,
		ChartHeight: 70,
	}
}

// WithStyle returns a copy of the options with the user style applied.
// Only the PDF core fonts are available, so families map onto them.
func (o PDFOptions) WithStyle(style Style) PDFOptions {
	o.FontFamily = CoreFont(style.Font)
	if style.FontSize > 0 {
		o.FontSize = float64(style.FontSize)
	}
	o.HeaderColor = pdfColor(ColorOr(style.HeaderColor, ColorGrey))
	return o
}

// CoreFont maps a font family onto Helvetica, Times or Courier
func CoreFont(font string) string {
	f := strings.ToLower(font)
	switch {
	case strings.Contains(f, "times"), strings.Contains(f, "serif") && !strings.Contains(f, "sans"):
		return "Times"
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	default:
		return "Helvetica"
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(true, options.Margins.Bottom)

	return &PDFGenerator{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		options: options,
	}
}

// GenerateReport lays out logo, title, table and chart on as many pages as needed
func (g *PDFGenerator) GenerateReport(doc *Document) error {
	g.pdf.AddPage()

	g.addLogo(doc.LogoPath)
	g.addTitle(doc.Title)
	g.pdf.Ln(5)

	if len(doc.Headers) > 0 {
		colWidths := g.calculateColumnWidths(doc.Headers, doc.Rows)
		g.addTableHeader(doc.Headers, colWidths)
		g.addTableData(doc.Headers, doc.Rows, colWidths)
	}

	if len(doc.Chart) > 0 {
		g.addChart(doc.Chart)
	}

	return g.pdf.Error()
}

// addLogo draws the logo in the top left corner when the file exists
func (g *PDFGenerator) addLogo(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	x, y := g.pdf.GetXY()
	g.pdf.ImageOptions(path, x, y, g.options.LogoWidth, g.options.LogoHeight, false,
		gofpdf.ImageOptions{ReadDpi: true}, 0, "")
	g.pdf.SetY(y + g.options.LogoHeight + 2)
}

// addTitle adds the report title
func (g *PDFGenerator) addTitle(title string) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.tr(title), "", 1, "C", false, 0, "")
}

// calculateColumnWidths sizes columns to their content, scaled to fit the page
func (g *PDFGenerator) calculateColumnWidths(headers []string, rows [][]interface{}) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	availableWidth := pageWidth - g.options.Margins.Left - g.options.Margins.Right

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
	maxWidths := make([]float64, len(headers))
	for i, label := range headers {
		maxWidths[i] = g.pdf.GetStringWidth(g.tr(label)) + 4
	}

	// Sample the first 100 rows
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	sampleSize := len(rows)
	if sampleSize > 100 {
		sampleSize = 100
	}
	for _, row := range rows[:sampleSize] {
		for i := range headers {
			if i >= len(row) {
				break
			}
			width := g.pdf.GetStringWidth(g.tr(FormatValue(row[i]))) + 4
			if width > maxWidths[i] {
				maxWidths[i] = width
			}
		}
	}

	totalWidth := 0.0
	for _, w := range maxWidths {
		totalWidth += w
	}
	if totalWidth > availableWidth {
		scale := availableWidth / totalWidth
		for i := range maxWidths {
			maxWidths[i] *= scale
		}
	}

	return maxWidths
}

func (g *PDFGenerator) rowHeight() float64 {
	// points to millimetres plus padding
	return g.options.FontSize*0.3528 + 3
}

// addTableHeader adds the table header row
func (g *PDFGenerator) addTableHeader(labels []string, widths []float64) {
	hc, tc := g.options.HeaderColor, g.options.HeaderTextColor
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
	g.pdf.SetFillColor(hc.R, hc.G, hc.B)
	g.pdf.SetTextColor(tc.R, tc.G, tc.B)
	g.pdf.SetDrawColor(0, 0, 0)

	for i, label := range labels {
		g.pdf.CellFormat(widths[i], g.rowHeight()+1, g.tr(label), "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

// addTableData adds the data rows, repeating the header after a page break
func (g *PDFGenerator) addTableData(headers []string, rows [][]interface{}, widths []float64) {
	h := g.rowHeight()
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	for i, row := range rows {
		if g.pdf.GetY()+h > pageHeight(g.pdf)-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(headers, widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		fill := g.options.BodyColor
		if g.options.AlternateRows && i%2 == 1 {
			fill = g.options.AlternateColor
		}
		g.pdf.SetFillColor(fill.R, fill.G, fill.B)

		for j := range headers {
			var val string
			if j < len(row) {
				val = g.tr(FormatValue(row[j]))
			}
			val = truncate(g.pdf, val, widths[j]-2)
			g.pdf.CellFormat(widths[j], h, val, "1", 0, "C", true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

// addChart embeds the PNG chart below the table
func (g *PDFGenerator) addChart(png []byte) {
	const name = "chart"
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	g.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

	g.pdf.Ln(8)
	if g.pdf.GetY()+g.options.ChartHeight > pageHeight(g.pdf)-g.options.Margins.Bottom {
		g.pdf.AddPage()
	}
	pageWidth, _ := g.pdf.GetPageSize()
	x := (pageWidth - g.options.ChartWidth) / 2
	y := g.pdf.GetY()
	g.pdf.ImageOptions(name, x, y, g.options.ChartWidth, g.options.ChartHeight, false, opts, 0, "")
	g.pdf.SetY(y + g.options.ChartHeight)
}

func pageHeight(pdf *gofpdf.Fpdf) float64 {
	_, h := pdf.GetPageSize()
	return h
}

func truncate(pdf *gofpdf.Fpdf, val string, width float64) string {
	if width <= 0 || pdf.GetStringWidth(val) <= width {
		return val
	}
	runes := []rune(val)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// PDFEncoder adapts PDFGenerator to the Encoder interface
type PDFEncoder struct {
	options PDFOptions
}

// NewPDFEncoder creates a PDF encoder
func NewPDFEncoder(options PDFOptions) *PDFEncoder {
	return &PDFEncoder{options: options}
}

// Format implements Encoder
func (e *PDFEncoder) Format() Format { return FormatPDF }

// Encode implements Encoder
func (e *PDFEncoder) Encode(w io.Writer, doc *Document) error {
	g := NewPDFGenerator(e.options.WithStyle(doc.Style))
	if err := g.GenerateReport(doc); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	if err := g.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
