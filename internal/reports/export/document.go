package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Format identifies an output encoding
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

// Formats lists every supported format
var Formats = []Format{FormatPDF, FormatXLSX, FormatHTML, FormatCSV}

// ParseFormat accepts a format name; "excel" is kept as an alias of xlsx
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "html", "htm":
		return FormatHTML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// Style carries the user-selected presentation options
type Style struct {
	Font        string `json:"font"`
	FontSize    int    `json:"font_size"`
	HeaderColor string `json:"header_color"`
	BgColor     string `json:"bg_color"`
}

// Document is everything an encoder needs. Chart is a PNG and may be nil.
type Document struct {
	Title    string
	Headers  []string
	Rows     [][]interface{}
	Chart    []byte
	Style    Style
	LogoPath string
}

// Encoder writes a document in one format
type Encoder interface {
	Format() Format
	Encode(w io.Writer, doc *Document) error
}

// NewEncoder returns the encoder for a format with default options
func NewEncoder(format Format) (Encoder, error) {
	switch format {
	case FormatPDF:
		return NewPDFEncoder(DefaultPDFOptions()), nil
	case FormatXLSX:
		return NewExcelEncoder(DefaultExcelOptions()), nil
	case FormatHTML:
		return NewHTMLRenderer(), nil
	case FormatCSV:
		return NewCSVEncoder(DefaultCSVOptions()), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// FormatValue renders a cell the same way in every text-based format
func FormatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", v)
	}
}
