package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"strconv"
)

const htmlLayout = `<html>
<head>
<meta charset="utf-8">
<style>
table { border-collapse: collapse; width: 100%; font-family: {{.Font}}; font-size: {{.FontSize}}px; }
th, td { border: 1px solid black; padding: 8px; text-align: center; }
th { background-color: {{.HeaderColor}}; color: white; }
body { background-color: {{.BgColor}}; }
</style>
</head>
<body>
{{- if .Logo}}
<img src="{{.Logo}}" width="100">
{{- end}}
<h1>{{.Title}}</h1>
<table>
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</table>
{{- if .Chart}}
<img src="{{.Chart}}" alt="Chart">
{{- end}}
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Parse(htmlLayout))

type htmlView struct {
	Title       string
	Font        string
	FontSize    string
	HeaderColor string
	BgColor     string
	Logo        string
	Headers     []string
	Rows        [][]string
	Chart       template.URL
}

// HTMLRenderer renders reports as a single self-contained HTML page. The
// output depends only on the document, so the same input gives the same bytes.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer creates an HTML renderer
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: htmlTemplate}
}

// Format implements Encoder
func (h *HTMLRenderer) Format() Format { return FormatHTML }

// Encode implements Encoder
func (h *HTMLRenderer) Encode(w io.Writer, doc *Document) error {
	if err := h.tmpl.Execute(w, h.view(doc)); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

// Render returns the page as a string, used for previews
func (h *HTMLRenderer) Render(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := h.Encode(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *HTMLRenderer) view(doc *Document) htmlView {
	font := doc.Style.Font
	if font == "" {
		font = "Helvetica"
	}
	size := doc.Style.FontSize
	if size <= 0 {
		size = 12
	}
	v := htmlView{
		Title:       doc.Title,
		Font:        font,
		FontSize:    strconv.Itoa(size),
		HeaderColor: cssColor(doc.Style.HeaderColor, "grey"),
		BgColor:     cssColor(doc.Style.BgColor, "#f0f0f0"),
		Logo:        doc.LogoPath,
		Headers:     doc.Headers,
		Rows:        make([][]string, len(doc.Rows)),
	}
	for i, row := range doc.Rows {
		cells := make([]string, len(row))
		for j, val := range row {
			cells[j] = FormatValue(val)
		}
		v.Rows[i] = cells
	}
	if len(doc.Chart) > 0 {
		v.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(doc.Chart))
	}
	return v
}

func cssColor(token, fallback string) string {
	if _, ok := ParseColor(token); ok {
		return token
	}
	return fallback
}
