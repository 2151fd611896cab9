package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Kind is the chart type
type Kind string

const (
	KindBar  Kind = "bar"
	KindPie  Kind = "pie"
	KindLine Kind = "line"
)

// FallbackValueLabel names the value axis when the fourth column is absent
const FallbackValueLabel = "Quantity"

// Column positions of the chart series. Persisted reports rely on them,
// so they do not follow field names.
const (
	categoryColumn = 0
	sliceColumn    = 1
	valueColumn    = 3
)

// ErrInvalidData is returned for values that cannot be plotted
var ErrInvalidData = errors.New("invalid chart data")

// Options configures the raster size
type Options struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultOptions returns the document embedding size
func DefaultOptions() Options {
	return Options{Width: 400, Height: 200}
}

// Chart is a rendered chart and the series it was drawn from
type Chart struct {
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	XLabel     string    `json:"x_label"`
	YLabel     string    `json:"y_label"`
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Empty      bool      `json:"empty"`
	PNG        []byte    `json:"-"`
}

// Renderer turns report rows into PNG charts
type Renderer struct {
	options Options
}

// NewRenderer creates a renderer; zero sizes fall back to the defaults
func NewRenderer(options Options) *Renderer {
	def := DefaultOptions()
	if options.Width <= 0 {
		options.Width = def.Width
	}
	if options.Height <= 0 {
		options.Height = def.Height
	}
	return &Renderer{options: options}
}

// Render draws rows as the given chart kind. Empty input yields an empty
// frame rather than an error.
func (r *Renderer) Render(headers []string, rows [][]interface{}, kind Kind) (*Chart, error) {
	c := &Chart{
		Kind:   kind,
		Width:  r.options.Width,
		Height: r.options.Height,
	}

	if err := r.extractSeries(c, headers, rows); err != nil {
		return nil, err
	}

	var err error
	switch {
	case len(c.Values) == 0:
		c.Empty = true
		c.PNG, err = r.renderEmpty(c)
	case kind == KindBar:
		c.PNG, err = r.renderBar(c)
	case kind == KindLine:
		c.PNG, err = r.renderLine(c)
	case kind == KindPie:
		if allZero(c.Values) {
			c.Empty = true
			c.PNG, err = r.renderEmpty(c)
		} else {
			c.PNG, err = r.renderPie(c)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", kind, err)
	}

	return c, nil
}

func (r *Renderer) extractSeries(c *Chart, headers []string, rows [][]interface{}) error {
	c.YLabel = FallbackValueLabel
	if len(headers) > valueColumn {
		c.YLabel = headers[valueColumn]
	}

	labelColumn := categoryColumn
	switch c.Kind {
	case KindBar, KindLine:
		if len(headers) > categoryColumn {
			c.XLabel = headers[categoryColumn]
		}
		c.Title = strings.TrimSpace(c.YLabel + " by " + c.XLabel)
	case KindPie:
		labelColumn = sliceColumn
		if len(headers) > sliceColumn {
			c.XLabel = headers[sliceColumn]
		}
		c.Title = strings.TrimSpace(c.YLabel + " by " + c.XLabel)
	default:
		return fmt.Errorf("%w: unsupported chart kind %q", ErrInvalidData, c.Kind)
	}

	c.Categories = make([]string, 0, len(rows))
	c.Values = make([]float64, 0, len(rows))
	for i, row := range rows {
		label := ""
		if len(row) > labelColumn {
			label = formatLabel(row[labelColumn])
		}

		value := 0.0
		if len(row) > valueColumn {
			v, err := toFloat(row[valueColumn])
			if err != nil {
				return fmt.Errorf("%w: row %d: %v", ErrInvalidData, i+1, err)
			}
			value = v
		}
		if c.Kind == KindPie && value < 0 {
			return fmt.Errorf("%w: row %d: negative slice %v", ErrInvalidData, i+1, value)
		}

		c.Categories = append(c.Categories, label)
		c.Values = append(c.Values, value)
	}
	return nil
}

func (r *Renderer) renderBar(c *Chart) ([]byte, error) {
	bars := make([]gochart.Value, len(c.Values))
	for i, v := range c.Values {
		bars[i] = gochart.Value{Value: v, Label: c.Categories[i]}
	}

	minY, maxY := valueRange(c.Values)
	graph := gochart.BarChart{
		Title:      c.Title,
		TitleStyle: gochart.Style{FontSize: 9},
		Width:      c.Width,
		Height:     c.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 30, Left: 24, Right: 10, Bottom: 22}},
		BarWidth:   barWidth(c.Width, len(bars)),
		XAxis:      gochart.Style{FontSize: 7},
		YAxis: gochart.YAxis{
			Style: gochart.Style{FontSize: 7},
			Range: &gochart.ContinuousRange{Min: minY, Max: maxY},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(withAxisNames(c.XLabel, c.YLabel), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderLine(c *Chart) ([]byte, error) {
	// The x range is taken from the tick span, so unlabeled ticks half a
	// step outside the data keep a single point plottable.
	xs := make([]float64, len(c.Values))
	ticks := make([]gochart.Tick, 0, len(c.Values)+2)
	ticks = append(ticks, gochart.Tick{Value: -0.5})
	for i := range c.Values {
		xs[i] = float64(i)
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: c.Categories[i]})
	}
	ticks = append(ticks, gochart.Tick{Value: float64(len(xs)) - 0.5})

	minY, maxY := valueRange(c.Values)
	graph := gochart.Chart{
		Title:      c.Title,
		TitleStyle: gochart.Style{FontSize: 9},
		Width:      c.Width,
		Height:     c.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 30, Left: 10, Right: 10, Bottom: 10}},
		XAxis: gochart.XAxis{
			Name:  c.XLabel,
			Style: gochart.Style{FontSize: 7},
			Range: &gochart.ContinuousRange{Min: -0.5, Max: float64(len(xs)) - 0.5},
			Ticks: ticks,
		},
		YAxis: gochart.YAxis{
			Name:  c.YLabel,
			Style: gochart.Style{FontSize: 7},
			Range: &gochart.ContinuousRange{Min: minY, Max: maxY},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    c.YLabel,
				XValues: xs,
				YValues: c.Values,
				Style:   gochart.Style{StrokeWidth: 2, DotWidth: 3},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderPie(c *Chart) ([]byte, error) {
	values := make([]gochart.Value, len(c.Values))
	for i, v := range c.Values {
		label := c.Categories[i]
		if total := sum(c.Values); total > 0 && v > 0 {
			label = fmt.Sprintf("%s %.1f%%", label, v/total*100)
		}
		values[i] = gochart.Value{Value: v, Label: label}
	}

	graph := gochart.PieChart{
		Title:      c.Title,
		TitleStyle: gochart.Style{FontSize: 9},
		Width:      c.Width,
		Height:     c.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20}},
		Values:     values,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// axisNamesRenderer draws the axis names onto a bar chart before it is
// encoded. BarChart itself has no axis name support.
type axisNamesRenderer struct {
	gochart.Renderer
	xName, yName  string
	width, height int
}

func withAxisNames(xName, yName string) gochart.RendererProvider {
	return func(width, height int) (gochart.Renderer, error) {
		rd, err := gochart.PNG(width, height)
		if err != nil {
			return nil, err
		}
		return &axisNamesRenderer{Renderer: rd, xName: xName, yName: yName, width: width, height: height}, nil
	}
}

func (r *axisNamesRenderer) Save(w io.Writer) error {
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return err
	}
	style := gochart.Style{Font: font, FontSize: 7, FontColor: drawing.ColorBlack}

	if r.xName != "" {
		tb := gochart.Draw.MeasureText(r.Renderer, r.xName, style)
		gochart.Draw.Text(r.Renderer, r.xName, (r.width-tb.Width())/2, r.height-6, style)
	}
	if r.yName != "" {
		style.TextRotationDegrees = 270
		tb := gochart.Draw.MeasureText(r.Renderer, r.yName, style)
		gochart.Draw.Text(r.Renderer, r.yName, 12, (r.height+tb.Width())/2, style)
	}
	return r.Renderer.Save(w)
}

// renderEmpty draws the frame and axes of a plot with no data
func (r *Renderer) renderEmpty(c *Chart) ([]byte, error) {
	rd, err := gochart.PNG(c.Width, c.Height)
	if err != nil {
		return nil, err
	}

	w, h := c.Width, c.Height
	rd.SetFillColor(drawing.ColorWhite)
	rd.SetStrokeColor(drawing.ColorWhite)
	rd.MoveTo(0, 0)
	rd.LineTo(w, 0)
	rd.LineTo(w, h)
	rd.LineTo(0, h)
	rd.Close()
	rd.FillStroke()

	rd.SetStrokeColor(drawing.ColorBlack)
	rd.SetStrokeWidth(1)
	rd.MoveTo(40, 30)
	rd.LineTo(40, h-25)
	rd.LineTo(w-10, h-25)
	rd.Stroke()

	if c.Title != "" {
		font, err := gochart.GetDefaultFont()
		if err != nil {
			return nil, err
		}
		rd.SetFont(font)
		rd.SetFontSize(9)
		rd.SetFontColor(drawing.ColorBlack)
		rd.Text(c.Title, 40, 20)
	}

	var buf bytes.Buffer
	if err := rd.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// valueRange returns a non-degenerate axis range that includes zero
func valueRange(values []float64) (float64, float64) {
	minY, maxY := 0.0, 0.0
	for _, v := range values {
		minY = math.Min(minY, v)
		maxY = math.Max(maxY, v)
	}
	if maxY-minY < 1 {
		maxY = minY + 1
	}
	return minY, maxY * 1.1
}

func barWidth(width, n int) int {
	if n == 0 {
		return 40
	}
	bw := (width - 80) / (n * 2)
	switch {
	case bw < 4:
		return 4
	case bw > 40:
		return 40
	}
	return bw
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func formatLabel(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case []byte:
		return parseNumber(string(t))
	case string:
		return parseNumber(t)
	default:
		return 0, fmt.Errorf("non-numeric value %v", v)
	}
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	return f, nil
}
