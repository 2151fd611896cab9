package reports

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/chart"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
	"github.com/H6ise/Sports-Inventory-accounting/internal/tabular"
)

// =====================================================
// Enums and Constants
// =====================================================

// VisualizationKind selects the chart drawn next to the table
type VisualizationKind string

const (
	VisualizationTable VisualizationKind = "table"
	VisualizationBar   VisualizationKind = "bar"
	VisualizationPie   VisualizationKind = "pie"
	VisualizationLine  VisualizationKind = "line"
)

// ParseVisualization validates a persisted viz_type. An empty value means table.
func ParseVisualization(s string) (VisualizationKind, error) {
	switch k := VisualizationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return VisualizationTable, nil
	case VisualizationTable, VisualizationBar, VisualizationPie, VisualizationLine:
		return k, nil
	}
	return "", fmt.Errorf("unknown visualization %q", s)
}

// ChartKind maps the visualization onto a chart kind; table has none
func (k VisualizationKind) ChartKind() (chart.Kind, bool) {
	switch k {
	case VisualizationBar:
		return chart.KindBar, true
	case VisualizationPie:
		return chart.KindPie, true
	case VisualizationLine:
		return chart.KindLine, true
	}
	return "", false
}

// Defaults applied when a configuration is created or normalized
const (
	UntitledName       = "Untitled"
	NewReportName      = "New report"
	DefaultFont        = "Helvetica"
	DefaultFontSize    = 12
	DefaultHeaderColor = "grey"
	DefaultBgColor     = "#f0f0f0"
	DefaultPreviewHTML = "<h1>Report preview</h1>"
)

// Style and Filters are shared with the encoders and the query builder
type (
	Style   = export.Style
	Filters = builder.Filters
)

// =====================================================
// Report Configuration
// =====================================================

// ReportConfiguration is a user-authored report definition
type ReportConfiguration struct {
	Name          string
	Fields        []string
	Filters       Filters
	Visualization VisualizationKind
	Style         Style
	PreviewHTML   string
}

// persistedConfiguration is the storage and wire encoding. Key order is fixed
// so that encoding a decoded document reproduces it.
type persistedConfiguration struct {
	Name        string   `json:"name"`
	Fields      []string `json:"fields"`
	Filters     Filters  `json:"filters"`
	VizType     string   `json:"viz_type"`
	Font        string   `json:"font"`
	FontSize    int      `json:"font_size"`
	HeaderColor string   `json:"header_color"`
	BgColor     string   `json:"bg_color"`
	PreviewHTML string   `json:"preview_html"`
}

// NewDefaultConfiguration returns what the editor starts from
func NewDefaultConfiguration() *ReportConfiguration {
	return &ReportConfiguration{
		Name:          NewReportName,
		Fields:        []string{"name", "category", "quantity"},
		Visualization: VisualizationTable,
		Style: Style{
			Font:        DefaultFont,
			FontSize:    DefaultFontSize,
			HeaderColor: DefaultHeaderColor,
			BgColor:     DefaultBgColor,
		},
		PreviewHTML: DefaultPreviewHTML,
	}
}

// MarshalJSON implements json.Marshaler
func (c ReportConfiguration) MarshalJSON() ([]byte, error) {
	fields := c.Fields
	if fields == nil {
		fields = []string{}
	}
	return json.Marshal(persistedConfiguration{
		Name:        c.Name,
		Fields:      fields,
		Filters:     c.Filters,
		VizType:     string(c.Visualization),
		Font:        c.Style.Font,
		FontSize:    c.Style.FontSize,
		HeaderColor: c.Style.HeaderColor,
		BgColor:     c.Style.BgColor,
		PreviewHTML: c.PreviewHTML,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Values are taken as stored;
// call Normalize before rendering.
func (c *ReportConfiguration) UnmarshalJSON(data []byte) error {
	var p persistedConfiguration
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	fields := p.Fields
	if fields == nil {
		fields = []string{}
	}
	*c = ReportConfiguration{
		Name:          p.Name,
		Fields:        fields,
		Filters:       p.Filters,
		Visualization: VisualizationKind(p.VizType),
		Style: Style{
			Font:        p.Font,
			FontSize:    p.FontSize,
			HeaderColor: p.HeaderColor,
			BgColor:     p.BgColor,
		},
		PreviewHTML: p.PreviewHTML,
	}
	return nil
}

// Clone returns a deep copy
func (c *ReportConfiguration) Clone() *ReportConfiguration {
	out := *c
	out.Fields = append([]string{}, c.Fields...)
	out.Filters = Filters{
		Category:  cloneString(c.Filters.Category),
		Condition: cloneString(c.Filters.Condition),
		DateFrom:  cloneString(c.Filters.DateFrom),
		DateTo:    cloneString(c.Filters.DateTo),
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Normalize corrects everything that has a safe default and reports the
// rest as a configuration error:
//   - unknown or repeated fields are dropped, an empty selection becomes the default set
//   - empty filter values become nil, malformed dates are errors
//   - an empty visualization becomes table, an unknown one is an error
//   - an empty name, bad font, non-positive size or unknown color take defaults
func (c *ReportConfiguration) Normalize(designer *builder.ReportDesigner) error {
	ds, err := designer.GetDataSource(builder.InventorySource)
	if err != nil {
		return newStageError(StageConfiguration, err)
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = UntitledName
	}

	c.Fields = ds.SanitizeFields(c.Fields)
	if len(c.Fields) == 0 {
		c.Fields = append([]string{}, builder.DefaultFields...)
	}

	c.Filters.Category = blankToNil(c.Filters.Category)
	c.Filters.Condition = blankToNil(c.Filters.Condition)
	c.Filters.DateFrom = blankToNil(c.Filters.DateFrom)
	c.Filters.DateTo = blankToNil(c.Filters.DateTo)

	result := &builder.ValidationResult{IsValid: true}
	builder.NewValidator(designer).ValidateFilters(c.Filters, result)
	if !result.IsValid {
		return newStageError(StageConfiguration, result)
	}

	kind, err := ParseVisualization(string(c.Visualization))
	if err != nil {
		return newStageError(StageConfiguration, err)
	}
	c.Visualization = kind

	c.Style.Font = strings.TrimSpace(c.Style.Font)
	if !builder.IsValidFont(c.Style.Font) {
		c.Style.Font = DefaultFont
	}
	if c.Style.FontSize <= 0 {
		c.Style.FontSize = DefaultFontSize
	}
	if !builder.IsValidColor(c.Style.HeaderColor) {
		c.Style.HeaderColor = DefaultHeaderColor
	}
	if !builder.IsValidColor(c.Style.BgColor) {
		c.Style.BgColor = DefaultBgColor
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// =====================================================
// Stored entities
// =====================================================

// ReportTemplate is a saved configuration owned by a user
type ReportTemplate struct {
	ID        int64               `db:"id" json:"id"`
	UserID    int64               `db:"user_id" json:"user_id"`
	Config    ReportConfiguration `db:"-" json:"config"`
	RawConfig string              `db:"config" json:"-"`
	Type      string              `db:"type" json:"type"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// History actions
const (
	ActionSaved    = "saved"
	ActionDeleted  = "deleted"
	actionExported = "exported:"
	actionShared   = "shared:"
)

// ExportedAction returns the history action of an export
func ExportedAction(format export.Format) string {
	return actionExported + string(format)
}

// SharedAction returns the history action of sharing with a user
func SharedAction(toUserID int64) string {
	return actionShared + strconv.FormatInt(toUserID, 10)
}

// HistoryEntry is a row of report_history
type HistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	ReportID  int64     `db:"report_id" json:"report_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RenderedReport is the result of one query and chart render. It is never cached.
type RenderedReport struct {
	Headers []string
	Rows    [][]interface{}
	Chart   *chart.Chart
}

// Table exposes the rows to table views
func (r *RenderedReport) Table() tabular.Model {
	return tabular.Static(r.Headers, r.Rows)
}

// Artifact is an encoded report ready for download or delivery
type Artifact struct {
	Name        string        `json:"name"`
	Format      export.Format `json:"format"`
	ContentType string        `json:"content_type"`
	Data        []byte        `json:"-"`
}

// ArtifactName is stable per report id and format. Unsaved reports have id 0.
func ArtifactName(reportID int64, format export.Format) string {
	if reportID <= 0 {
		return "report_new." + format.Extension()
	}
	return fmt.Sprintf("report_%d.%s", reportID, format.Extension())
}

// =====================================================
// Request/Response DTOs
// =====================================================

// ShareRequest is the body of POST /reports/:id/share
type ShareRequest struct {
	ToUserID int64 `json:"to_user_id" binding:"required"`
}

// ShareResponse returns the id of the copy
type ShareResponse struct {
	ID int64 `json:"id"`
}

// PreviewResponse carries freshly rendered preview markup
type PreviewResponse struct {
	Config      *ReportConfiguration `json:"config"`
	PreviewHTML string               `json:"preview_html"`
}

// JobStatus is the state of a background export
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// ExportJob describes a background export
type ExportJob struct {
	ID         string        `json:"id"`
	ReportID   int64         `json:"report_id"`
	UserID     int64         `json:"user_id"`
	Format     export.Format `json:"format"`
	Status     JobStatus     `json:"status"`
	Location   string        `json:"location,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
