package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter exports data to Excel format
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string            `json:"sheet_name"`
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	NumberFormat string            `json:"number_format"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
	DataStyle    *ExcelStyleConfig `json:"data_style,omitempty"`
	AutoWidth    bool              `json:"auto_width"`
	// Blank rows between the last data row and the chart
	ChartGap    int     `json:"chart_gap"`
	ChartColumn string  `json:"chart_column"`
	ChartScale  float64 `json:"chart_scale"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold   bool   `json:"font_bold"`
	FontSize   int    `json:"font_size"`
	FontFamily string `json:"font_family"`
	FontColor  string `json:"font_color"`
	FillColor  string `json:"fill_color"`
	Alignment  string `json:"alignment"` // left, center, right
	Border     bool   `json:"border"`
	WrapText   bool   `json:"wrap_text"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Report",
		FreezeHeader: true,
		AutoFilter:   true,
		NumberFormat: "#,##0.##",
		AutoWidth:    true,
		ChartGap:     1,
		ChartColumn:  "A",
		ChartScale:   1,
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  12,
			FillColor: ColorGrey.Hex(),
			FontColor: ColorWhiteSmoke.Hex(),
			Alignment: "center",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize:  12,
			Alignment: "left",
			Border:    true,
		},
	}
}

// WithStyle returns a copy of the options with the user style applied
func (o ExcelOptions) WithStyle(style Style) ExcelOptions {
	header := *o.HeaderStyle
	data := *o.DataStyle
	header.FillColor = ColorOr(style.HeaderColor, ColorGrey).Hex()
	data.FillColor = ColorOr(style.BgColor, ColorWhite).Hex()
	if style.Font != "" {
		header.FontFamily = style.Font
		data.FontFamily = style.Font
	}
	if style.FontSize > 0 {
		header.FontSize = style.FontSize
		data.FontSize = style.FontSize
	}
	o.HeaderStyle = &header
	o.DataStyle = &data
	return o
}

// ChartAnchor returns the cell the chart is anchored at for a table of
// rowCount data rows
func (o ExcelOptions) ChartAnchor(rowCount int) string {
	return o.ChartColumn + strconv.Itoa(rowCount+2+o.ChartGap)
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()

	// Rename the default sheet
	file.SetSheetName("Sheet1", options.SheetName)

	return &ExcelExporter{
		file:    file,
		options: options,
	}
}

// WriteHeader writes the header row with styling
func (e *ExcelExporter) WriteHeader(columns []string) error {
	sheetName := e.options.SheetName

	headerStyleID := 0
	if e.options.HeaderStyle != nil {
		style, err := e.createStyle(e.options.HeaderStyle)
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		headerStyleID = style
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := e.file.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("failed to set header cell: %w", err)
		}
		if headerStyleID > 0 {
			e.file.SetCellStyle(sheetName, cell, cell, headerStyleID)
		}
	}

	if e.options.FreezeHeader && len(columns) > 0 {
		e.file.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	return nil
}

// WriteRows writes data rows below the header
func (e *ExcelExporter) WriteRows(rows [][]interface{}, columns []string) error {
	sheetName := e.options.SheetName

	dataStyleID := 0
	if e.options.DataStyle != nil {
		style, err := e.createStyle(e.options.DataStyle)
		if err != nil {
			return fmt.Errorf("failed to create data style: %w", err)
		}
		dataStyleID = style
	}

	columnWidths := make(map[int]float64)
	for i, col := range columns {
		columnWidths[i] = e.estimateCellWidth(col)
	}

	for rowIdx, row := range rows {
		rowNum := rowIdx + 2
		for colIdx := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			var val interface{}
			if colIdx < len(row) {
				val = row[colIdx]
			}

			if err := e.setCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if dataStyleID > 0 {
				e.file.SetCellStyle(sheetName, cell, cell, dataStyleID)
			}

			if width := e.estimateCellWidth(val); width > columnWidths[colIdx] {
				columnWidths[colIdx] = width
			}
		}
	}

	if e.options.AutoFilter && len(columns) > 0 && len(rows) > 0 {
		lastCol, _ := excelize.CoordinatesToCellName(len(columns), len(rows)+1)
		if err := e.file.AutoFilter(sheetName, "A1:"+lastCol, nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}

	if e.options.AutoWidth {
		for colIdx, width := range columnWidths {
			colName, _ := excelize.ColumnNumberToName(colIdx + 1)
			// Min width 10, max width 50
			if width < 10 {
				width = 10
			}
			if width > 50 {
				width = 50
			}
			e.file.SetColWidth(sheetName, colName, colName, width)
		}
	}

	return nil
}

// AddChart places a PNG chart below a table of rowCount rows
func (e *ExcelExporter) AddChart(png []byte, rowCount int) error {
	scale := e.options.ChartScale
	if scale <= 0 {
		scale = 1
	}
	err := e.file.AddPictureFromBytes(e.options.SheetName, e.options.ChartAnchor(rowCount), &excelize.Picture{
		Extension: ".png",
		File:      png,
		Format: &excelize.GraphicOptions{
			AltText: "Chart",
			ScaleX:  scale,
			ScaleY:  scale,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add chart: %w", err)
	}
	return nil
}

// WriteTo writes the Excel file to a writer
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	return e.file.Write(w)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

// createStyle creates an Excel style from config
func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{}

	style.Font = &excelize.Font{
		Bold:   config.FontBold,
		Size:   float64(config.FontSize),
		Family: config.FontFamily,
	}
	if config.FontColor != "" {
		style.Font.Color = config.FontColor
	}

	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}

	if config.Alignment != "" || config.WrapText {
		style.Alignment = &excelize.Alignment{
			Horizontal: config.Alignment,
			WrapText:   config.WrapText,
		}
	}

	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	return e.file.NewStyle(style)
}

// setCellValue keeps numbers numeric so spreadsheets can sum them
func (e *ExcelExporter) setCellValue(sheet, cell string, val interface{}) error {
	switch v := val.(type) {
	case nil:
		return e.file.SetCellValue(sheet, cell, "")
	case time.Time:
		return e.file.SetCellValue(sheet, cell, FormatValue(v))
	case []byte:
		return e.file.SetCellValue(sheet, cell, string(v))
	default:
		return e.file.SetCellValue(sheet, cell, v)
	}
}

// estimateCellWidth estimates the display width of a cell value
func (e *ExcelExporter) estimateCellWidth(val interface{}) float64 {
	if val == nil {
		return 0
	}
	// Rough estimate: 1 character = 1 unit width, plus padding
	return float64(len([]rune(FormatValue(val))))*1.2 + 2
}

// ExcelEncoder adapts ExcelExporter to the Encoder interface
type ExcelEncoder struct {
	options ExcelOptions
}

// NewExcelEncoder creates a spreadsheet encoder
func NewExcelEncoder(options ExcelOptions) *ExcelEncoder {
	return &ExcelEncoder{options: options}
}

// Format implements Encoder
func (e *ExcelEncoder) Format() Format { return FormatXLSX }

// Encode implements Encoder
func (e *ExcelEncoder) Encode(w io.Writer, doc *Document) error {
	exporter := NewExcelExporter(e.options.WithStyle(doc.Style))
	defer exporter.Close()

	if err := exporter.WriteHeader(doc.Headers); err != nil {
		return err
	}
	if err := exporter.WriteRows(doc.Rows, doc.Headers); err != nil {
		return err
	}
	if len(doc.Chart) > 0 {
		if err := exporter.AddChart(doc.Chart, len(doc.Rows)); err != nil {
			return err
		}
	}
	if err := exporter.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
