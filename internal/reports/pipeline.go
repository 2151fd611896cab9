package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/chart"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
	"github.com/H6ise/Sports-Inventory-accounting/internal/tabular"
)

// Pipeline turns a configuration into rows, a chart and an encoded document.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	query    QueryBuilder
	renderer *chart.Renderer
	encoders map[export.Format]export.Encoder
	logoPath string
	logger   *zap.Logger
}

// NewPipeline creates a pipeline with the default encoders
func NewPipeline(query QueryBuilder, renderer *chart.Renderer, logoPath string, logger *zap.Logger) *Pipeline {
	encoders := make(map[export.Format]export.Encoder, len(export.Formats))
	for _, f := range export.Formats {
		enc, err := export.NewEncoder(f)
		if err != nil {
			panic(err)
		}
		encoders[f] = enc
	}
	return &Pipeline{
		query:    query,
		renderer: renderer,
		encoders: encoders,
		logoPath: logoPath,
		logger:   logger,
	}
}

// Render fetches the rows and draws the chart. cfg must be normalized.
func (p *Pipeline) Render(ctx context.Context, cfg *ReportConfiguration) (*RenderedReport, error) {
	report, err := p.query.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	kind, ok := cfg.Visualization.ChartKind()
	if !ok {
		return report, nil
	}
	c, err := p.renderer.Render(report.Headers, report.Rows, kind)
	if err != nil {
		return nil, newStageError(StageRender, err)
	}
	report.Chart = c
	return report, nil
}

// Document assembles the encoder input for a rendered report
func (p *Pipeline) Document(cfg *ReportConfiguration, report *RenderedReport) *export.Document {
	table := report.Table()
	doc := &export.Document{
		Title:   cfg.Name,
		Headers: table.Headers(),
		Rows:    tabular.Rows(table),
		Style:   cfg.Style,
	}
	if report.Chart != nil {
		doc.Chart = report.Chart.PNG
	}
	if p.logoPath != "" {
		if _, err := os.Stat(p.logoPath); err == nil {
			doc.LogoPath = p.logoPath
		}
	}
	return doc
}

// Preview renders the configuration as HTML
func (p *Pipeline) Preview(ctx context.Context, cfg *ReportConfiguration) (string, error) {
	var buf bytes.Buffer
	if err := p.Export(ctx, cfg, export.FormatHTML, &buf, "preview"); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Export renders cfg and writes it to w in the given format. destination is
// only used to describe failures.
func (p *Pipeline) Export(ctx context.Context, cfg *ReportConfiguration, format export.Format, w io.Writer, destination string) error {
	enc, ok := p.encoders[format]
	if !ok {
		return newExportError(string(format), destination, fmt.Errorf("no encoder registered"))
	}

	report, err := p.Render(ctx, cfg)
	if err != nil {
		return err
	}

	if err := enc.Encode(w, p.Document(cfg, report)); err != nil {
		p.logger.Error("Failed to encode report",
			zap.String("format", string(format)),
			zap.String("destination", destination),
			zap.Error(err))
		return newExportError(string(format), destination, err)
	}
	return nil
}
