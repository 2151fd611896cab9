package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
)

// Service provides business logic for report templates
type Service struct {
	repo     Repository
	pipeline *Pipeline
	designer *builder.ReportDesigner
	audit    audit.Recorder
	logger   *zap.Logger
}

// NewService creates a new reports service
func NewService(repo Repository, pipeline *Pipeline, designer *builder.ReportDesigner, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		designer: designer,
		audit:    recorder,
		logger:   logger,
	}
}

func (s *Service) sessionDeps() sessionDeps {
	return sessionDeps{
		store:    s.repo,
		preview:  s.pipeline,
		designer: s.designer,
		audit:    s.audit,
		logger:   s.logger,
	}
}

// Fields lists the selectable fields of a data source
func (s *Service) Fields(dataSource string) ([]builder.FieldSchema, error) {
	return s.designer.GetFieldsForDataSource(dataSource)
}

// =====================================================
// Sessions
// =====================================================

// NewSession starts editing a fresh configuration
func (s *Service) NewSession(userID int64) *Session {
	return newSession(s.sessionDeps(), userID, 0, NewDefaultConfiguration())
}

// OpenSession starts editing a stored template
func (s *Service) OpenSession(ctx context.Context, userID, reportID int64) (*Session, error) {
	tmpl, err := s.repo.GetTemplate(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return newSession(s.sessionDeps(), userID, tmpl.ID, tmpl.Config.Clone()), nil
}

// =====================================================
// Template Operations
// =====================================================

// ListTemplates returns the templates owned by a user
func (s *Service) ListTemplates(ctx context.Context, userID int64) ([]*ReportTemplate, error) {
	return s.repo.ListTemplates(ctx, userID)
}

// GetTemplate retrieves a template by id
func (s *Service) GetTemplate(ctx context.Context, id int64) (*ReportTemplate, error) {
	return s.repo.GetTemplate(ctx, id)
}

// AllTemplates returns every template, used by backups
func (s *Service) AllTemplates(ctx context.Context) ([]*ReportTemplate, error) {
	return s.repo.AllTemplates(ctx)
}

// DeleteTemplate removes a template
func (s *Service) DeleteTemplate(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteTemplate(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return newStageError(StagePersistence, err)
	}

	s.audit.Record(ctx, userID, fmt.Sprintf("Deleted report %d", id))
	s.logger.Info("Report template deleted",
		zap.Int64("report_id", id),
		zap.Int64("user_id", userID))
	return nil
}

// ShareTemplate copies a template to another user
func (s *Service) ShareTemplate(ctx context.Context, userID, id, toUserID int64) (int64, error) {
	if toUserID <= 0 {
		return 0, newStageError(StageConfiguration, fmt.Errorf("invalid recipient %d", toUserID))
	}
	newID, err := s.repo.ShareTemplate(ctx, id, userID, toUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, newStageError(StagePersistence, err)
	}

	s.audit.Record(ctx, userID, fmt.Sprintf("Shared report %d with user %d", id, toUserID))
	s.logger.Info("Report template shared",
		zap.Int64("report_id", id),
		zap.Int64("copy_id", newID),
		zap.Int64("to_user_id", toUserID))
	return newID, nil
}

// DefaultTemplates returns the templates offered to a fresh installation
func DefaultTemplates() []*ReportConfiguration {
	full := &ReportConfiguration{
		Name:          "Full inventory",
		Fields:        []string{"id", "name", "category", "quantity", "condition", "purchase_date", "service_life"},
		Visualization: VisualizationTable,
		Style:         Style{Font: DefaultFont, FontSize: DefaultFontSize, HeaderColor: DefaultHeaderColor, BgColor: DefaultBgColor},
		PreviewHTML:   "<h1>Full inventory</h1>",
	}
	byCondition := &ReportConfiguration{
		Name:          "Condition by category",
		Fields:        []string{"category", "condition", "quantity"},
		Visualization: VisualizationPie,
		Style:         Style{Font: "Times", FontSize: 14, HeaderColor: "blue", BgColor: "#ffffff"},
		PreviewHTML:   "<h1>Condition by category</h1>",
	}
	purchasePlan := &ReportConfiguration{
		Name:          "Purchase plan",
		Fields:        []string{"category", "quantity"},
		Visualization: VisualizationBar,
		Style:         Style{Font: "Courier", FontSize: 12, HeaderColor: "green", BgColor: "#f0f0f0"},
		PreviewHTML:   "<h1>Purchase plan</h1>",
	}
	return []*ReportConfiguration{full, byCondition, purchasePlan}
}

// SeedDefaultTemplates stores the default templates for userID when no
// template exists yet, and returns how many were created.
func (s *Service) SeedDefaultTemplates(ctx context.Context, userID int64) (int, error) {
	n, err := s.repo.CountTemplates(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for _, cfg := range DefaultTemplates() {
		tmpl := &ReportTemplate{UserID: userID, Config: *cfg, Type: string(cfg.Visualization)}
		if _, err := s.repo.SaveTemplate(ctx, tmpl); err != nil {
			return created, fmt.Errorf("failed to seed template %q: %w", cfg.Name, err)
		}
		created++
	}

	s.logger.Info("Seeded default report templates", zap.Int("count", created), zap.Int64("user_id", userID))
	return created, nil
}

// History returns the history of a template
func (s *Service) History(ctx context.Context, reportID int64) ([]*HistoryEntry, error) {
	return s.repo.ListHistory(ctx, reportID)
}

// =====================================================
// Rendering
// =====================================================

// Preview normalizes cfg in place and renders its HTML preview
func (s *Service) Preview(ctx context.Context, cfg *ReportConfiguration) (string, error) {
	if err := cfg.Normalize(s.designer); err != nil {
		return "", err
	}
	return s.pipeline.Preview(ctx, cfg)
}

// Export encodes cfg in memory. reportID only names the artifact.
func (s *Service) Export(ctx context.Context, reportID int64, cfg *ReportConfiguration, format export.Format) (*Artifact, error) {
	cfg = cfg.Clone()
	if err := cfg.Normalize(s.designer); err != nil {
		return nil, err
	}

	name := ArtifactName(reportID, format)
	var buf bytes.Buffer
	if err := s.pipeline.Export(ctx, cfg, format, &buf, name); err != nil {
		return nil, err
	}
	return &Artifact{
		Name:        name,
		Format:      format,
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// ExportTemplate exports a stored template and records the export
func (s *Service) ExportTemplate(ctx context.Context, userID, id int64, format export.Format) (*Artifact, error) {
	tmpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	artifact, err := s.Export(ctx, tmpl.ID, &tmpl.Config, format)
	if err != nil {
		s.logger.Error("Failed to export report",
			zap.Int64("report_id", id),
			zap.String("format", string(format)),
			zap.Error(err))
		return nil, err
	}

	if err := s.repo.AddHistory(ctx, &HistoryEntry{ReportID: id, UserID: userID, Action: ExportedAction(format)}); err != nil {
		s.logger.Warn("Failed to record export history", zap.Int64("report_id", id), zap.Error(err))
	}
	s.audit.Record(ctx, userID, fmt.Sprintf("Exported report %d as %s", id, format))

	s.logger.Info("Report exported",
		zap.Int64("report_id", id),
		zap.String("format", string(format)),
		zap.Int("bytes", len(artifact.Data)))
	return artifact, nil
}

// SaveConfiguration stores cfg as a new template (reportID 0) or over an
// existing one, through a session.
func (s *Service) SaveConfiguration(ctx context.Context, userID, reportID int64, cfg *ReportConfiguration) (int64, error) {
	session := s.NewSession(userID)
	if reportID > 0 {
		var err error
		if session, err = s.OpenSession(ctx, userID, reportID); err != nil {
			return 0, err
		}
	}
	if err := session.Apply(cfg); err != nil {
		return 0, err
	}
	return session.Save(ctx)
}
