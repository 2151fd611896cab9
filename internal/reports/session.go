package reports

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/workflows"
)

// Session states
const (
	StateNew       = "new"
	StateEditing   = "editing"
	StateSaved     = "saved"
	StateDiscarded = "discarded"
)

// TemplateStore is the storage a session needs
type TemplateStore interface {
	GetTemplate(ctx context.Context, id int64) (*ReportTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *ReportTemplate) (int64, error)
}

// Previewer renders preview markup for a normalized configuration
type Previewer interface {
	Preview(ctx context.Context, cfg *ReportConfiguration) (string, error)
}

// Session edits one configuration from open to save or discard. It is not
// safe for concurrent use.
type Session struct {
	reportID      int64
	userID        int64
	config        *ReportConfiguration
	history       History
	previewEdited bool
	state         string

	machine  *workflows.StateMachine
	store    TemplateStore
	preview  Previewer
	designer *builder.ReportDesigner
	audit    audit.Recorder
	logger   *zap.Logger
}

type sessionDeps struct {
	store    TemplateStore
	preview  Previewer
	designer *builder.ReportDesigner
	audit    audit.Recorder
	logger   *zap.Logger
}

func newSession(deps sessionDeps, userID, reportID int64, cfg *ReportConfiguration) *Session {
	state := StateNew
	if reportID > 0 {
		state = StateSaved
	}
	return &Session{
		reportID: reportID,
		userID:   userID,
		config:   cfg,
		state:    state,
		machine:  workflows.NewReportSessionMachine(),
		store:    deps.store,
		preview:  deps.preview,
		designer: deps.designer,
		audit:    deps.audit,
		logger:   deps.logger,
	}
}

// ID returns the persisted id, or 0 for a report never saved
func (s *Session) ID() int64 { return s.reportID }

// State returns the lifecycle state
func (s *Session) State() string { return s.state }

// Config returns a copy of the configuration being edited
func (s *Session) Config() *ReportConfiguration { return s.config.Clone() }

// Fields returns the current field selection
func (s *Session) Fields() []string { return append([]string{}, s.config.Fields...) }

func (s *Session) transition(to string) error {
	if s.state == StateDiscarded {
		return ErrSessionDiscarded
	}
	if err := s.machine.Transition(s.state, to); err != nil {
		return err
	}
	s.state = to
	return nil
}

// SetName renames the report
func (s *Session) SetName(name string) error {
	if err := s.transition(StateEditing); err != nil {
		return err
	}
	s.config.Name = name
	return nil
}

// SetFilters replaces the filters
func (s *Session) SetFilters(filters Filters) error {
	if err := s.transition(StateEditing); err != nil {
		return err
	}
	s.config.Filters = filters
	return nil
}

// SetVisualization changes the chart kind
func (s *Session) SetVisualization(kind VisualizationKind) error {
	if s.state == StateDiscarded {
		return ErrSessionDiscarded
	}
	k, err := ParseVisualization(string(kind))
	if err != nil {
		return newStageError(StageConfiguration, err)
	}
	if err := s.transition(StateEditing); err != nil {
		return err
	}
	s.config.Visualization = k
	return nil
}

// SetStyle replaces font and colors
func (s *Session) SetStyle(style Style) error {
	if err := s.transition(StateEditing); err != nil {
		return err
	}
	s.config.Style = style
	return nil
}

// AddField appends a field. Adding a selected field does nothing and
// returns false.
func (s *Session) AddField(field string) (bool, error) {
	if s.state == StateDiscarded {
		return false, ErrSessionDiscarded
	}
	ds, err := s.designer.GetDataSource(builder.InventorySource)
	if err != nil {
		return false, newStageError(StageConfiguration, err)
	}
	if !ds.HasField(field) {
		return false, newStageError(StageConfiguration, fmt.Errorf("field %q is not selectable", field))
	}
	if indexOf(s.config.Fields, field) >= 0 {
		return false, nil
	}
	if err := s.transition(StateEditing); err != nil {
		return false, err
	}
	s.config.Fields = s.history.Do(s.config.Fields, Command{
		Kind:  CommandAddField,
		Field: field,
		Index: len(s.config.Fields),
	})
	return true, nil
}

// RemoveField removes a selected field. Removing an unselected field does
// nothing and returns false.
func (s *Session) RemoveField(field string) (bool, error) {
	if s.state == StateDiscarded {
		return false, ErrSessionDiscarded
	}
	i := indexOf(s.config.Fields, field)
	if i < 0 {
		return false, nil
	}
	if err := s.transition(StateEditing); err != nil {
		return false, err
	}
	s.config.Fields = s.history.Do(s.config.Fields, Command{
		Kind:  CommandRemoveField,
		Field: field,
		Index: i,
	})
	return true, nil
}

// Undo reverts the last field edit
func (s *Session) Undo() (bool, error) {
	if s.state == StateDiscarded {
		return false, ErrSessionDiscarded
	}
	fields, ok := s.history.Undo(s.config.Fields)
	if !ok {
		return false, nil
	}
	s.config.Fields = fields
	return true, s.transition(StateEditing)
}

// Redo reapplies the last undone field edit
func (s *Session) Redo() (bool, error) {
	if s.state == StateDiscarded {
		return false, ErrSessionDiscarded
	}
	fields, ok := s.history.Redo(s.config.Fields)
	if !ok {
		return false, nil
	}
	s.config.Fields = fields
	return true, s.transition(StateEditing)
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// RefreshPreview regenerates the preview markup from current data. It
// never writes to storage.
func (s *Session) RefreshPreview(ctx context.Context) (string, error) {
	if s.state == StateDiscarded {
		return "", ErrSessionDiscarded
	}
	cfg := s.config.Clone()
	if err := cfg.Normalize(s.designer); err != nil {
		return "", err
	}
	html, err := s.preview.Preview(ctx, cfg)
	if err != nil {
		return "", err
	}
	if html != s.config.PreviewHTML {
		if err := s.transition(StateEditing); err != nil {
			return "", err
		}
	}
	s.config.PreviewHTML = html
	s.previewEdited = false
	return html, nil
}

// EditPreview stores markup edited by hand. It is saved as is.
func (s *Session) EditPreview(html string) error {
	if err := s.transition(StateEditing); err != nil {
		return err
	}
	s.config.PreviewHTML = html
	s.previewEdited = true
	return nil
}

// PreviewEdited reports whether the preview holds a manual edit
func (s *Session) PreviewEdited() bool { return s.previewEdited }

// Save inserts or updates the template together with its history entry
// in one transaction and returns the id.
func (s *Session) Save(ctx context.Context) (int64, error) {
	if s.state == StateDiscarded {
		return 0, ErrSessionDiscarded
	}

	cfg := s.config.Clone()
	if err := cfg.Normalize(s.designer); err != nil {
		return 0, err
	}

	tmpl := &ReportTemplate{
		ID:     s.reportID,
		UserID: s.userID,
		Config: *cfg,
		Type:   string(cfg.Visualization),
	}
	id, err := s.store.SaveTemplate(ctx, tmpl)
	if err != nil {
		s.logger.Error("Failed to save report",
			zap.Int64("report_id", s.reportID),
			zap.Int64("user_id", s.userID),
			zap.Error(err))
		return 0, newStageError(StagePersistence, err)
	}

	s.reportID = id
	s.config = cfg
	s.state = StateSaved
	s.audit.Record(ctx, s.userID, "Saved report "+cfg.Name)

	s.logger.Info("Report saved",
		zap.Int64("report_id", id),
		zap.Int64("user_id", s.userID),
		zap.String("viz_type", tmpl.Type))
	return id, nil
}

// Discard drops every unsaved edit. The session cannot be used afterwards.
func (s *Session) Discard() error {
	if err := s.transition(StateDiscarded); err != nil {
		return err
	}
	s.history.Clear()
	s.previewEdited = false
	return nil
}

func indexOf(fields []string, field string) int {
	for i, f := range fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Apply replaces the whole configuration, as an editor submitting its form
// does. The field history is dropped, since its commands describe the
// replaced selection.
func (s *Session) Apply(cfg *ReportConfiguration) error {
	if err := s.transition(StateEditing); err != nil {
		return err
	}
	next := cfg.Clone()
	if next.PreviewHTML == "" {
		next.PreviewHTML = s.config.PreviewHTML
	} else if next.PreviewHTML != s.config.PreviewHTML {
		s.previewEdited = true
	}
	s.config = next
	s.history.Clear()
	return nil
}
