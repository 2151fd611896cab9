package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSession_StartsNewWithEditorDefaults(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)

	assert.Equal(t, StateNew, s.State())
	assert.Equal(t, int64(0), s.ID())
	assert.Equal(t, NewDefaultConfiguration(), s.Config())
}

func TestSession_AddFieldAndUndo(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)
	before := s.Fields()

	require.NoError(t, s.SetName("Stock"))
	_, err := s.RemoveField("category")
	require.NoError(t, err)
	afterRemove := s.Fields()

	added, err := s.AddField("quantity")
	require.NoError(t, err)
	assert.False(t, added, "quantity is already selected")

	added, err = s.AddField("condition")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"name", "quantity", "condition"}, s.Fields())

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, afterRemove, s.Fields())

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, before, s.Fields())
	assert.Equal(t, StateEditing, s.State())

	redone, err := s.Redo()
	require.NoError(t, err)
	assert.True(t, redone)
	assert.Equal(t, afterRemove, s.Fields())
}

func TestSession_ApplyClearsFieldHistory(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)

	_, err := s.RemoveField("category")
	require.NoError(t, err)
	require.True(t, s.CanUndo())

	cfg := NewDefaultConfiguration()
	cfg.Fields = []string{"id", "name"}
	require.NoError(t, s.Apply(cfg))
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.False(t, undone)
	assert.Equal(t, []string{"id", "name"}, s.Fields())
}

func TestSession_UndoAfterAddQuantityRestoresPriorSelection(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)
	_, err := s.RemoveField("quantity")
	require.NoError(t, err)
	_, err = s.AddField("id")
	require.NoError(t, err)
	prior := s.Fields()

	added, err := s.AddField("quantity")
	require.NoError(t, err)
	require.True(t, added)
	_, err = s.Undo()
	require.NoError(t, err)

	assert.Equal(t, prior, s.Fields())
}

func TestSession_DuplicateAddPushesNoCommand(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)

	added, err := s.AddField("name")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, s.CanUndo())
	assert.Equal(t, StateNew, s.State())

	removed, err := s.RemoveField("service_life")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.False(t, s.CanUndo())
}

func TestSession_AddUnknownFieldIsConfigurationError(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)

	_, err := s.AddField("password_hash")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotContains(t, s.Fields(), "password_hash")
}

func TestSession_SetVisualizationRejectsUnknownKind(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQueryBuilder), new(MockRecorder))
	s := svc.NewSession(1)

	assert.ErrorIs(t, s.SetVisualization("radar"), ErrConfiguration)
	assert.Equal(t, StateNew, s.State())
	require.NoError(t, s.SetVisualization(VisualizationBar))
	assert.Equal(t, VisualizationBar, s.Config().Visualization)
}

func TestSession_RefreshPreviewIsIdempotent(t *testing.T) {
	query := new(MockQueryBuilder)
	query.On("Fetch", mock.Anything, mock.Anything).Return(sampleRows(), nil)
	svc := newTestService(new(MockRepository), query, new(MockRecorder))

	s := svc.NewSession(1)
	require.NoError(t, s.SetVisualization(VisualizationBar))

	first, err := s.RefreshPreview(context.Background())
	require.NoError(t, err)
	second, err := s.RefreshPreview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "<h1>New report</h1>")
	assert.Contains(t, first, "data:image/png;base64,")
	assert.Equal(t, first, s.Config().PreviewHTML)
	query.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestSession_RefreshPreviewQueryFailure(t *testing.T) {
	query := new(MockQueryBuilder)
	query.On("Fetch", mock.Anything, mock.Anything).
		Return(nil, newStageError(StageQuery, errors.New("database is locked")))
	svc := newTestService(new(MockRepository), query, new(MockRecorder))

	s := svc.NewSession(1)
	_, err := s.RefreshPreview(context.Background())
	assert.ErrorIs(t, err, ErrQuery)
	assert.Equal(t, DefaultPreviewHTML, s.Config().PreviewHTML)
}

func TestSession_SaveInsertsThenUpdates(t *testing.T) {
	repo := new(MockRepository)
	recorder := new(MockRecorder)
	svc := newTestService(repo, new(MockQueryBuilder), recorder)
	ctx := context.Background()

	repo.On("SaveTemplate", ctx, mock.MatchedBy(func(tmpl *ReportTemplate) bool {
		return tmpl.ID == 0
	})).Return(int64(11), nil).Once()
	repo.On("SaveTemplate", ctx, mock.MatchedBy(func(tmpl *ReportTemplate) bool {
		return tmpl.ID == 11 && tmpl.Type == "pie"
	})).Return(int64(11), nil).Once()
	recorder.On("Record", ctx, int64(3), "Saved report New report").Return().Twice()

	s := svc.NewSession(3)
	id, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, StateSaved, s.State())

	require.NoError(t, s.SetVisualization(VisualizationPie))
	assert.Equal(t, StateEditing, s.State())
	id, err = s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	repo.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestSession_SaveKeepsManualPreviewEdit(t *testing.T) {
	repo := new(MockRepository)
	recorder := new(MockRecorder)
	svc := newTestService(repo, new(MockQueryBuilder), recorder)
	ctx := context.Background()

	var saved *ReportTemplate
	repo.On("SaveTemplate", ctx, mock.AnythingOfType("*reports.ReportTemplate")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*ReportTemplate) }).
		Return(int64(5), nil)
	recorder.On("Record", ctx, int64(1), mock.Anything).Return()

	s := svc.NewSession(1)
	require.NoError(t, s.EditPreview("<p>edited by hand</p>"))
	assert.True(t, s.PreviewEdited())
	_, err := s.Save(ctx)
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, "<p>edited by hand</p>", saved.Config.PreviewHTML)
}

func TestSession_SaveFailureIsPersistenceError(t *testing.T) {
	repo := new(MockRepository)
	recorder := new(MockRecorder)
	svc := newTestService(repo, new(MockQueryBuilder), recorder)
	ctx := context.Background()

	repo.On("SaveTemplate", ctx, mock.Anything).Return(int64(0), errors.New("constraint failed"))

	s := svc.NewSession(1)
	_, err := s.Save(ctx)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, StateNew, s.State())
	assert.Equal(t, int64(0), s.ID())
	recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_SaveRejectsInvalidDates(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockQueryBuilder), new(MockRecorder))

	s := svc.NewSession(1)
	require.NoError(t, s.SetFilters(Filters{DateTo: strPtr("tomorrow")}))
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrConfiguration)
	repo.AssertNotCalled(t, "SaveTemplate", mock.Anything, mock.Anything)
}

func TestSession_Discard(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockQueryBuilder), new(MockRecorder))

	s := svc.NewSession(1)
	_, err := s.AddField("id")
	require.NoError(t, err)
	require.NoError(t, s.Discard())
	assert.Equal(t, StateDiscarded, s.State())
	assert.False(t, s.CanUndo())

	_, err = s.AddField("condition")
	assert.ErrorIs(t, err, ErrSessionDiscarded)
	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrSessionDiscarded)
	_, err = s.RefreshPreview(context.Background())
	assert.ErrorIs(t, err, ErrSessionDiscarded)
	assert.ErrorIs(t, s.SetName("x"), ErrSessionDiscarded)
	assert.ErrorIs(t, s.Discard(), ErrSessionDiscarded)
	repo.AssertNotCalled(t, "SaveTemplate", mock.Anything, mock.Anything)
}

func TestService_OpenSession(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockQueryBuilder), new(MockRecorder))
	ctx := context.Background()

	stored := &ReportTemplate{ID: 9, UserID: 1, Config: *NewDefaultConfiguration(), Type: "table"}
	repo.On("GetTemplate", ctx, int64(9)).Return(stored, nil)
	repo.On("GetTemplate", ctx, int64(10)).Return(nil, ErrNotFound)

	s, err := svc.OpenSession(ctx, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), s.ID())
	assert.Equal(t, StateSaved, s.State())

	// edits do not leak into the stored value
	_, err = s.RemoveField("name")
	require.NoError(t, err)
	assert.Contains(t, stored.Config.Fields, "name")

	_, err = svc.OpenSession(ctx, 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
