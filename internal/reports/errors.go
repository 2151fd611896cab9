package reports

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step that failed
type Stage string

const (
	StageConfiguration Stage = "configuration"
	StageQuery         Stage = "query"
	StageRender        Stage = "render"
	StageExport        Stage = "export"
	StagePersistence   Stage = "persistence"
)

// Sentinels matched with errors.Is against a *StageError
var (
	ErrConfiguration = errors.New("configuration error")
	ErrQuery         = errors.New("query failure")
	ErrRender        = errors.New("render failure")
	ErrExport        = errors.New("export failure")
	ErrPersistence   = errors.New("persistence failure")

	ErrNotFound         = errors.New("report not found")
	ErrSessionDiscarded = errors.New("session discarded")
)

var stageSentinels = map[Stage]error{
	StageConfiguration: ErrConfiguration,
	StageQuery:         ErrQuery,
	StageRender:        ErrRender,
	StageExport:        ErrExport,
	StagePersistence:   ErrPersistence,
}

// StageError reports which stage of the report pipeline failed. Export
// failures also name the format and destination.
type StageError struct {
	Stage       Stage
	Format      string
	Destination string
	Err         error
}

func newStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func newExportError(format, destination string, err error) *StageError {
	return &StageError{Stage: StageExport, Format: format, Destination: destination, Err: err}
}

func (e *StageError) Error() string {
	msg := stageSentinels[e.Stage].Error()
	if e.Format != "" || e.Destination != "" {
		msg = fmt.Sprintf("%s (format=%s, destination=%s)", msg, e.Format, e.Destination)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the stage sentinel and the cause
func (e *StageError) Unwrap() []error {
	return []error{stageSentinels[e.Stage], e.Err}
}

// StageOf returns the failing stage, or "" when err is not a stage error
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
