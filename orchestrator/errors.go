package orchestrator

import (
	"errors"
	"fmt"

	"contentpilot/types"
)

var (
	// ErrFatalStage marks a stage failure that ends the job
	ErrFatalStage = errors.New("fatal stage failure")
	// ErrDegradedStage marks a stage failure the pipeline continued past
	ErrDegradedStage = errors.New("degraded stage failure")
)

// FailureKind classifies how a stage failure affects the job
type FailureKind string

const (
	KindFatal    FailureKind = "fatal"
	KindDegraded FailureKind = "degraded"
)

// StageError is a classified failure of one pipeline stage
type StageError struct {
	Stage types.Stage
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err)
}

// Unwrap exposes both the classification sentinel and the cause
func (e *StageError) Unwrap() []error {
	sentinel := ErrDegradedStage
	if e.Kind == KindFatal {
		sentinel = ErrFatalStage
	}
	return []error{sentinel, e.Err}
}

func fatal(stage types.Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindFatal, Err: err}
}

func degraded(stage types.Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindDegraded, Err: err}
}
