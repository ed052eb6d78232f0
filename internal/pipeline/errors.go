package pipeline

import (
	"fmt"

	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// ValidationError reports a run request rejected before any stage executed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RetrievalError reports a failed retrieval stage. The wrapped error carries
// the underlying store failure.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", models.StageRetrieval, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Stage returns the stage name the failure occurred in.
func (e *RetrievalError) Stage() string { return models.StageRetrieval }

// CompletionError reports a failed language-model call, tagged with the
// stage that issued it.
type CompletionError struct {
	StageName string
	Err       error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.StageName, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Stage returns the stage name the failure occurred in.
func (e *CompletionError) Stage() string { return e.StageName }
