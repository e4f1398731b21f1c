package analysis

import (
	"errors"
	"fmt"

	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

var (
	// ErrEmptyInput is returned for text that is empty after trimming.
	ErrEmptyInput = textnorm.ErrEmptyInput

	// ErrCorpusUnavailable is returned when the corpus failed and the engine
	// is not configured to degrade.
	ErrCorpusUnavailable = corpus.ErrUnavailable

	// ErrCancelled is returned when the caller's context ended before the
	// run completed. It wraps the context error.
	ErrCancelled = errors.New("analysis cancelled")

	ErrInvalidCheckType = errors.New("invalid check type")
)

// FailedError is an internal fault in one stage of a run.
type FailedError struct {
	Stage string
	Err   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("analysis failed in %s: %v", e.Stage, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }
