package pipeline

import (
	"errors"
	"net/http"

	"github.com/ledgerline/ledgerline/internal/sessions"
)

// Domain errors for pipeline operations.
var (
	ErrMissingPrerequisite = errors.New("required stage output missing")
	ErrStageExecution      = errors.New("stage execution failed")
	ErrStageTimeout        = errors.New("stage timed out")
	ErrRunCancelled        = errors.New("run cancelled")
	ErrSessionRunning      = errors.New("session is currently running")
	ErrNotRunning          = errors.New("no run in flight for session")
	ErrSessionComplete     = errors.New("session already completed")
	ErrNoInvoice           = errors.New("an invoice document is required")

	// ErrSkipStage signals from inside a stage that its inputs do not apply
	// to this session. The engine records the stage as skipped and continues.
	ErrSkipStage = errors.New("stage not applicable")
)

// MapHTTPStatus maps pipeline domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionRunning), errors.Is(err, ErrSessionComplete),
		errors.Is(err, ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, ErrNoInvoice):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingPrerequisite):
		return http.StatusConflict
	default:
		return sessions.MapHTTPStatus(err)
	}
}
