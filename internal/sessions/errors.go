package sessions

import (
	"errors"
	"net/http"
)

// Domain errors for session operations.
var (
	ErrNotFound       = errors.New("session not found")
	ErrRunNotComplete = errors.New("run not complete")
	ErrStageConflict  = errors.New("stage output already committed")
	ErrNoInputs       = errors.New("at least one input file required")
)

// MapHTTPStatus maps session domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrRunNotComplete) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNoInputs) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
