package server

import (
	"fmt"
	"net/http"
)

// ErrRunInProgress indicates a refresh was requested while one is running
type ErrRunInProgress struct {
	RunID string
}

func (e *ErrRunInProgress) Error() string {
	return fmt.Sprintf("a scraping run is already in progress: %s", e.RunID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrRunInProgress:
		return http.StatusConflict
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
