package tracking

import (
	"errors"
	"fmt"
)

const codeResourceDoesNotExist = "RESOURCE_DOES_NOT_EXIST"

var (
	ErrExperimentDeleted      = errors.New("experiment is deleted")
	ErrUnsupportedArtifactURI = errors.New("unsupported artifact uri")
)

// APIError is an error response of the tracking server.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("tracking server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tracking server returned %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

// IsNotFound reports whether err is a RESOURCE_DOES_NOT_EXIST response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == codeResourceDoesNotExist
}
