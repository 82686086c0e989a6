package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// ForbiddenFieldsError is returned when an update touches fields that are
// locked on a system provider record.
type ForbiddenFieldsError struct {
	ResourceID string
	Fields     []string
}

// Error implements the error interface
func (e *ForbiddenFieldsError) Error() string {
	msg := "system provider " + e.ResourceID + " only allows toggling enabled; locked fields:"
	for i, f := range e.Fields {
		if i > 0 {
			msg += ","
		}
		msg += " " + f
	}
	return msg
}

// StatusCode implements the HTTPError interface
func (e *ForbiddenFieldsError) StatusCode() int {
	return http.StatusForbidden
}

// Is allows errors.Is() to match against ErrForbidden
func (e *ForbiddenFieldsError) Is(target error) bool {
	return target == ErrForbidden
}
