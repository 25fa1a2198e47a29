package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return NewValidationError(errors.New(msg), FieldError{Field: field, Error: msg})
}

type notFound struct {
	resource string
}

// NewNotFoundError returns an error reporting that the given resource does not exist.
func NewNotFoundError(resource string) error {
	return &notFound{resource: resource}
}

func (nf notFound) Error() string {
	return nf.resource + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*notFound)
	return ok
}

type permissionDenied struct {
	message string
}

// NewPermissionError returns an authorization error. msg is shown to the user.
func NewPermissionError(msg string) error {
	return &permissionDenied{message: msg}
}

func (pd permissionDenied) Error() string {
	return pd.message
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*permissionDenied)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
