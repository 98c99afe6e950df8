package weather

import (
	"errors"
	"fmt"
)

// ErrorType is the closed classification of everything that can go wrong in
// the pipeline. Callers branch on the type, not on dynamic error types.
type ErrorType string

const (
	// ErrorTypeRequest marks a transport or API failure: the call itself failed.
	ErrorTypeRequest ErrorType = "RequestError"
	// ErrorTypeValidation marks an empty or structurally invalid response:
	// the call succeeded but the content is unusable.
	ErrorTypeValidation ErrorType = "ValidationError"
	// ErrorTypePersistence marks a storage write that failed and was rolled back.
	ErrorTypePersistence ErrorType = "PersistenceError"
	// ErrorTypeTransform marks a bronze-to-silver statement failure at the
	// storage layer.
	ErrorTypeTransform ErrorType = "TransformError"
	// ErrorTypeDataQuality marks a post-transform validation failure.
	ErrorTypeDataQuality ErrorType = "DataQualityError"
	// ErrorTypeIncompleteBackfill marks verification attempted against a
	// backfill that did not complete.
	ErrorTypeIncompleteBackfill ErrorType = "IncompleteBackfillError"
)

// Error is the pipeline's tagged error value.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int // optional HTTP status, 0 when not applicable
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewRequestError builds a transport/API failure.
func NewRequestError(message string, statusCode int, err error) *Error {
	return &Error{Type: ErrorTypeRequest, Message: message, StatusCode: statusCode, Err: err}
}

// NewValidationError builds an invalid-content failure.
func NewValidationError(message string, err error) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message, Err: err}
}

// NewPersistenceError builds a rolled-back storage write failure.
func NewPersistenceError(message string, err error) *Error {
	return &Error{Type: ErrorTypePersistence, Message: message, Err: err}
}

// NewTransformError builds a transform statement failure.
func NewTransformError(message string, err error) *Error {
	return &Error{Type: ErrorTypeTransform, Message: message, Err: err}
}

// NewDataQualityError builds a post-transform validation failure.
func NewDataQualityError(message string) *Error {
	return &Error{Type: ErrorTypeDataQuality, Message: message}
}

// NewIncompleteBackfillError builds a verification-on-incomplete-run failure.
func NewIncompleteBackfillError(message string) *Error {
	return &Error{Type: ErrorTypeIncompleteBackfill, Message: message}
}

// Classify returns the taxonomy type of err. Errors from outside the
// pipeline (raw transport errors and the like) classify as RequestError.
func Classify(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeRequest
}

// StatusCodeOf returns the HTTP status attached to err, or nil when there
// is none. The error recorder stores this as a nullable column.
func StatusCodeOf(err error) *int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		code := e.StatusCode
		return &code
	}
	return nil
}
