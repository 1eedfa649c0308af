package model

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrAlreadyExists       = errors.New("already exists")
	ErrDuplicateSubmission = errors.New("quiz already submitted")
	ErrQuizClosed          = errors.New("quiz is closed")
	ErrInvalidQuiz         = errors.New("quiz has no questions")
)

// FieldError is used to indicate an error with a specific request field.
// Tag names the failed rule, Param its argument.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

// ValidationError reports a malformed request. Nothing is persisted when it
// is returned.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error {
	return err.Err
}
