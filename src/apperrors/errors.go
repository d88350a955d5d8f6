package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedBroker    = errors.New("unsupported broker")
	ErrBrokerNotImplemented = errors.New("broker extraction rule not implemented")
	ErrDocumentUnreadable   = errors.New("document unreadable")

	// ErrExtractionEmpty is logged when a rule matches nothing. It is never returned to callers.
	ErrExtractionEmpty = errors.New("no operations extracted")

	ErrStorage        = errors.New("storage failure")
	ErrDuplicateAsset = fmt.Errorf("%w: duplicate asset", ErrStorage)
	ErrAssetNotFound  = errors.New("asset not found")

	ErrValidationFailed = errors.New("validation failed")
)

// Storage wraps a driver error so that both ErrStorage and the cause match with errors.Is.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidationFailed, e.Msg)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidationFailed, e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}
