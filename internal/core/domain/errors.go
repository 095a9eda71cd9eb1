package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFileValidation  = errors.New("file validation failed")
	ErrBatchValidation = errors.New("batch validation failed")
	ErrPDFProcessing   = errors.New("pdf processing failed")
	ErrTimeout         = errors.New("processing timed out")
	ErrCancelled       = errors.New("processing cancelled")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindLabel maps an error to the stable type string carried in error payloads.
func KindLabel(err error) string {
	switch {
	case IsKind(err, ErrTimeout):
		return "timeout_error"
	case IsKind(err, ErrCancelled):
		return "cancelled_error"
	case IsKind(err, ErrFileValidation):
		return "file_validation_error"
	case IsKind(err, ErrBatchValidation):
		return "batch_validation_error"
	case IsKind(err, ErrPDFProcessing):
		return "pdf_processing_error"
	case IsKind(err, ErrRateLimited):
		return "rate_limit_error"
	default:
		return "internal_error"
	}
}
