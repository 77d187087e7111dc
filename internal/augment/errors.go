package augment

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code. Callers branch on codes with
// IsCode instead of matching message strings.
type Code string

const (
	// ErrCodeArityMismatch: the tensors handed to Forward or Inverse do
	// not line up with the pipeline's configured data keys.
	ErrCodeArityMismatch Code = "ARITY_MISMATCH"

	// ErrCodeShapeMismatch: a tensor's shape disagrees with the batch or
	// the layout its data key requires.
	ErrCodeShapeMismatch Code = "SHAPE_MISMATCH"

	// ErrCodeUnsupportedModality: a data key this pipeline was not
	// configured for, or one no transform can act on.
	ErrCodeUnsupportedModality Code = "UNSUPPORTED_MODALITY"

	// ErrCodeMissingInput: Forward was called without an image input.
	ErrCodeMissingInput Code = "MISSING_INPUT"

	// ErrCodeMissingParameters: Inverse or a replay was requested without
	// a recorded parameter ledger.
	ErrCodeMissingParameters Code = "MISSING_PARAMETERS"

	// ErrCodeNotSupported: the combination is permanently unsupported,
	// e.g. inverting a patch-level container.
	ErrCodeNotSupported Code = "NOT_SUPPORTED"

	// ErrCodeConfiguration: an invalid option set, unknown child module,
	// or malformed pipeline construction.
	ErrCodeConfiguration Code = "CONFIGURATION"

	// ErrCodeInternal: invariants broken inside the library itself.
	ErrCodeInternal Code = "INTERNAL"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error wrapping an existing error.
func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the error code, or the empty string for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
