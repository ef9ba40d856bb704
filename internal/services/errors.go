package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructural marks malformed keys and paths. Never recovered per record.
	ErrStructural = errors.New("structural error")
	// ErrFormat marks a bad record (field count, non-numeric field, broken markup).
	ErrFormat = errors.New("format error")
	// ErrSizeMismatch marks a raw frame whose length does not match its resolution.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrEmptyInput marks a check that had nothing to check.
	ErrEmptyInput    = errors.New("empty input")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrBusy          = errors.New("resource busy")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category maps an error to the short name recorded in the run ledger and
// shown by the CLI.
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStructural):
		return "structural"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrSizeMismatch):
		return "size_mismatch"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

// Recoverable reports whether a batch may skip the failing unit and continue.
// Structural and configuration failures stop the batch.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrFormat), errors.Is(err, ErrSizeMismatch), errors.Is(err, ErrEmptyInput):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
