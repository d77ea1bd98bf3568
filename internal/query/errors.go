package query

import (
	"errors"
	"fmt"
)

// ErrUsage marks a caller-supplied request that can never succeed. Usage
// errors are detected before any statement reaches storage.
var ErrUsage = errors.New("invalid query")

type UsageError struct {
	Field  string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrUsage, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrUsage, e.Field, e.Reason)
}

func (e *UsageError) Unwrap() error { return ErrUsage }

func usagef(field, format string, args ...any) error {
	return &UsageError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
