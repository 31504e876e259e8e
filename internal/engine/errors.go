package engine

import (
	"context"
	"errors"
	"fmt"
)

// EffectErrorCode categorizes effect failures.
type EffectErrorCode string

const (
	// ErrCodeEffectFailed indicates the performer returned an error.
	ErrCodeEffectFailed EffectErrorCode = "EFFECT_FAILED"

	// ErrCodeEffectTimeout indicates the effect exceeded its timeout.
	ErrCodeEffectTimeout EffectErrorCode = "EFFECT_TIMEOUT"

	// ErrCodeEffectCancelled indicates the engine was closed first.
	ErrCodeEffectCancelled EffectErrorCode = "EFFECT_CANCELLED"

	// ErrCodeEffectPanic indicates the performer panicked.
	ErrCodeEffectPanic EffectErrorCode = "EFFECT_PANIC"

	// ErrCodeBadResult indicates the result did not fit the completion.
	ErrCodeBadResult EffectErrorCode = "BAD_RESULT"
)

// EffectError describes why an effect produced a failure completion.
// Its message is what ends up in the completion's error field.
type EffectError struct {
	Code EffectErrorCode
	Op   string
	Key  string
	Err  error
}

// Error implements the error interface.
func (e *EffectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (op=%s, key=%s)", e.Code, e.Err, e.Op, e.Key)
	}
	return fmt.Sprintf("%s (op=%s, key=%s)", e.Code, e.Op, e.Key)
}

// Unwrap returns the underlying performer error.
func (e *EffectError) Unwrap() error {
	return e.Err
}

// IsEffectError returns true if err is or wraps an EffectError.
func IsEffectError(err error) bool {
	var ee *EffectError
	return errors.As(err, &ee)
}

// classify maps a performer error onto a code.
func classify(err error) EffectErrorCode {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeEffectTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeEffectCancelled
	default:
		return ErrCodeEffectFailed
	}
}
