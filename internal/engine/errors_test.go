package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectErrorMessage(t *testing.T) {
	err := &EffectError{Code: ErrCodeEffectFailed, Op: "stuff.load", Key: "k-1", Err: errors.New("boom")}
	assert.Equal(t, "EFFECT_FAILED: boom (op=stuff.load, key=k-1)", err.Error())

	bare := &EffectError{Code: ErrCodeEffectPanic, Op: "counter.inc", Key: "k-2"}
	assert.Equal(t, "EFFECT_PANIC (op=counter.inc, key=k-2)", bare.Error())
}

func TestIsEffectErrorWrapped(t *testing.T) {
	inner := &EffectError{Code: ErrCodeEffectTimeout, Err: context.DeadlineExceeded}
	wrapped := fmt.Errorf("outer: %w", inner)

	assert.True(t, IsEffectError(wrapped))
	assert.False(t, IsEffectError(errors.New("plain")))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrCodeEffectTimeout, classify(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrCodeEffectCancelled, classify(context.Canceled))
	assert.Equal(t, ErrCodeEffectFailed, classify(errors.New("boom")))
}
