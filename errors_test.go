package csp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeError_Message(t *testing.T) {
	e := &TypeError{Message: "val must not be nil"}
	assert.Equal(t, "csp: val must not be nil", e.Error())
}

func TestTypeError_DefaultMessage(t *testing.T) {
	e := &TypeError{}
	assert.Equal(t, "csp: type error", e.Error())
}

func TestTypeError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := &TypeError{Cause: cause}
	assert.ErrorIs(t, e, cause)
}

func TestValueError_Message(t *testing.T) {
	e := &ValueError{Message: "n must be positive"}
	assert.Equal(t, "csp: n must be positive", e.Error())
}

func TestQueueKind_String(t *testing.T) {
	assert.Equal(t, "takes", TakesQueue.String())
	assert.Equal(t, "puts", PutsQueue.String())
}

func TestQueueSizeExceededError_Message(t *testing.T) {
	e := &QueueSizeExceededError{Kind: PutsQueue}
	assert.Contains(t, e.Error(), "puts")
	assert.Contains(t, e.Error(), "1024")
}

func TestWrapError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError("context", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "context")
}
