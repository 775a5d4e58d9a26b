package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfUnwrapsChains(t *testing.T) {
	base := NotFound("task not found")
	wrapped := fmt.Errorf("portal: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeUpstream, "query tasks failed").WithMeta("collection", "tasks")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upstream_failure: query tasks failed: connection reset", err.Error())
	assert.Equal(t, "tasks", err.Meta["collection"])
}

func TestWrapNilBehavesLikeNew(t *testing.T) {
	err := Wrap(nil, CodeInvalid, "name is required")
	assert.Nil(t, err.Err)
	assert.Equal(t, "invalid: name is required", err.Error())
}
