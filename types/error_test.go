package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrRouterUnavailable, "classifier backend down").
		WithCause(cause).
		WithRetryable(true)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ROUTER_UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrRouterUnavailable, GetErrorCode(err))
}

func TestError_PlainErrorDefaults(t *testing.T) {
	err := fmt.Errorf("plain")
	assert.False(t, IsRetryable(err))
	assert.Equal(t, ErrorCode(""), GetErrorCode(err))
}

func TestError_AgentAttribution(t *testing.T) {
	err := NewError(ErrToolNotAllowed, "tool search_web not allowed").
		WithAgent("SWOT Analysis Agent")
	assert.Equal(t, "SWOT Analysis Agent", err.Agent)
	assert.False(t, err.Retryable)
}
