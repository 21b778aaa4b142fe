package dnsdiag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrKind_Recoverable(t *testing.T) {
	recoverable := []ErrKind{ErrTimeout, ErrTransientNetwork, ErrInvalidResponse}
	fatal := []ErrKind{ErrInputInvalid, ErrResolutionFailed, ErrAddressFamilyConflict, ErrPermissionDenied, ErrUnsupportedTransport, ErrConnectionFailed}

	for _, k := range recoverable {
		assert.True(t, k.Recoverable(), "%v should be recoverable", k)
	}
	for _, k := range fatal {
		assert.False(t, k.Recoverable(), "%v should not be recoverable", k)
	}
}

func TestErrKind_ExitCode(t *testing.T) {
	assert.Equal(t, 127, ErrUnsupportedTransport.ExitCode())
	assert.Equal(t, 1, ErrTimeout.ExitCode())
	assert.Equal(t, 1, ErrInputInvalid.ExitCode())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrTimeout, "probe failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestError_MessageFormat(t *testing.T) {
	err := NewError(ErrInputInvalid, "bad qname")
	assert.Contains(t, err.Error(), "bad qname")
	assert.Contains(t, err.Error(), "input invalid")
}
