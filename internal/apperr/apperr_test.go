package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesOnlyOwnKind(t *testing.T) {
	err := New("goals.rename", KindNotFound, "goal not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrServer))
	assert.False(t, errors.Is(err, ErrAuth))
}

func TestError_WrappedChain(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("refresh: %w", Wrap("gateway.list", KindNetwork, cause))

	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"classified with message", Validation("op", "title is required"), "title is required"},
		{"classified without message", Wrap("op", KindTimeout, errors.New("deadline")), "op: timeout: deadline"},
		{"plain", errors.New("boom"), "boom"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, "unknown error", KindUnknown.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
