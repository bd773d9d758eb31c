package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	plain := New(ErrKindQueryFailed, "query exploded")
	assert.Equal(t, "[query_failed] query exploded", plain.Error())

	wrapped := Wrap(ErrKindConnectionFailed, "cannot reach host", errors.New("dial tcp: refused"))
	assert.Equal(t, "[connection_failed] cannot reach host: dial tcp: refused", wrapped.Error())
}

func TestUnwrapTraversesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrKindTimeout, "deadline", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsTimeout(fmt.Errorf("outer: %w", err)))
}

func TestUnsupportedBackend(t *testing.T) {
	err := UnsupportedBackend("mysql")

	assert.True(t, IsUnsupportedBackend(err))
	assert.False(t, IsMissingArgument(err))
	assert.Contains(t, err.Error(), "mysql")
	assert.Contains(t, err.Error(), "postgres")
}

func TestMissingArgument(t *testing.T) {
	err := MissingArgument([]string{"account_id", "email"})

	require.True(t, IsMissingArgument(err))
	assert.Equal(t, []string{"account_id", "email"}, MissingKeys(err))
	assert.Contains(t, err.Error(), "account_id, email")

	// Wrapped errors still expose the keys.
	outer := fmt.Errorf("invoking scope: %w", err)
	assert.Equal(t, []string{"account_id", "email"}, MissingKeys(outer))
}

func TestMissingKeysOnOtherKinds(t *testing.T) {
	assert.Nil(t, MissingKeys(New(ErrKindNotFound, "nope")))
	assert.Nil(t, MissingKeys(errors.New("plain")))
	assert.Nil(t, MissingKeys(nil))
}

func TestPredicatesOnForeignErrors(t *testing.T) {
	plain := errors.New("not ours")
	assert.False(t, IsNotFound(plain))
	assert.False(t, IsUnsupportedBackend(plain))
	assert.False(t, IsQueryFailed(plain))
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind ErrKind
		want string
	}{
		{ErrKindNotFound, "not_found"},
		{ErrKindConnectionFailed, "connection_failed"},
		{ErrKindTimeout, "timeout"},
		{ErrKindQueryFailed, "query_failed"},
		{ErrKindInvalidInput, "invalid_input"},
		{ErrKindUnsupportedBackend, "unsupported_backend"},
		{ErrKindMissingArgument, "missing_argument"},
		{ErrKindUnknown, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}
