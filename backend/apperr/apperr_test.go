package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("upsert: %w", Network("backend unreachable", errors.New("dial tcp")))

	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.True(t, Retryable(err))
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "upsert: backend unreachable: dial tcp", err.Error())
}

func TestConflictIsNotRetryable(t *testing.T) {
	err := Conflict("lesson already completed")

	assert.ErrorIs(t, err, ErrConflictIgnored)
	assert.False(t, Retryable(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "not_found", ErrNotFound.Error())
}
