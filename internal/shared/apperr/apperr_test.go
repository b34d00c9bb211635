package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapsKind(t *testing.T) {
	err := InvalidState("fight.DeclareWinner", "fight", "f-1", "already completed")
	wrapped := fmt.Errorf("declare: %w", err)

	assert.ErrorIs(t, wrapped, ErrInvalidState)
	assert.Equal(t, ErrInvalidState, Kind(wrapped))
	assert.Equal(t, "fight.DeclareWinner: invalid_state (fight f-1): already completed", err.Error())
	assert.False(t, Retryable(wrapped))
}

func TestKindUnknown(t *testing.T) {
	assert.Nil(t, Kind(fmt.Errorf("boom")))
	assert.True(t, Retryable(E(ErrConcurrencyConflict, "", "", "", "")))
}
