package partial

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/store"
)

func TestUnknownFightIsOpen(t *testing.T) {
	tr := NewTracker()
	s := tr.Get(4)
	assert.False(t, s.Closed(store.SideMeron))
	assert.False(t, s.Closed(store.SideWala))
}

func TestSetAndClear(t *testing.T) {
	tr := NewTracker()

	s, err := tr.Set(4, store.SideMeron, true)
	require.NoError(t, err)
	assert.Equal(t, State{Meron: true}, s)

	s, err = tr.Set(4, store.SideWala, true)
	require.NoError(t, err)
	assert.Equal(t, State{Meron: true, Wala: true}, s)

	s, err = tr.Set(4, store.SideMeron, false)
	require.NoError(t, err)
	assert.Equal(t, State{Wala: true}, s)

	tr.Clear(4)
	assert.Equal(t, State{}, tr.Get(4))
}

func TestSetRejectsInvalidSide(t *testing.T) {
	_, err := NewTracker().Set(1, store.Side("draw"), true)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAllIsACopy(t *testing.T) {
	tr := NewTracker()
	_, _ = tr.Set(1, store.SideWala, true)
	_, _ = tr.Set(2, store.SideMeron, true)

	snap := tr.All()
	assert.Equal(t, 2, snap.Total)
	snap.States[1] = State{}

	assert.True(t, tr.Get(1).Wala)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = tr.Set(n%5, store.SideMeron, n%2 == 0)
			_ = tr.Get(n % 5)
			_ = tr.All()
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, tr.All().Total, 5)
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	_, _ = tr.Set(1, store.SideWala, true)
	_, _ = tr.Set(3, store.SideMeron, true)

	tr.Reset()
	assert.Equal(t, 0, tr.All().Total)
	assert.Equal(t, State{}, tr.Get(1))
}
