package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsForEachEnv(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		l, err := New("fight-service", env)
		require.NoError(t, err)
		require.NotNil(t, l)
		_ = l.Sync()
	}
}
