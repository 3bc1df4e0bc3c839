package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			log, flush, err := New(env)
			require.NoError(t, err)
			require.NotNil(t, log)
			log.InfoContext(context.Background(), "logger ready", "env", env)
			flush()
		})
	}
}

func TestNewNop(t *testing.T) {
	require.NotPanics(t, func() {
		NewNop().Error("discarded")
	})
}
