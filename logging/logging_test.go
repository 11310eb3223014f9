package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	prev := log.Logger
	closer, err := Setup(Options{Level: "debug", File: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	log.Debug().Int("turn", 7).Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"turn":7`)
	require.Contains(t, string(data), `"message":"hello"`)
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetup_BadLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	require.Error(t, err)
}
