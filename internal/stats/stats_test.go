package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileStartsFresh(t *testing.T) {
	m := &Manager{path: filepath.Join(t.TempDir(), "stats.json")}
	require.NoError(t, m.Load())
	assert.Equal(t, int64(0), m.FreedLifetime())
}

func TestSaveWithoutChangesWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	m := &Manager{path: path}
	require.NoError(t, m.Load())
	require.NoError(t, m.Save())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFreedBytesPersistAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "stats.json")

	m := &Manager{path: path}
	require.NoError(t, m.Load())
	m.AddFreed(4096)
	m.AddFreed(512)
	require.NoError(t, m.Save())

	fresh := &Manager{path: path}
	require.NoError(t, fresh.Load())
	assert.Equal(t, int64(4608), fresh.FreedLifetime())
}
