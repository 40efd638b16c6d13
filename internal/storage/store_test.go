package storage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/storage"
)

func newMediaStore(t *testing.T) *storage.MediaStore {
	t.Helper()
	store, err := storage.NewMediaStore(config.StorageConfig{
		MediaDir: t.TempDir(),
		TempDir:  "temp",
		FinalDir: "final",
	})
	require.NoError(t, err)
	return store
}

func TestMediaStore_StageUpload(t *testing.T) {
	store := newMediaStore(t)

	content := []byte("fake video bytes")
	abs, written, err := store.StageUpload("01JUPLOAD", ".mp4", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), written)
	assert.Equal(t, "source.mp4", filepath.Base(abs))

	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestMediaStore_SourcePath(t *testing.T) {
	store := newMediaStore(t)

	staged, _, err := store.StageUpload("01JUPLOAD", ".mkv", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	found, err := store.SourcePath("01JUPLOAD")
	require.NoError(t, err)
	assert.Equal(t, staged, found)

	_, err = store.SourcePath("01JMISSING")
	assert.Error(t, err)
}

func TestMediaStore_Finalize(t *testing.T) {
	store := newMediaStore(t)

	stageOutputs := func(t *testing.T, uploadID string) {
		t.Helper()
		outDir, err := store.OutputDir(uploadID)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Join(outDir, "720p"), 0750))
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "thumbnail.jpg"), []byte("jpg"), 0640))
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "720p", "manifest.m3u8"), []byte("m3u8"), 0640))
	}

	t.Run("publishes via rename", func(t *testing.T) {
		stageOutputs(t, "01JFIRST")

		require.NoError(t, store.Finalize("01JFIRST", "my-video"))

		finalDir, err := store.FinalDir("my-video")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(finalDir, "thumbnail.jpg"))
		assert.FileExists(t, filepath.Join(finalDir, "720p", "manifest.m3u8"))

		// The out directory moved rather than copied.
		outDir := filepath.Join(filepath.Dir(finalDir), "..", "temp", "01JFIRST", "out")
		assert.NoDirExists(t, outDir)
	})

	t.Run("idempotent after publish", func(t *testing.T) {
		stageOutputs(t, "01JSECOND")
		require.NoError(t, store.Finalize("01JSECOND", "second-video"))
		assert.NoError(t, store.Finalize("01JSECOND", "second-video"))
	})

	t.Run("rejects publishing over a different job", func(t *testing.T) {
		stageOutputs(t, "01JTHIRD")
		require.NoError(t, store.Finalize("01JTHIRD", "third-video"))

		stageOutputs(t, "01JFOURTH")
		assert.Error(t, store.Finalize("01JFOURTH", "third-video"))
	})
}

func TestMediaStore_DeleteTemp(t *testing.T) {
	store := newMediaStore(t)

	_, _, err := store.StageUpload("01JDOOMED", ".mp4", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, store.DeleteTemp("01JDOOMED"))

	ids, err := store.ListTempIDs()
	require.NoError(t, err)
	assert.NotContains(t, ids, "01JDOOMED")

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteTemp("01JDOOMED"))
}

func TestMediaStore_ListTempIDs(t *testing.T) {
	store := newMediaStore(t)

	_, _, err := store.StageUpload("01JAAA", ".mp4", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	_, _, err = store.StageUpload("01JBBB", ".mov", bytes.NewReader([]byte("y")))
	require.NoError(t, err)

	ids, err := store.ListTempIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"01JAAA", "01JBBB"}, ids)
}
