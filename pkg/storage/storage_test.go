package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean name unchanged", "video_ABC123.mp4", "video_ABC123.mp4"},
		{"invalid chars replaced", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"long name truncated", strings.Repeat("x", 250), strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "video_ABC123.mp4", StorageKey("ABC123"))
	assert.Equal(t, "video_a_b.mp4", StorageKey("a/b"))
}

func TestBinaryStoreSaveAndLookup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBinaryStore(dir)
	require.NoError(t, err)

	assert.False(t, store.IsStored("ABC123"))

	key, err := store.SaveVideo(strings.NewReader("video bytes"), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "video_ABC123.mp4", key)

	assert.True(t, store.IsStored("ABC123"))
	assert.Equal(t, 1, store.StoredCount())

	content, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(content))

	// no temp file left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBinaryStoreScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video_OLD1.mp4"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644))

	store, err := NewBinaryStore(dir)
	require.NoError(t, err)

	assert.True(t, store.IsStored("OLD1"))
	assert.False(t, store.IsStored("NEW1"))
	assert.Equal(t, 1, store.StoredCount())
}

func TestBinaryStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "videos")
	_, err := NewBinaryStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDatasetWriterAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dataset.jsonl")
	writer, err := NewDatasetWriter(path)
	require.NoError(t, err)
	defer writer.Close()

	require.NoError(t, writer.Append(map[string]string{"username": "alice"}))
	require.NoError(t, writer.Append(map[string]string{"username": "bob"}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var usernames []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record map[string]string
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		usernames = append(usernames, record["username"])
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"alice", "bob"}, usernames)
}

func TestDatasetWriterAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.jsonl")

	first, err := NewDatasetWriter(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(map[string]int{"run": 1}))
	require.NoError(t, first.Close())

	second, err := NewDatasetWriter(path)
	require.NoError(t, err)
	require.NoError(t, second.Append(map[string]int{"run": 2}))
	require.NoError(t, second.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "\n"))
}
