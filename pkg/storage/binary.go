package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// maxFilenameLength caps stored filenames
const maxFilenameLength = 200

// SanitizeFilename replaces characters that are invalid in filenames and
// caps the length
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	return name
}

// StorageKey returns the binary store key for a video shortcode
func StorageKey(shortcode string) string {
	return SanitizeFilename(fmt.Sprintf("video_%s.mp4", shortcode))
}

// BinaryStore persists downloaded video files under a directory and tracks
// which shortcodes are already stored
type BinaryStore struct {
	outputDir    string
	storedVideos map[string]bool
	mu           sync.RWMutex
}

// NewBinaryStore creates the output directory if needed and scans it for
// previously stored videos
func NewBinaryStore(outputDir string) (*BinaryStore, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	store := &BinaryStore{
		outputDir:    outputDir,
		storedVideos: make(map[string]bool),
	}

	if err := store.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return store, nil
}

// scanExistingFiles indexes videos already present in the output directory
func (s *BinaryStore) scanExistingFiles() error {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "video_") || filepath.Ext(name) != ".mp4" {
			continue
		}
		shortcode := strings.TrimSuffix(strings.TrimPrefix(name, "video_"), ".mp4")
		s.storedVideos[shortcode] = true
	}

	return nil
}

// IsStored checks if a video with the given shortcode is already stored
func (s *BinaryStore) IsStored(shortcode string) bool {
	s.mu.RLock()
	stored := s.storedVideos[shortcode]
	s.mu.RUnlock()
	if stored {
		return true
	}

	filename := filepath.Join(s.outputDir, StorageKey(shortcode))
	if _, err := os.Stat(filename); err == nil {
		s.mu.Lock()
		s.storedVideos[shortcode] = true
		s.mu.Unlock()
		return true
	}

	return false
}

// SaveVideo writes the video bytes atomically and returns the storage key.
// The file is written to a temporary path first so a failed download never
// leaves a partial video behind.
func (s *BinaryStore) SaveVideo(r io.Reader, shortcode string) (string, error) {
	key := StorageKey(shortcode)
	filename := filepath.Join(s.outputDir, key)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save video data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	s.mu.Lock()
	s.storedVideos[shortcode] = true
	s.mu.Unlock()

	return key, nil
}

// OutputDir returns the output directory path
func (s *BinaryStore) OutputDir() string {
	return s.outputDir
}

// StoredCount returns the number of stored videos
func (s *BinaryStore) StoredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.storedVideos)
}
