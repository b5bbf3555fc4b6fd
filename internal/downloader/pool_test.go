package downloader

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"igvideodl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDownloader struct {
	mu       sync.Mutex
	failures map[string]error
	calls    int
}

func (f *fakeDownloader) DownloadVideo(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	return io.NopCloser(strings.NewReader("video data for " + url)), nil
}

type fakeStorage struct {
	mu      sync.Mutex
	stored  map[string][]byte
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{stored: make(map[string][]byte)}
}

func (f *fakeStorage) IsStored(shortcode string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[shortcode]
	return ok
}

func (f *fakeStorage) SaveVideo(r io.Reader, shortcode string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.mu.Lock()
	f.stored[shortcode] = data
	f.mu.Unlock()
	return fmt.Sprintf("video_%s.mp4", shortcode), nil
}

func collectResults(t *testing.T, pool *WorkerPool, expected int) []DownloadResult {
	t.Helper()
	var results []DownloadResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	pool.Stop()
	<-done
	require.Len(t, results, expected)
	return results
}

func TestWorkerPoolDownloadsJobs(t *testing.T) {
	client := &fakeDownloader{}
	store := newFakeStorage()
	pool := NewWorkerPool(3, client, store, logger.NewNop())
	pool.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(DownloadJob{
			URL:       fmt.Sprintf("https://cdn.example.com/v%d.mp4", i),
			Shortcode: fmt.Sprintf("SC%d", i),
			Username:  "testuser",
		}))
	}

	results := collectResults(t, pool, 5)
	for _, result := range results {
		assert.True(t, result.Success)
		assert.False(t, result.Skipped)
		assert.Equal(t, fmt.Sprintf("video_%s.mp4", result.Job.Shortcode), result.StorageKey)
		assert.Greater(t, result.Size, int64(0))
	}
	assert.Len(t, store.stored, 5)
}

func TestWorkerPoolSkipsStoredVideos(t *testing.T) {
	client := &fakeDownloader{}
	store := newFakeStorage()
	store.stored["SEEN"] = []byte("already here")

	pool := NewWorkerPool(1, client, store, logger.NewNop())
	pool.Start()

	require.NoError(t, pool.Submit(DownloadJob{URL: "https://cdn.example.com/x.mp4", Shortcode: "SEEN"}))

	results := collectResults(t, pool, 1)
	assert.True(t, results[0].Success)
	assert.True(t, results[0].Skipped)
	assert.Equal(t, "video_SEEN.mp4", results[0].StorageKey, "skipped videos still report their storage key")
	assert.Equal(t, 0, client.calls, "stored videos are not re-downloaded")
}

func TestWorkerPoolReportsDownloadFailure(t *testing.T) {
	client := &fakeDownloader{failures: map[string]error{
		"https://cdn.example.com/bad.mp4": fmt.Errorf("connection reset"),
	}}
	store := newFakeStorage()

	pool := NewWorkerPool(2, client, store, logger.NewNop())
	pool.Start()

	require.NoError(t, pool.Submit(DownloadJob{URL: "https://cdn.example.com/bad.mp4", Shortcode: "BAD"}))
	require.NoError(t, pool.Submit(DownloadJob{URL: "https://cdn.example.com/good.mp4", Shortcode: "GOOD"}))

	results := collectResults(t, pool, 2)

	byShortcode := make(map[string]DownloadResult)
	for _, r := range results {
		byShortcode[r.Job.Shortcode] = r
	}

	assert.False(t, byShortcode["BAD"].Success)
	assert.ErrorContains(t, byShortcode["BAD"].Error, "download failed")
	assert.True(t, byShortcode["GOOD"].Success)
	assert.False(t, store.IsStored("BAD"))
	assert.True(t, store.IsStored("GOOD"))
}

func TestWorkerPoolReportsSaveFailure(t *testing.T) {
	client := &fakeDownloader{}
	store := newFakeStorage()
	store.saveErr = fmt.Errorf("disk full")

	pool := NewWorkerPool(1, client, store, logger.NewNop())
	pool.Start()

	require.NoError(t, pool.Submit(DownloadJob{URL: "https://cdn.example.com/v.mp4", Shortcode: "SC"}))

	results := collectResults(t, pool, 1)
	assert.False(t, results[0].Success)
	assert.ErrorContains(t, results[0].Error, "save failed")
}

func TestWorkerPoolRejectsSubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, &fakeDownloader{}, newFakeStorage(), logger.NewNop())
	pool.Start()
	collectResults(t, pool, 0)

	err := pool.Submit(DownloadJob{Shortcode: "LATE"})
	assert.Error(t, err)
}
