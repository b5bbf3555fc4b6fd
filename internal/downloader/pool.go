package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"igvideodl/pkg/logger"
	"igvideodl/pkg/storage"
)

// DownloadJob represents a single video download task
type DownloadJob struct {
	URL       string
	Shortcode string
	Username  string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job        DownloadJob
	Success    bool
	Skipped    bool
	StorageKey string
	Error      error
	Duration   time.Duration
	Size       int64
}

// VideoDownloader streams video bytes from a URL
type VideoDownloader interface {
	DownloadVideo(ctx context.Context, url string) (io.ReadCloser, error)
}

// VideoStorage persists downloaded videos
type VideoStorage interface {
	IsStored(shortcode string) bool
	SaveVideo(r io.Reader, shortcode string) (string, error)
}

// WorkerPool manages concurrent video download workers. Rate limiting
// happens inside the downloader client, so the pool only bounds
// concurrency.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      VideoDownloader
	store       VideoStorage
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(numWorkers int, client VideoDownloader, store VideoStorage, log logger.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		store:       store,
		logger:      log,
	}
}

// Start launches all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting download worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop drains the queue, waits for workers, and closes the result channel
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info("Download worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
	}

	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob downloads and stores a single video
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	if wp.store.IsStored(job.Shortcode) {
		wp.logger.DebugWithFields("Video already stored", map[string]interface{}{
			"worker_id": workerID,
			"shortcode": job.Shortcode,
		})
		result.Success = true
		result.Skipped = true
		result.StorageKey = storage.StorageKey(job.Shortcode)
		result.Duration = time.Since(start)
		return result
	}

	body, err := wp.client.DownloadVideo(wp.ctx, job.URL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to download video", map[string]interface{}{
			"worker_id": workerID,
			"shortcode": job.Shortcode,
			"error":     err.Error(),
		})
		return result
	}

	counted := &countingReader{reader: body}
	key, err := wp.store.SaveVideo(counted, job.Shortcode)
	body.Close()

	result.Size = counted.count
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)

		wp.logger.ErrorWithFields("Worker failed to save video", map[string]interface{}{
			"worker_id": workerID,
			"shortcode": job.Shortcode,
			"error":     err.Error(),
		})
		return result
	}

	result.Success = true
	result.StorageKey = key

	wp.logger.DebugWithFields("Worker completed download", map[string]interface{}{
		"worker_id": workerID,
		"shortcode": job.Shortcode,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result
}

// QueueSize returns the current number of queued jobs
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

// countingReader counts bytes as they stream through
type countingReader struct {
	reader io.Reader
	count  int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count += int64(n)
	return n, err
}
