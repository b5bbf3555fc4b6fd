package pipeline

import (
	"context"
	"fmt"
	"time"

	"igvideodl/internal/downloader"
	"igvideodl/pkg/auth"
	"igvideodl/pkg/checkpoint"
	"igvideodl/pkg/config"
	errs "igvideodl/pkg/errors"
	"igvideodl/pkg/filter"
	"igvideodl/pkg/instagram"
	"igvideodl/pkg/logger"
	"igvideodl/pkg/metadata"
	"igvideodl/pkg/ratelimit"
	"igvideodl/pkg/retry"
	"igvideodl/pkg/stats"
	"igvideodl/pkg/storage"

	"github.com/google/uuid"
)

// downloadWorkers is the pool size for binary video downloads
const downloadWorkers = 3

// Pipeline processes the configured profiles sequentially, fetching
// content, filtering it, normalizing records, and dispatching them to the
// configured storage destinations.
type Pipeline struct {
	cfg         *config.Config
	session     *auth.Session
	fetcher     instagram.Fetcher
	videoClient downloader.VideoDownloader
	store       downloader.VideoStorage
	dataset     DatasetAppender
	tracker     *stats.Tracker
	logger      logger.Logger
	backoff     retry.BackoffStrategy
	filterOpts  filter.Options

	checkpointMgr   *checkpoint.Manager
	checkpointState *checkpoint.Checkpoint

	// seen deduplicates (username, shortcode) pairs for the whole run
	seen map[string]bool

	runID string
	now   func() time.Time
}

// New wires a pipeline from configuration. The session may be nil for
// anonymous runs; stories then fail per profile instead of aborting the
// run.
func New(cfg *config.Config, session *auth.Session) (*Pipeline, error) {
	runID := uuid.NewString()
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"run_id": runID,
	})

	filterOpts, err := filter.FromConfig(
		cfg.Run.Filter.VideosOnly,
		cfg.Run.Filter.MinLikes,
		cfg.Run.Filter.DateFrom,
		cfg.Run.Filter.DateTo,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid filter configuration: %w", err)
	}

	requestsPerMinute := cfg.RateLimit.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	limiter := ratelimit.NewTokenBucket(requestsPerMinute, time.Minute)

	client := instagram.NewClient(cfg.Instagram.RequestTimeout, limiter, log)
	if cfg.Instagram.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
	}

	dataset, err := storage.NewDatasetWriter(cfg.Storage.DatasetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	p := &Pipeline{
		cfg:         cfg,
		session:     session,
		fetcher:     client,
		videoClient: client,
		dataset:     dataset,
		tracker:     stats.NewTracker(),
		logger:      log,
		backoff:     newBackoff(&cfg.Retry),
		filterOpts:  filterOpts,
		seen:        make(map[string]bool),
		runID:       runID,
		now:         time.Now,
	}

	if storesBinary(cfg.Run.StorageMethod) {
		store, err := storage.NewBinaryStore(cfg.Storage.BinaryDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to create binary store: %w", err)
		}
		p.store = store
	}

	return p, nil
}

// RunID identifies this pipeline instance in logs and the run summary
func (p *Pipeline) RunID() string {
	return p.runID
}

// EnableResume attaches checkpoint state so completed profiles and
// processed posts from a previous run are skipped
func (p *Pipeline) EnableResume(name string) error {
	mgr, err := checkpoint.NewManager(name)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	state, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if state == nil {
		state, err = mgr.Create()
		if err != nil {
			return fmt.Errorf("failed to create checkpoint: %w", err)
		}
	}

	p.checkpointMgr = mgr
	p.checkpointState = state
	return nil
}

// ClearCheckpoint removes the resume state after a fully successful run
func (p *Pipeline) ClearCheckpoint() error {
	if p.checkpointMgr == nil {
		return nil
	}
	return p.checkpointMgr.Delete()
}

func newBackoff(cfg *config.RetryConfig) retry.BackoffStrategy {
	backoff := retry.NewExponentialBackoff(time.Duration(cfg.InitialDelay) * time.Second)
	if cfg.MaxDelay > 0 {
		backoff.MaxDelay = time.Duration(cfg.MaxDelay) * time.Second
	}
	return backoff
}

func storesBinary(method string) bool {
	return method == config.StorageKeyValueStore || method == config.StorageBoth
}

func storesURLs(method string) bool {
	return method == config.StorageDatasetURLs || method == config.StorageBoth
}

// Run processes every configured profile in order. The returned snapshot
// is valid even when the run is cut short by cancellation.
func (p *Pipeline) Run(ctx context.Context) (stats.Snapshot, error) {
	types := instagram.SelectContentTypes(p.cfg.Run.ContentTypes)
	profileDelay := time.Duration(p.cfg.Run.DelayBetweenProfiles) * time.Second

	p.logger.InfoWithFields("Starting run", map[string]interface{}{
		"profiles":       len(p.cfg.Run.Usernames),
		"content_types":  len(types),
		"storage_method": p.cfg.Run.StorageMethod,
	})

	for i, username := range p.cfg.Run.Usernames {
		if err := ctx.Err(); err != nil {
			return p.tracker.Snapshot(), fmt.Errorf("run cancelled: %w", err)
		}

		username = instagram.SanitizeUsername(username)

		if p.checkpointState != nil && p.checkpointState.IsProfileCompleted(username) {
			p.logger.InfoWithFields("Skipping completed profile", map[string]interface{}{
				"username": username,
			})
			continue
		}

		p.processProfile(ctx, username, types)

		if p.checkpointMgr != nil {
			if err := p.checkpointMgr.MarkProfileCompleted(p.checkpointState, username); err != nil {
				p.logger.WithError(err).Warn("Failed to save checkpoint")
			}
		}

		if i < len(p.cfg.Run.Usernames)-1 && profileDelay > 0 {
			if err := retry.Wait(ctx, profileDelay); err != nil {
				return p.tracker.Snapshot(), fmt.Errorf("run cancelled: %w", err)
			}
		}
	}

	snapshot := p.tracker.Snapshot()
	p.logger.InfoWithFields("Run finished", map[string]interface{}{
		"profiles_processed": snapshot.ProfilesProcessed,
		"profiles_failed":    snapshot.ProfilesFailed,
		"videos_downloaded":  snapshot.VideosDownloaded,
		"records_written":    snapshot.RecordsWritten,
		"total_errors":       snapshot.TotalErrors(),
	})

	return snapshot, ctx.Err()
}

// processProfile walks the content types of one profile in priority
// order. A profile-scoped failure aborts the remaining content types; any
// other terminal failure ends only the failing content type.
func (p *Pipeline) processProfile(ctx context.Context, username string, types []instagram.ContentType) {
	maxVideos := p.cfg.Run.MaxVideosPerProfile
	downloaded := 0
	failed := false

	for _, contentType := range types {
		if ctx.Err() != nil {
			return
		}
		if maxVideos > 0 && downloaded >= maxVideos {
			break
		}

		err := p.processContentType(ctx, username, contentType, &downloaded)
		if err == nil {
			continue
		}

		if errs.IsCancellation(err) {
			return
		}

		classified := errs.Classify(err)
		p.tracker.ErrorOccurred(classified.Type)
		p.emitFailure(username, classified)

		p.logger.ErrorWithFields("Content type failed", map[string]interface{}{
			"username":     username,
			"content_type": string(contentType),
			"error_type":   string(classified.Type),
			"error":        classified.Message,
		})

		if errs.IsProfileScoped(classified.Type) {
			failed = true
			break
		}
	}

	if failed {
		p.tracker.ProfileFailed()
		return
	}
	p.tracker.ProfileProcessed()
}

// processContentType fetches, filters, and stores one content type of a
// profile. The downloaded counter is shared across content types so the
// per-profile cap is cumulative.
func (p *Pipeline) processContentType(ctx context.Context, username string, contentType instagram.ContentType, downloaded *int) error {
	// a cap of 0 means unlimited
	remaining := -1
	if p.cfg.Run.MaxVideosPerProfile > 0 {
		remaining = p.cfg.Run.MaxVideosPerProfile - *downloaded
	}

	retryCfg := &retry.Config{
		MaxRetries: p.cfg.Retry.MaxRetries,
		Backoff:    p.backoff,
		Logger:     p.logger,
		OnRetry: func(retryNum int, classified *errs.Error, delay time.Duration) {
			p.tracker.RetryPerformed()
		},
	}

	iter, err := retry.DoWithResult(ctx, func() (instagram.ItemIterator, error) {
		return p.fetcher.FetchContent(ctx, username, contentType, p.session, 0)
	}, retryCfg)
	if err != nil {
		return err
	}

	items, iterErr := p.collectItems(ctx, iter, username, remaining)

	// Items gathered before a mid-feed failure are still processed, so
	// partial progress is never thrown away.
	if len(items) > 0 {
		if err := p.processItems(contentType, items, downloaded); err != nil {
			return err
		}
	}

	return iterErr
}

// collectItems drains the iterator, applying deduplication and filter
// rules, until the remaining per-profile capacity is used up. A negative
// remaining value means the feed is drained in full.
func (p *Pipeline) collectItems(ctx context.Context, iter instagram.ItemIterator, username string, remaining int) ([]*instagram.ContentItem, error) {
	var items []*instagram.ContentItem

	for remaining < 0 || len(items) < remaining {
		if err := ctx.Err(); err != nil {
			return items, fmt.Errorf("run cancelled: %w", err)
		}

		item, err := iter.Next()
		if err == instagram.ErrEndOfFeed {
			return items, nil
		}
		if err != nil {
			return items, err
		}

		key := username + "/" + item.Shortcode
		if p.seen[key] {
			p.tracker.DuplicateSkipped()
			continue
		}
		if p.checkpointState != nil && p.checkpointState.IsPostProcessed(item.Shortcode) {
			p.tracker.DuplicateSkipped()
			continue
		}

		if !filter.Include(item, p.filterOpts) {
			p.tracker.VideoFiltered()
			continue
		}

		// only videos become dataset records
		if !item.IsVideo {
			continue
		}

		p.seen[key] = true
		items = append(items, item)
	}

	return items, nil
}

// processItems normalizes records and dispatches them to the configured
// storage destinations
func (p *Pipeline) processItems(contentType instagram.ContentType, items []*instagram.ContentItem, downloaded *int) error {
	results := make(map[string]downloader.DownloadResult)

	if storesBinary(p.cfg.Run.StorageMethod) {
		results = p.downloadVideos(items)
	}

	for _, item := range items {
		record := metadata.Normalize(item, p.cfg.Run.IncludeMetadata, contentType, p.now())

		if storesURLs(p.cfg.Run.StorageMethod) && item.VideoURL != "" {
			videoURL := item.VideoURL
			record.VideoURL = &videoURL
		}

		if storesBinary(p.cfg.Run.StorageMethod) {
			result, ok := results[item.Shortcode]
			switch {
			case !ok:
				record.SetStorageOutcome("", fmt.Errorf("video has no downloadable URL"))
			case result.Error != nil:
				record.SetStorageOutcome("", result.Error)
			default:
				record.SetStorageOutcome(result.StorageKey, nil)
			}
		} else {
			record.SetStorageOutcome("", nil)
		}

		if err := p.dataset.Append(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		p.tracker.RecordWritten()

		succeeded := record.DownloadStatus == metadata.DownloadStatusSuccess
		if succeeded {
			*downloaded++
			p.tracker.VideoDownloaded()
		}

		if p.checkpointMgr != nil {
			if err := p.checkpointMgr.RecordPost(p.checkpointState, item.Shortcode, succeeded); err != nil {
				p.logger.WithError(err).Warn("Failed to save checkpoint")
			}
		}
	}

	return nil
}

// downloadVideos runs the items through the worker pool and returns the
// per-shortcode results
func (p *Pipeline) downloadVideos(items []*instagram.ContentItem) map[string]downloader.DownloadResult {
	pool := downloader.NewWorkerPool(downloadWorkers, p.videoClient, p.store, p.logger)
	pool.Start()

	// The drain must run before submission: workers block once the result
	// queue fills, which in turn blocks Submit on the job queue.
	results := make(map[string]downloader.DownloadResult, len(items))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			results[result.Job.Shortcode] = result
		}
	}()

	for _, item := range items {
		if item.VideoURL == "" {
			continue
		}
		err := pool.Submit(downloader.DownloadJob{
			URL:       item.VideoURL,
			Shortcode: item.Shortcode,
			Username:  item.Username,
		})
		if err != nil {
			break
		}
	}

	pool.Stop()
	<-done

	return results
}

// emitFailure writes a failure record for a terminally failed unit
func (p *Pipeline) emitFailure(username string, classified *errs.Error) {
	retryable := errs.IsRetryable(classified.Type)
	record := metadata.NewFailureRecord(
		username,
		metadata.ContentTypeError,
		classified.Message,
		string(classified.Type),
		&retryable,
		errs.Guidance(classified.Type),
		p.now(),
	)

	if err := p.dataset.Append(record); err != nil {
		p.logger.WithError(err).Error("Failed to write failure record")
		return
	}
	p.tracker.RecordWritten()
}

// Close releases the dataset writer if the pipeline owns one
func (p *Pipeline) Close() error {
	if closer, ok := p.dataset.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
