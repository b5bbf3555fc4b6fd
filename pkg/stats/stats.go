// Package stats tracks run counters for the processing pipeline.
package stats

import (
	"sync"
	"sync/atomic"

	"igvideodl/pkg/errors"
)

// Tracker accumulates counters over a run. All methods are safe for
// concurrent use.
type Tracker struct {
	profilesProcessed atomic.Int64
	profilesFailed    atomic.Int64
	videosDownloaded  atomic.Int64
	videosFiltered    atomic.Int64
	duplicatesSkipped atomic.Int64
	retriesPerformed  atomic.Int64
	recordsWritten    atomic.Int64

	mu           sync.Mutex
	errorsByType map[errors.ErrorType]int
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		errorsByType: make(map[errors.ErrorType]int),
	}
}

// ProfileProcessed records a profile that finished processing
func (t *Tracker) ProfileProcessed() { t.profilesProcessed.Add(1) }

// ProfileFailed records a profile that failed terminally
func (t *Tracker) ProfileFailed() { t.profilesFailed.Add(1) }

// VideoDownloaded records a successfully downloaded video
func (t *Tracker) VideoDownloaded() { t.videosDownloaded.Add(1) }

// VideoFiltered records an item dropped by the content filter
func (t *Tracker) VideoFiltered() { t.videosFiltered.Add(1) }

// DuplicateSkipped records an item skipped by deduplication
func (t *Tracker) DuplicateSkipped() { t.duplicatesSkipped.Add(1) }

// RetryPerformed records one retry attempt
func (t *Tracker) RetryPerformed() { t.retriesPerformed.Add(1) }

// RecordWritten records one dataset record emitted
func (t *Tracker) RecordWritten() { t.recordsWritten.Add(1) }

// ErrorOccurred records an error by its classified type
func (t *Tracker) ErrorOccurred(errorType errors.ErrorType) {
	t.mu.Lock()
	t.errorsByType[errorType]++
	t.mu.Unlock()
}

// Snapshot is a point-in-time copy of the run counters
type Snapshot struct {
	ProfilesProcessed int64                    `json:"profiles_processed"`
	ProfilesFailed    int64                    `json:"profiles_failed"`
	VideosDownloaded  int64                    `json:"videos_downloaded"`
	VideosFiltered    int64                    `json:"videos_filtered"`
	DuplicatesSkipped int64                    `json:"duplicates_skipped"`
	RetriesPerformed  int64                    `json:"retries_performed"`
	RecordsWritten    int64                    `json:"records_written"`
	ErrorsByType      map[errors.ErrorType]int `json:"errors_by_type"`
}

// Snapshot returns a copy of the current counters
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	errorsByType := make(map[errors.ErrorType]int, len(t.errorsByType))
	for k, v := range t.errorsByType {
		errorsByType[k] = v
	}
	t.mu.Unlock()

	return Snapshot{
		ProfilesProcessed: t.profilesProcessed.Load(),
		ProfilesFailed:    t.profilesFailed.Load(),
		VideosDownloaded:  t.videosDownloaded.Load(),
		VideosFiltered:    t.videosFiltered.Load(),
		DuplicatesSkipped: t.duplicatesSkipped.Load(),
		RetriesPerformed:  t.retriesPerformed.Load(),
		RecordsWritten:    t.recordsWritten.Load(),
		ErrorsByType:      errorsByType,
	}
}

// TotalErrors returns the sum of all classified errors
func (s Snapshot) TotalErrors() int {
	total := 0
	for _, count := range s.ErrorsByType {
		total += count
	}
	return total
}
