// Package metadata normalizes fetched content into the dataset records
// emitted by a run. Record fields are gated by the configured metadata
// flags, so disabled sections are absent from the JSON output rather than
// zero-valued.
package metadata

import (
	"math"
	"regexp"
	"time"

	"igvideodl/pkg/config"
	"igvideodl/pkg/instagram"
)

// Download status values for result records
const (
	DownloadStatusSuccess = "success"
	DownloadStatusFailed  = "failed"
)

// ContentTypeError marks failure records in the dataset
const ContentTypeError = "error"

// maxComments caps how many comments a record carries
const maxComments = 100

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// ResultRecord is one successfully processed video in the dataset.
// Pointer fields belong to a metadata section and are emitted only when
// that section's flag is enabled.
type ResultRecord struct {
	Username    string `json:"username"`
	Shortcode   string `json:"post_shortcode"`
	PostURL     string `json:"post_url"`
	IsVideo     bool   `json:"is_video"`
	ContentType string `json:"content_type"`
	ScrapedAt   string `json:"scraped_at"`

	// basic info
	Caption   *string `json:"caption,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
	Owner     *string `json:"owner,omitempty"`
	Likes     *int    `json:"likes,omitempty"`

	// engagement metrics
	CommentsCount  *int     `json:"comments_count,omitempty"`
	VideoViews     *int     `json:"video_views,omitempty"`
	VideoDuration  *float64 `json:"video_duration,omitempty"`
	EngagementRate *float64 `json:"engagement_rate,omitempty"`

	// location and hashtags
	Hashtags []string `json:"hashtags,omitempty"`
	Location *string  `json:"location,omitempty"`

	// comments
	Comments []instagram.Comment `json:"comments,omitempty"`

	// storage outcome, filled in by the pipeline after dispatch
	VideoURL        *string `json:"video_url,omitempty"`
	VideoStorageKey *string `json:"video_storage_key,omitempty"`
	DownloadStatus  string  `json:"download_status"`
	ErrorMessage    *string `json:"error_message,omitempty"`
}

// FailureRecord is one failed processing unit in the dataset. The shape
// mirrors ResultRecord so both interleave in the same dataset.
type FailureRecord struct {
	Username       string  `json:"username"`
	Shortcode      *string `json:"post_shortcode,omitempty"`
	PostURL        *string `json:"post_url"`
	IsVideo        bool    `json:"is_video"`
	ContentType    string  `json:"content_type"`
	DownloadStatus string  `json:"download_status"`
	ErrorMessage   string  `json:"error_message"`
	ErrorType      string  `json:"error_type,omitempty"`
	IsRetryable    *bool   `json:"is_retryable,omitempty"`
	UserGuidance   string  `json:"user_guidance,omitempty"`
	ScrapedAt      string  `json:"scraped_at"`
}

// Normalize builds the dataset record for a content item. Sections are
// included per the metadata flags; the storage outcome fields stay empty
// for the caller to fill.
func Normalize(item *instagram.ContentItem, flags config.MetadataFlags, contentType instagram.ContentType, now time.Time) *ResultRecord {
	record := &ResultRecord{
		Username:    item.Username,
		Shortcode:   item.Shortcode,
		PostURL:     instagram.PostURL(item.Shortcode),
		IsVideo:     item.IsVideo,
		ContentType: string(contentType),
		ScrapedAt:   now.UTC().Format(time.RFC3339),
	}

	if flags.BasicInfo {
		caption := item.Caption
		timestamp := item.Timestamp.UTC().Format(time.RFC3339)
		owner := item.Username
		likes := item.Likes
		record.Caption = &caption
		record.Timestamp = &timestamp
		record.Owner = &owner
		record.Likes = &likes
	}

	if flags.EngagementMetrics {
		commentsCount := item.CommentsCount
		views := item.ViewCount
		duration := item.Duration
		rate := EngagementRate(item.Likes, item.CommentsCount)
		record.CommentsCount = &commentsCount
		record.VideoViews = &views
		record.VideoDuration = &duration
		record.EngagementRate = &rate
	}

	if flags.LocationHashtags {
		record.Hashtags = ExtractHashtags(item.Caption)
		if item.Location != "" {
			location := item.Location
			record.Location = &location
		}
	}

	if flags.Comments {
		comments := item.Comments
		if len(comments) > maxComments {
			comments = comments[:maxComments]
		}
		record.Comments = comments
	}

	return record
}

// NewFailureRecord builds a dataset record for a failed processing unit
func NewFailureRecord(username, contentType, message, errorType string, retryable *bool, guidance string, now time.Time) *FailureRecord {
	return &FailureRecord{
		Username:       username,
		PostURL:        nil,
		IsVideo:        false,
		ContentType:    contentType,
		DownloadStatus: DownloadStatusFailed,
		ErrorMessage:   message,
		ErrorType:      errorType,
		IsRetryable:    retryable,
		UserGuidance:   guidance,
		ScrapedAt:      now.UTC().Format(time.RFC3339),
	}
}

// EngagementRate computes comments relative to likes, rounded to two
// decimal places. A zero like count divides by one so the rate is always
// defined.
func EngagementRate(likes, comments int) float64 {
	rate := float64(comments) / float64(max(likes, 1))
	return math.Round(rate*100) / 100
}

// SetStorageOutcome records the download result on a normalized record
func (r *ResultRecord) SetStorageOutcome(storageKey string, err error) {
	if err != nil {
		message := "video download failed: " + err.Error()
		r.DownloadStatus = DownloadStatusFailed
		r.ErrorMessage = &message
		return
	}
	if storageKey != "" {
		key := storageKey
		r.VideoStorageKey = &key
	}
	r.DownloadStatus = DownloadStatusSuccess
}

// ExtractHashtags returns the hashtag words in a caption, in order of
// appearance. A caption without hashtags yields an empty slice.
func ExtractHashtags(caption string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(caption, -1)
	hashtags := make([]string, 0, len(matches))
	for _, m := range matches {
		hashtags = append(hashtags, m[1])
	}
	return hashtags
}
