package metadata

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"igvideodl/pkg/config"
	"igvideodl/pkg/instagram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleItem() *instagram.ContentItem {
	return &instagram.ContentItem{
		ID:            "node_ABC",
		Shortcode:     "ABC123",
		Username:      "testuser",
		Timestamp:     time.Date(2024, 5, 20, 8, 30, 0, 0, time.UTC),
		IsVideo:       true,
		Caption:       "morning run #fitness #oslo",
		Likes:         2000,
		CommentsCount: 150,
		ViewCount:     50000,
		Duration:      23.4,
		VideoURL:      "https://cdn.example.com/abc.mp4",
		Location:      "Oslo, Norway",
	}
}

func allFlags() config.MetadataFlags {
	return config.MetadataFlags{
		BasicInfo:         true,
		EngagementMetrics: true,
		Comments:          true,
		LocationHashtags:  true,
	}
}

func TestNormalizeAllSections(t *testing.T) {
	record := Normalize(sampleItem(), allFlags(), instagram.ContentTypePost, testNow)

	assert.Equal(t, "testuser", record.Username)
	assert.Equal(t, "ABC123", record.Shortcode)
	assert.Equal(t, "https://www.instagram.com/p/ABC123/", record.PostURL)
	assert.True(t, record.IsVideo)
	assert.Equal(t, "post", record.ContentType)
	assert.Equal(t, "2024-06-01T12:00:00Z", record.ScrapedAt)

	require.NotNil(t, record.Caption)
	assert.Equal(t, "morning run #fitness #oslo", *record.Caption)
	require.NotNil(t, record.Timestamp)
	assert.Equal(t, "2024-05-20T08:30:00Z", *record.Timestamp)
	require.NotNil(t, record.Likes)
	assert.Equal(t, 2000, *record.Likes)

	require.NotNil(t, record.CommentsCount)
	assert.Equal(t, 150, *record.CommentsCount)
	require.NotNil(t, record.VideoViews)
	assert.Equal(t, 50000, *record.VideoViews)
	require.NotNil(t, record.EngagementRate)
	assert.Equal(t, 0.08, *record.EngagementRate)

	assert.Equal(t, []string{"fitness", "oslo"}, record.Hashtags)
	require.NotNil(t, record.Location)
	assert.Equal(t, "Oslo, Norway", *record.Location)
}

func TestNormalizeDisabledSectionsOmitted(t *testing.T) {
	record := Normalize(sampleItem(), config.MetadataFlags{}, instagram.ContentTypeReel, testNow)

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, field := range []string{"caption", "likes", "comments_count", "engagement_rate", "hashtags", "location", "comments"} {
		assert.NotContains(t, decoded, field)
	}
	assert.Equal(t, "reel", decoded["content_type"])
}

func TestNormalizeCommentsTruncated(t *testing.T) {
	item := sampleItem()
	for i := 0; i < 150; i++ {
		item.Comments = append(item.Comments, instagram.Comment{
			Owner: fmt.Sprintf("user%d", i),
			Text:  "comment",
		})
	}

	record := Normalize(item, allFlags(), instagram.ContentTypePost, testNow)
	assert.Len(t, record.Comments, 100)
	assert.Equal(t, "user0", record.Comments[0].Owner)
	assert.Equal(t, "user99", record.Comments[99].Owner)
}

func TestEngagementRate(t *testing.T) {
	tests := []struct {
		likes    int
		comments int
		expected float64
	}{
		{1000, 50, 0.05},
		{0, 10, 10.0},
		{1, 10, 10.0},
		{0, 0, 0.0},
		{3, 1, 0.33},
		{300, 100, 0.33},
		{2000, 150, 0.08},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_likes_%d_comments", tt.likes, tt.comments), func(t *testing.T) {
			assert.Equal(t, tt.expected, EngagementRate(tt.likes, tt.comments))
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name     string
		caption  string
		expected []string
	}{
		{"multiple tags", "sunset #beach #travel2024 vibes", []string{"beach", "travel2024"}},
		{"no tags", "just a caption", []string{}},
		{"empty caption", "", []string{}},
		{"underscore and unicode word chars", "#my_tag here", []string{"my_tag"}},
		{"adjacent tags", "#one#two", []string{"one", "two"}},
		{"bare hash ignored", "count # something", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractHashtags(tt.caption))
		})
	}
}

func TestNewFailureRecord(t *testing.T) {
	retryable := false
	record := NewFailureRecord("ghost_user", ContentTypeError, "Profile not found",
		"profile_not_found", &retryable, "Verify the username", testNow)

	assert.Equal(t, "ghost_user", record.Username)
	assert.Nil(t, record.PostURL)
	assert.False(t, record.IsVideo)
	assert.Equal(t, "error", record.ContentType)
	assert.Equal(t, DownloadStatusFailed, record.DownloadStatus)
	assert.Equal(t, "profile_not_found", record.ErrorType)
	require.NotNil(t, record.IsRetryable)
	assert.False(t, *record.IsRetryable)
	assert.Equal(t, "2024-06-01T12:00:00Z", record.ScrapedAt)

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "post_url")
	assert.Nil(t, decoded["post_url"])
}

func TestSetStorageOutcome(t *testing.T) {
	record := Normalize(sampleItem(), allFlags(), instagram.ContentTypePost, testNow)

	record.SetStorageOutcome("video_ABC123.mp4", nil)
	assert.Equal(t, DownloadStatusSuccess, record.DownloadStatus)
	require.NotNil(t, record.VideoStorageKey)
	assert.Equal(t, "video_ABC123.mp4", *record.VideoStorageKey)
	assert.Nil(t, record.ErrorMessage)

	failed := Normalize(sampleItem(), allFlags(), instagram.ContentTypePost, testNow)
	failed.SetStorageOutcome("", fmt.Errorf("connection reset"))
	assert.Equal(t, DownloadStatusFailed, failed.DownloadStatus)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "connection reset")
	assert.Nil(t, failed.VideoStorageKey)
}
