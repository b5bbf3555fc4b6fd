package filter

import (
	"testing"
	"time"

	"igvideodl/pkg/instagram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func item(isVideo bool, likes int, timestamp string) *instagram.ContentItem {
	ts, _ := time.Parse(time.RFC3339, timestamp)
	return &instagram.ContentItem{
		Shortcode: "ABC",
		IsVideo:   isVideo,
		Likes:     likes,
		Timestamp: ts,
	}
}

func TestInclude(t *testing.T) {
	tests := []struct {
		name     string
		item     *instagram.ContentItem
		opts     Options
		included bool
	}{
		{
			name:     "zero options accept everything",
			item:     item(false, 0, "2020-01-01T00:00:00Z"),
			opts:     Options{},
			included: true,
		},
		{
			name:     "videos only rejects photo",
			item:     item(false, 5000, "2024-06-01T12:00:00Z"),
			opts:     Options{VideosOnly: true},
			included: false,
		},
		{
			name:     "videos only accepts video",
			item:     item(true, 5000, "2024-06-01T12:00:00Z"),
			opts:     Options{VideosOnly: true},
			included: true,
		},
		{
			name:     "min likes rejects below threshold",
			item:     item(true, 999, "2024-06-01T12:00:00Z"),
			opts:     Options{MinLikes: intPtr(1000)},
			included: false,
		},
		{
			name:     "min likes accepts exact threshold",
			item:     item(true, 1000, "2024-06-01T12:00:00Z"),
			opts:     Options{MinLikes: intPtr(1000)},
			included: true,
		},
		{
			name:     "zero likes with min likes set",
			item:     item(true, 0, "2024-06-01T12:00:00Z"),
			opts:     Options{MinLikes: intPtr(1)},
			included: false,
		},
		{
			name:     "date from rejects older item",
			item:     item(true, 100, "2023-12-31T23:59:59Z"),
			opts:     Options{DateFrom: mustDate(t, "2024-01-01")},
			included: false,
		},
		{
			name:     "date from boundary day is inclusive",
			item:     item(true, 100, "2024-01-01T00:00:01Z"),
			opts:     Options{DateFrom: mustDate(t, "2024-01-01")},
			included: true,
		},
		{
			name:     "date to boundary day end is inclusive",
			item:     item(true, 100, "2024-03-31T23:00:00Z"),
			opts:     Options{DateTo: mustDate(t, "2024-03-31")},
			included: true,
		},
		{
			name:     "date to rejects newer item",
			item:     item(true, 100, "2024-04-01T00:00:00Z"),
			opts:     Options{DateTo: mustDate(t, "2024-03-31")},
			included: false,
		},
		{
			name: "all rules combined",
			item: item(true, 1500, "2024-02-15T10:00:00Z"),
			opts: Options{
				VideosOnly: true,
				MinLikes:   intPtr(1000),
				DateFrom:   mustDate(t, "2024-01-01"),
				DateTo:     mustDate(t, "2024-12-31"),
			},
			included: true,
		},
		{
			name: "combined rules fail on one",
			item: item(true, 500, "2024-02-15T10:00:00Z"),
			opts: Options{
				VideosOnly: true,
				MinLikes:   intPtr(1000),
				DateFrom:   mustDate(t, "2024-01-01"),
			},
			included: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.included, Include(tt.item, tt.opts))
		})
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("01/02/2024")
	assert.Error(t, err)

	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	opts, err := FromConfig(true, intPtr(1000), "2024-01-01", "2024-06-30")
	require.NoError(t, err)
	assert.True(t, opts.VideosOnly)
	assert.Equal(t, 1000, *opts.MinLikes)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), opts.DateFrom)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), opts.DateTo)

	_, err = FromConfig(false, nil, "not-a-date", "")
	assert.Error(t, err)
}
