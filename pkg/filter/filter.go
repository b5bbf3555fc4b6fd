package filter

import (
	"fmt"
	"time"

	"igvideodl/pkg/instagram"
)

// Options holds the content selection rules for a run. The zero value
// accepts every item.
type Options struct {
	// VideosOnly drops items that are not videos
	VideosOnly bool

	// MinLikes drops items with fewer likes; nil disables the rule
	MinLikes *int

	// DateFrom is the inclusive lower bound on the posting date; zero
	// disables the rule
	DateFrom time.Time

	// DateTo is the inclusive upper bound on the posting date; zero
	// disables the rule
	DateTo time.Time
}

// ParseDate parses a YYYY-MM-DD date bound in UTC
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// FromConfig builds Options from raw run configuration values
func FromConfig(videosOnly bool, minLikes *int, dateFrom, dateTo string) (Options, error) {
	opts := Options{
		VideosOnly: videosOnly,
		MinLikes:   minLikes,
	}

	var err error
	if opts.DateFrom, err = ParseDate(dateFrom); err != nil {
		return Options{}, err
	}
	if opts.DateTo, err = ParseDate(dateTo); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Include reports whether an item passes every configured rule. Date
// bounds compare calendar days in UTC, so an item posted at any time on
// the boundary day is included.
func Include(item *instagram.ContentItem, opts Options) bool {
	if opts.VideosOnly && !item.IsVideo {
		return false
	}

	if opts.MinLikes != nil && item.Likes < *opts.MinLikes {
		return false
	}

	if !opts.DateFrom.IsZero() || !opts.DateTo.IsZero() {
		day := dateOnly(item.Timestamp)
		if !opts.DateFrom.IsZero() && day.Before(dateOnly(opts.DateFrom)) {
			return false
		}
		if !opts.DateTo.IsZero() && day.After(dateOnly(opts.DateTo)) {
			return false
		}
	}

	return true
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
