package instagram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igvideodl/pkg/auth"
)

// ContentType is a category of fetched unit
type ContentType string

const (
	ContentTypePost  ContentType = "post"
	ContentTypeReel  ContentType = "reel"
	ContentTypeStory ContentType = "story"
	ContentTypeIGTV  ContentType = "igtv"
)

// ContentTypePriority is the fixed order in which content types are
// processed within a profile
var ContentTypePriority = []ContentType{
	ContentTypePost,
	ContentTypeReel,
	ContentTypeStory,
	ContentTypeIGTV,
}

// ParseContentType validates a content type string
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentTypePost, ContentTypeReel, ContentTypeStory, ContentTypeIGTV:
		return ContentType(s), nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// SelectContentTypes returns the requested types in priority order,
// dropping duplicates and unknown values
func SelectContentTypes(requested []string) []ContentType {
	want := make(map[ContentType]bool, len(requested))
	for _, r := range requested {
		if ct, err := ParseContentType(r); err == nil {
			want[ct] = true
		}
	}

	var selected []ContentType
	for _, ct := range ContentTypePriority {
		if want[ct] {
			selected = append(selected, ct)
		}
	}
	return selected
}

// Comment is a single comment on a content item
type Comment struct {
	Owner     string    `json:"owner"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
}

// ContentItem is a single fetched unit of profile content. It is produced
// by the fetch collaborator and read-only to the pipeline.
type ContentItem struct {
	ID            string
	Shortcode     string
	Username      string
	Timestamp     time.Time
	IsVideo       bool
	Caption       string
	Likes         int
	CommentsCount int
	ViewCount     int
	Duration      float64
	VideoURL      string
	Location      string
	Comments      []Comment
}

// ErrEndOfFeed signals an exhausted item iterator
var ErrEndOfFeed = errors.New("end of feed")

// ItemIterator yields content items lazily. Iterators are finite and
// non-restartable; a fresh fetch is required to iterate again.
type ItemIterator interface {
	// Next returns the next item, or ErrEndOfFeed when exhausted
	Next() (*ContentItem, error)
}

// Fetcher retrieves content for a profile. limit caps the number of items
// the iterator will yield; 0 means no cap.
type Fetcher interface {
	FetchContent(ctx context.Context, username string, contentType ContentType, session *auth.Session, limit int) (ItemIterator, error)
}

// SliceIterator adapts a fixed item slice into an ItemIterator. Used by
// tests and anywhere a feed has already been materialized.
type SliceIterator struct {
	items []*ContentItem
	pos   int
}

// NewSliceIterator creates an iterator over the given items
func NewSliceIterator(items []*ContentItem) *SliceIterator {
	return &SliceIterator{items: items}
}

// Next returns the next item or ErrEndOfFeed
func (it *SliceIterator) Next() (*ContentItem, error) {
	if it.pos >= len(it.items) {
		return nil, ErrEndOfFeed
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}
