package instagram

import (
	"strings"
	"time"
)

// profileResponse is the top-level response for a profile lookup
type profileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            data   `json:"data"`
	Status          string `json:"status"`
}

type data struct {
	User *wireUser `json:"user"`
}

// wireUser is an Instagram user profile as returned by the web API
type wireUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsPrivate bool   `json:"is_private"`
}

// mediaResponse is the top-level response for a paginated media query
type mediaResponse struct {
	RequiresToLogin bool      `json:"requires_to_login"`
	Data            mediaData `json:"data"`
	Status          string    `json:"status"`
}

type mediaData struct {
	User *mediaUser `json:"user"`
}

type mediaUser struct {
	Media mediaConnection `json:"edge_owner_to_timeline_media"`
}

// mediaConnection is a paginated edge list of media nodes
type mediaConnection struct {
	Count    int        `json:"count"`
	PageInfo pageInfo   `json:"page_info"`
	Edges    []nodeEdge `json:"edges"`
}

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

type nodeEdge struct {
	Node wireNode `json:"node"`
}

// wireNode is a single media item in a feed page
type wireNode struct {
	ID               string        `json:"id"`
	Shortcode        string        `json:"shortcode"`
	TakenAtTimestamp int64         `json:"taken_at_timestamp"`
	IsVideo          bool          `json:"is_video"`
	VideoURL         string        `json:"video_url"`
	VideoViewCount   int           `json:"video_view_count"`
	VideoDuration    float64       `json:"video_duration"`
	Caption          captionEdges  `json:"edge_media_to_caption"`
	Likes            countEdge     `json:"edge_media_preview_like"`
	Comments         commentEdges  `json:"edge_media_to_comment"`
	Location         *wireLocation `json:"location"`
	Owner            *wireOwner    `json:"owner"`
}

type countEdge struct {
	Count int `json:"count"`
}

type captionEdges struct {
	Edges []captionEdge `json:"edges"`
}

type captionEdge struct {
	Node captionNode `json:"node"`
}

type captionNode struct {
	Text string `json:"text"`
}

type commentEdges struct {
	Count int           `json:"count"`
	Edges []commentEdge `json:"edges"`
}

type commentEdge struct {
	Node wireComment `json:"node"`
}

type wireComment struct {
	Text      string     `json:"text"`
	CreatedAt int64      `json:"created_at"`
	LikedBy   countEdge  `json:"edge_liked_by"`
	Owner     *wireOwner `json:"owner"`
}

type wireOwner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type wireLocation struct {
	Name string `json:"name"`
}

// storiesResponse is the response for an active story reel lookup
type storiesResponse struct {
	Reels  map[string]storyReel `json:"reels"`
	Status string               `json:"status"`
}

type storyReel struct {
	Items []storyItem `json:"items"`
}

// storyItem is a single story segment
type storyItem struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	TakenAt       int64          `json:"taken_at"`
	MediaType     int            `json:"media_type"`
	VideoDuration float64        `json:"video_duration"`
	VideoVersions []videoVersion `json:"video_versions"`
}

type videoVersion struct {
	URL string `json:"url"`
}

const storyMediaTypeVideo = 2

// toContentItem converts a feed node into the internal content model
func (n *wireNode) toContentItem(username string) *ContentItem {
	item := &ContentItem{
		ID:            n.ID,
		Shortcode:     n.Shortcode,
		Username:      username,
		Timestamp:     time.Unix(n.TakenAtTimestamp, 0).UTC(),
		IsVideo:       n.IsVideo,
		Likes:         n.Likes.Count,
		CommentsCount: n.Comments.Count,
		ViewCount:     n.VideoViewCount,
		Duration:      n.VideoDuration,
		VideoURL:      n.VideoURL,
	}

	if n.Owner != nil && n.Owner.Username != "" {
		item.Username = n.Owner.Username
	}
	if len(n.Caption.Edges) > 0 {
		item.Caption = strings.TrimSpace(n.Caption.Edges[0].Node.Text)
	}
	if n.Location != nil {
		item.Location = n.Location.Name
	}

	for _, edge := range n.Comments.Edges {
		c := Comment{
			Text:      edge.Node.Text,
			CreatedAt: time.Unix(edge.Node.CreatedAt, 0).UTC(),
			Likes:     edge.Node.LikedBy.Count,
		}
		if edge.Node.Owner != nil {
			c.Owner = edge.Node.Owner.Username
		}
		item.Comments = append(item.Comments, c)
	}

	return item
}

// toContentItem converts a story segment into the internal content model.
// Stories carry no engagement counts or captions.
func (s *storyItem) toContentItem(username string) *ContentItem {
	item := &ContentItem{
		ID:        s.ID,
		Shortcode: s.Code,
		Username:  username,
		Timestamp: time.Unix(s.TakenAt, 0).UTC(),
		IsVideo:   s.MediaType == storyMediaTypeVideo,
		Duration:  s.VideoDuration,
	}
	if item.Shortcode == "" {
		item.Shortcode = s.ID
	}
	if len(s.VideoVersions) > 0 {
		item.VideoURL = s.VideoVersions[0].URL
	}
	return item
}
