package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// MediaEndpoint is the endpoint pattern for paginated media queries
	MediaEndpoint = "/graphql/query/"

	// TimelineQueryHash is the query hash for a user's timeline posts
	TimelineQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// ClipsQueryHash is the query hash for a user's reels
	ClipsQueryHash = "30273857fa6b80d85734b78aba768547"

	// IGTVQueryHash is the query hash for a user's IGTV videos
	IGTVQueryHash = "bc78b344a68ed16dd5d7f264681c4c76"

	// StoriesEndpoint is the endpoint for active story reels
	StoriesEndpoint = "/api/v1/feed/reels_media/"

	// DefaultPageSize is the number of media items fetched per page
	DefaultPageSize = 12

	// MaxPageSize is the largest page Instagram will serve
	MaxPageSize = 50
)

// queryHashFor maps a content type to its GraphQL query hash. Stories use
// a different endpoint entirely and have no hash.
func queryHashFor(contentType ContentType) string {
	switch contentType {
	case ContentTypeReel:
		return ClipsQueryHash
	case ContentTypeIGTV:
		return IGTVQueryHash
	default:
		return TimelineQueryHash
	}
}

// ProfileURL constructs the URL for fetching a user's profile
func ProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", BaseURL, ProfileEndpoint, params.Encode())
}

// MediaPageURL constructs the URL for one page of a user's media feed
func MediaPageURL(userID string, contentType ContentType, after string, pageSize int) string {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	params := url.Values{}
	params.Set("query_hash", queryHashFor(contentType))
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, pageSize, after))

	return fmt.Sprintf("%s%s?%s", BaseURL, MediaEndpoint, params.Encode())
}

// StoriesURL constructs the URL for a user's active story reel
func StoriesURL(userID string) string {
	params := url.Values{}
	params.Set("reel_ids", userID)

	return fmt.Sprintf("%s%s?%s", BaseURL, StoriesEndpoint, params.Encode())
}

// PostURL constructs the public URL for a specific post
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	if username[0] == '@' {
		username = username[1:]
	}

	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
