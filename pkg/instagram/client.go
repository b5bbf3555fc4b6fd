package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"igvideodl/pkg/auth"
	"igvideodl/pkg/errors"
	"igvideodl/pkg/logger"
	"igvideodl/pkg/ratelimit"
)

// Client talks to the Instagram web API. It implements Fetcher.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
	pageSize   int
}

// NewClient creates a new Instagram API client. The limiter is consulted
// before every request; pass nil to disable rate limiting.
func NewClient(timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      "936619743392459",
			"X-Requested-With": "XMLHttpRequest",
		},
		baseURL:  BaseURL,
		limiter:  limiter,
		logger:   log,
		pageSize: DefaultPageSize,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// FetchContent looks up the profile and returns a lazy iterator over its
// content of the given type. Stories require an authenticated session.
func (c *Client) FetchContent(ctx context.Context, username string, contentType ContentType, session *auth.Session, limit int) (ItemIterator, error) {
	username = SanitizeUsername(username)

	if contentType == ContentTypeStory && session == nil {
		return nil, errors.New(errors.ErrorTypeUnauthorized,
			fmt.Sprintf("stories for %s require an authenticated session", username), http.StatusUnauthorized)
	}

	user, err := c.lookupProfile(ctx, username, session)
	if err != nil {
		return nil, err
	}

	if user.IsPrivate && session == nil {
		return nil, errors.New(errors.ErrorTypePrivateProfile,
			fmt.Sprintf("profile %s is private", username), http.StatusForbidden)
	}

	if contentType == ContentTypeStory {
		return c.fetchStories(ctx, user, username, session, limit)
	}

	return &feedIterator{
		ctx:         ctx,
		client:      c,
		userID:      user.ID,
		username:    username,
		contentType: contentType,
		session:     session,
		limit:       limit,
		hasNext:     true,
	}, nil
}

// lookupProfile resolves a username to its profile record
func (c *Client) lookupProfile(ctx context.Context, username string, session *auth.Session) (*wireUser, error) {
	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
	})

	var response profileResponse
	if err := c.getJSON(ctx, ProfileURL(username), session, &response); err != nil {
		if apiErr, ok := err.(*errors.Error); ok && apiErr.Type == errors.ErrorTypeProfileNotFound {
			return nil, errors.New(errors.ErrorTypeProfileNotFound,
				fmt.Sprintf("profile %s does not exist", username), apiErr.Code)
		}
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, errors.New(errors.ErrorTypeUnauthorized,
			fmt.Sprintf("Instagram requires a login session to view %s", username), http.StatusUnauthorized)
	}

	if response.Data.User == nil || response.Data.User.ID == "" {
		return nil, errors.New(errors.ErrorTypeProfileNotFound,
			fmt.Sprintf("profile %s does not exist", username), http.StatusNotFound)
	}

	return response.Data.User, nil
}

// fetchStories loads the active story reel in a single request. Story
// reels are small, so no pagination is needed.
func (c *Client) fetchStories(ctx context.Context, user *wireUser, username string, session *auth.Session, limit int) (ItemIterator, error) {
	var response storiesResponse
	if err := c.getJSON(ctx, StoriesURL(user.ID), session, &response); err != nil {
		return nil, err
	}

	var items []*ContentItem
	for _, reel := range response.Reels {
		for i := range reel.Items {
			if limit > 0 && len(items) >= limit {
				break
			}
			items = append(items, reel.Items[i].toContentItem(username))
		}
	}

	c.logger.DebugWithFields("fetched story reel", map[string]interface{}{
		"username": username,
		"items":    len(items),
	})

	return NewSliceIterator(items), nil
}

// fetchMediaPage loads one page of a paginated media feed
func (c *Client) fetchMediaPage(ctx context.Context, userID string, contentType ContentType, after string, session *auth.Session) (*mediaConnection, error) {
	var response mediaResponse
	url := MediaPageURL(userID, contentType, after, c.pageSize)
	if err := c.getJSON(ctx, url, session, &response); err != nil {
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, errors.New(errors.ErrorTypeUnauthorized,
			"Instagram requires a login session to view this feed", http.StatusUnauthorized)
	}

	if response.Data.User == nil {
		return nil, errors.New(errors.ErrorTypeProfileNotFound,
			"profile disappeared during feed pagination", http.StatusNotFound)
	}

	return &response.Data.User.Media, nil
}

// DownloadVideo streams the video bytes at the given URL. The caller must
// close the returned reader.
func (c *Client) DownloadVideo(ctx context.Context, videoURL string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, videoURL, nil)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// get performs a rate-limited GET request with the configured headers
func (c *Client) get(ctx context.Context, url string, session *auth.Session) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if session != nil {
		req.Header.Set("Cookie", session.CookieHeader())
		if session.CSRFToken != "" {
			req.Header.Set("X-CSRFToken", session.CSRFToken)
		}
		if session.UserAgent != "" {
			req.Header.Set("User-Agent", session.UserAgent)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(errors.ErrorTypeConnection, fmt.Sprintf("network error: %v", err), 0)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, url string, session *auth.Session, target interface{}) error {
	resp, err := c.get(ctx, url, session)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.ErrorTypeConnection,
			fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.New(errors.ErrorTypeUnknown,
			fmt.Sprintf("failed to parse JSON: %v", err), resp.StatusCode)
	}

	return nil
}

// checkResponseStatus maps non-success status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	errType := errors.ClassifyStatusCode(resp.StatusCode)
	url := ""
	if resp.Request != nil {
		url = resp.Request.URL.String()
	}
	c.logger.WarnWithFields("API request failed", map[string]interface{}{
		"status": resp.StatusCode,
		"url":    url,
		"type":   string(errType),
	})

	return errors.New(errType, fmt.Sprintf("server returned status %d", resp.StatusCode), resp.StatusCode)
}

// feedIterator pages through a media feed lazily, fetching the next page
// only when the buffered items are exhausted
type feedIterator struct {
	ctx         context.Context
	client      *Client
	userID      string
	username    string
	contentType ContentType
	session     *auth.Session
	limit       int
	yielded     int
	buffer      []*ContentItem
	after       string
	hasNext     bool
}

// Next returns the next item, fetching a new page when needed
func (it *feedIterator) Next() (*ContentItem, error) {
	if it.limit > 0 && it.yielded >= it.limit {
		return nil, ErrEndOfFeed
	}

	for len(it.buffer) == 0 {
		if !it.hasNext {
			return nil, ErrEndOfFeed
		}
		if err := it.fetchNextPage(); err != nil {
			return nil, err
		}
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]
	it.yielded++
	return item, nil
}

func (it *feedIterator) fetchNextPage() error {
	conn, err := it.client.fetchMediaPage(it.ctx, it.userID, it.contentType, it.after, it.session)
	if err != nil {
		return err
	}

	for i := range conn.Edges {
		it.buffer = append(it.buffer, conn.Edges[i].Node.toContentItem(it.username))
	}

	it.after = conn.PageInfo.EndCursor
	it.hasNext = conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != ""
	return nil
}
