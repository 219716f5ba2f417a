// Package meta fetches video and channel records from the YouTube Data API
// and normalizes them into one response shape.
package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTimeout = 15 * time.Second

	videoParts   = "snippet,contentDetails,statistics"
	channelParts = "snippet,statistics"
)

// ErrNoAPIKey is returned when a lookup runs without a configured credential.
// The credential is checked at call time, not at startup.
var ErrNoAPIKey = errors.New("youtube api key is not configured")

// Client issues uncached resource-listing calls against the Data API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at an alternate API root, used by tests.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-call timeout on the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient creates a Data API client. The key may be empty; lookups then
// fail with ErrNoAPIKey when invoked.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchVideo fetches one video record by ID. A video absent upstream is a
// normal outcome and maps to (nil, nil); only transport failures and
// non-success statuses are errors.
func (c *Client) FetchVideo(ctx context.Context, id string) (*Video, error) {
	var decoded videoListResponse
	query := url.Values{"part": {videoParts}, "id": {id}}
	if err := c.getJSON(ctx, "videos", query, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Items) == 0 {
		return nil, nil
	}
	return decoded.Items[0].normalize(), nil
}

// FetchChannel fetches one channel record by ID, with the same not-found
// semantics as FetchVideo.
func (c *Client) FetchChannel(ctx context.Context, id string) (*Channel, error) {
	var decoded channelListResponse
	query := url.Values{"part": {channelParts}, "id": {id}}
	if err := c.getJSON(ctx, "channels", query, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Items) == 0 {
		return nil, nil
	}
	return decoded.Items[0].normalize(), nil
}

func (c *Client) getJSON(ctx context.Context, resource string, query url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	query.Set("key", c.apiKey)

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, resource, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s request failed: %s (%s)", resource, resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", resource, err)
	}
	return nil
}

// Wire shapes of the Data API list responses. Counters arrive as strings and
// are coerced during normalization.

type videoListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		PublishedAt  string                   `json:"publishedAt"`
		ChannelID    string                   `json:"channelId"`
		Title        string                   `json:"title"`
		Description  string                   `json:"description"`
		Thumbnails   map[string]wireThumbnail `json:"thumbnails"`
		ChannelTitle string                   `json:"channelTitle"`
		Tags         []string                 `json:"tags"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

type channelListResponse struct {
	Items []channelItem `json:"items"`
}

type channelItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string                   `json:"title"`
		Description string                   `json:"description"`
		Thumbnails  map[string]wireThumbnail `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		SubscriberCount string `json:"subscriberCount"`
		VideoCount      string `json:"videoCount"`
	} `json:"statistics"`
}

type wireThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (item videoItem) normalize() *Video {
	video := &Video{
		ID:           item.ID,
		URL:          WatchURL(item.ID),
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		PublishedAt:  item.Snippet.PublishedAt,
		ChannelID:    item.Snippet.ChannelID,
		ChannelTitle: item.Snippet.ChannelTitle,
		Thumbnails:   normalizeThumbnails(item.Snippet.Thumbnails),
		Duration:     item.ContentDetails.Duration,
		Tags:         item.Snippet.Tags,
	}
	stats := &Statistics{
		ViewCount:    parseCount(item.Statistics.ViewCount),
		LikeCount:    parseCount(item.Statistics.LikeCount),
		CommentCount: parseCount(item.Statistics.CommentCount),
	}
	if !stats.empty() {
		video.Statistics = stats
	}
	return video
}

func (item channelItem) normalize() *Channel {
	return &Channel{
		ID:              item.ID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		Thumbnails:      normalizeThumbnails(item.Snippet.Thumbnails),
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		VideoCount:      parseCount(item.Statistics.VideoCount),
	}
}

func normalizeThumbnails(wire map[string]wireThumbnail) map[string]Thumbnail {
	if len(wire) == 0 {
		return nil
	}
	thumbnails := make(map[string]Thumbnail, len(wire))
	for key, thumb := range wire {
		thumbnails[key] = Thumbnail{URL: thumb.URL, Width: thumb.Width, Height: thumb.Height}
	}
	return thumbnails
}
