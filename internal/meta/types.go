package meta

import "strconv"

// Thumbnail is one rendition of a video or channel image. Width and height
// are optional upstream; a missing dimension counts as zero area when
// renditions are ranked.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Area reports width*height, or 0 when either dimension is unknown.
func (t Thumbnail) Area() int {
	if t.Width <= 0 || t.Height <= 0 {
		return 0
	}
	return t.Width * t.Height
}

// Statistics carries the view/like/comment counters of a video. The upstream
// API encodes them as strings; a nil field means the counter was absent
// upstream, which is not the same thing as zero.
type Statistics struct {
	ViewCount    *uint64 `json:"viewCount,omitempty"`
	LikeCount    *uint64 `json:"likeCount,omitempty"`
	CommentCount *uint64 `json:"commentCount,omitempty"`
}

func (s *Statistics) empty() bool {
	return s == nil || (s.ViewCount == nil && s.LikeCount == nil && s.CommentCount == nil)
}

// Channel is the independently fetched owner record of a video.
type Channel struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	Thumbnails      map[string]Thumbnail `json:"thumbnails,omitempty"`
	SubscriberCount *uint64              `json:"subscriberCount,omitempty"`
	VideoCount      *uint64              `json:"videoCount,omitempty"`
}

// Video is the normalized entity returned to callers. ChannelID and
// ChannelTitle always come from the video record itself; the nested Channel
// is best-effort enrichment and may be absent or diverge from them.
type Video struct {
	ID           string               `json:"id"`
	URL          string               `json:"url"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	PublishedAt  string               `json:"publishedAt"`
	ChannelID    string               `json:"channelId"`
	ChannelTitle string               `json:"channelTitle"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"`
	Duration     string               `json:"duration"`
	Tags         []string             `json:"tags,omitempty"`
	Statistics   *Statistics          `json:"statistics,omitempty"`
	Channel      *Channel             `json:"channel,omitempty"`
}

// WatchURL builds the canonical watch-page URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// parseCount coerces an upstream string counter to an integer. Empty or
// malformed values map to nil ("unknown"), never to zero.
func parseCount(raw string) *uint64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}
