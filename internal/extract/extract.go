// Package extract turns free-form user input into a canonical YouTube video ID.
package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// idPattern is the canonical shape of a video identifier.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// watchHosts are hosts whose watch pages carry a video marker.
var watchHosts = map[string]bool{
	"youtube.com":       true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

const shortLinkHost = "youtu.be"

// matcher inspects one input shape and reports a candidate ID.
type matcher func(input string) (string, bool)

// matchers run in priority order and short-circuit on the first hit. The
// literal check must stay ahead of URL parsing so a raw ID is never
// misrouted into the URL branch.
var matchers = []matcher{matchLiteral, matchURL}

// VideoID extracts the 11-character video ID from a raw ID, a watch URL, a
// shorts or embed URL, or a youtu.be short link. Malformed input is not an
// error; it reports ok=false.
func VideoID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	for _, match := range matchers {
		if id, ok := match(input); ok {
			return id, true
		}
	}
	return "", false
}

func matchLiteral(input string) (string, bool) {
	if idPattern.MatchString(input) {
		return input, true
	}
	return "", false
}

func matchURL(input string) (string, bool) {
	parsed, err := url.Parse(input)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch {
	case watchHosts[host]:
		return matchWatchPage(parsed)
	case host == shortLinkHost:
		return firstSegment(parsed.Path)
	}
	return "", false
}

// matchWatchPage checks watch-page markers in fixed priority order: the v
// query parameter, then the segment after "shorts", then the segment after
// "embed". A URL can carry more than one marker; the order must hold.
func matchWatchPage(u *url.URL) (string, bool) {
	if v := u.Query().Get("v"); idPattern.MatchString(v) {
		return v, true
	}
	for _, marker := range []string{"shorts", "embed"} {
		if id, ok := segmentAfter(u.Path, marker); ok {
			return id, true
		}
	}
	return "", false
}

func segmentAfter(path, marker string) (string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if segment == marker && i+1 < len(segments) && idPattern.MatchString(segments[i+1]) {
			return segments[i+1], true
		}
	}
	return "", false
}

func firstSegment(path string) (string, bool) {
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		if idPattern.MatchString(segment) {
			return segment, true
		}
		return "", false
	}
	return "", false
}
