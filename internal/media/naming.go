package media

import (
	"regexp"
	"strings"
)

// Extension maps a format's MIME type to the suggested filename extension.
// It only affects the filename, never the byte stream.
func Extension(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	subtype := mime
	if i := strings.Index(mime, "/"); i >= 0 {
		subtype = mime[i+1:]
	}
	switch {
	case strings.Contains(subtype, "webm"):
		return "webm"
	case strings.Contains(subtype, "matroska"):
		return "mkv"
	default:
		return "mp4"
	}
}

// ContentType strips codec parameters from a MIME type for the response
// header.
func ContentType(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(mime)
}

var invalidFilenameRunes = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// SanitizeFilename makes a video title safe for a Content-Disposition
// filename.
func SanitizeFilename(name string) string {
	clean := invalidFilenameRunes.ReplaceAllString(name, "-")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "video"
	}
	return clean
}
