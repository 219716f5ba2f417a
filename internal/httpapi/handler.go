// Package httpapi is the boundary adapter: it parses requests, invokes the
// resolution and streaming pipelines, and maps their outcomes onto HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"

	"github.com/lvcoi/tubeproxy/internal/extract"
	"github.com/lvcoi/tubeproxy/internal/media"
	"github.com/lvcoi/tubeproxy/internal/meta"
)

// VideoResolver resolves free-form input into a normalized video entity.
type VideoResolver interface {
	Resolve(ctx context.Context, input string) (*meta.Video, error)
}

// MediaSource looks up the format list and opens byte streams.
type MediaSource interface {
	Lookup(ctx context.Context, id string) (*youtube.Video, error)
	OpenMuxed(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
	OpenAudio(ctx context.Context, video *youtube.Video) (io.ReadCloser, error)
}

// Handler serves the /api/youtube surface.
type Handler struct {
	resolver VideoResolver
	media    MediaSource
	log      logrus.FieldLogger
}

func NewHandler(resolver VideoResolver, mediaSource MediaSource, log logrus.FieldLogger) *Handler {
	return &Handler{resolver: resolver, media: mediaSource, log: log}
}

// Metadata handles GET/POST/OPTIONS /api/youtube.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		h.serveMetadata(w, r, inputParam(r, "input", "url", "id", "videoId"))
	case http.MethodPost:
		var body struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		h.serveMetadata(w, r, strings.TrimSpace(body.Input))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) serveMetadata(w http.ResponseWriter, r *http.Request, input string) {
	if input == "" {
		writeError(w, http.StatusBadRequest, "missing input")
		return
	}

	video, err := h.resolver.Resolve(r.Context(), input)
	if err != nil {
		h.log.WithField("input", input).WithError(err).Error("metadata lookup failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if video == nil {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*meta.Video{"video": video})
}

// Download handles GET /api/youtube/download.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	input := inputParam(r, "input", "id", "url")
	if input == "" {
		writeError(w, http.StatusBadRequest, "missing input")
		return
	}
	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = "video"
	}
	if kind != "video" && kind != "audio" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", kind))
		return
	}

	id, ok := extract.VideoID(input)
	if !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	video, err := h.media.Lookup(r.Context(), id)
	if err != nil {
		h.log.WithField("video", id).WithError(err).Error("format lookup failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if kind == "audio" {
		h.serveAudio(w, r, video)
		return
	}
	h.serveMuxed(w, r, video)
}

func (h *Handler) serveMuxed(w http.ResponseWriter, r *http.Request, video *youtube.Video) {
	format, err := media.SelectMuxed(video.Formats)
	if err != nil {
		if errors.Is(err, media.ErrNoFormats) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stream, size, err := h.media.OpenMuxed(r.Context(), video, format)
	if err != nil {
		h.log.WithField("video", video.ID).WithError(err).Error("opening muxed stream failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", media.ContentType(format.MimeType))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	setDownloadHeaders(w, video.Title, media.Extension(format.MimeType))
	h.copyStream(w, r, stream, video.ID)
}

func (h *Handler) serveAudio(w http.ResponseWriter, r *http.Request, video *youtube.Video) {
	// Fail fast with a clear condition before committing to a transcode.
	if _, err := media.SelectAudioOnly(video.Formats); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stream, err := h.media.OpenAudio(r.Context(), video)
	if err != nil {
		if errors.Is(err, media.ErrNoFormats) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.WithField("video", video.ID).WithError(err).Error("opening audio pipeline failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	setDownloadHeaders(w, video.Title, "mp3")
	h.copyStream(w, r, stream, video.ID)
}

// copyStream forwards the media bytes, stopping as soon as the request
// context is canceled. Once headers are out, an in-stream fault can only
// terminate the byte stream; there is no status left to send.
func (h *Handler) copyStream(w http.ResponseWriter, r *http.Request, stream io.Reader, videoID string) {
	if _, err := io.Copy(w, &contextReader{ctx: r.Context(), r: stream}); err != nil {
		h.log.WithField("video", videoID).WithError(err).Warn("stream ended early")
	}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}

func setDownloadHeaders(w http.ResponseWriter, title, ext string) {
	filename := media.SanitizeFilename(title) + "." + ext
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.Header().Set("Cache-Control", "no-store")
}

func inputParam(r *http.Request, keys ...string) string {
	query := r.URL.Query()
	for _, key := range keys {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return value
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
