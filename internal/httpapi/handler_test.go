package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"

	"github.com/lvcoi/tubeproxy/internal/meta"
)

type stubResolver struct {
	video *meta.Video
	err   error
}

func (s *stubResolver) Resolve(ctx context.Context, input string) (*meta.Video, error) {
	return s.video, s.err
}

type closeRecorder struct {
	io.Reader
	closed atomic.Int32
}

func (c *closeRecorder) Close() error {
	c.closed.Add(1)
	return nil
}

type stubMedia struct {
	video     *youtube.Video
	lookupErr error
	muxed     *closeRecorder
	audio     *closeRecorder
	openErr   error
}

func (s *stubMedia) Lookup(ctx context.Context, id string) (*youtube.Video, error) {
	return s.video, s.lookupErr
}

func (s *stubMedia) OpenMuxed(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	if s.openErr != nil {
		return nil, 0, s.openErr
	}
	return s.muxed, 0, nil
}

func (s *stubMedia) OpenAudio(ctx context.Context, video *youtube.Video) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.audio, nil
}

func newTestHandler(resolver VideoResolver, mediaSource MediaSource) *Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHandler(resolver, mediaSource, log)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["error"]
}

func TestMetadataMissingInput(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodGet, "/api/youtube", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "missing input" {
		t.Fatalf("error = %q", msg)
	}
}

func TestMetadataWhitespaceInputIsMissing(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodGet, "/api/youtube?input=%20%20", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMetadataUnresolved(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodGet, "/api/youtube?input=nonsense", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMetadataUpstreamFault(t *testing.T) {
	handler := newTestHandler(&stubResolver{err: errors.New("videos request failed: 500")}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodGet, "/api/youtube?id=dQw4w9WgXcQ", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestMetadataSuccess(t *testing.T) {
	resolver := &stubResolver{video: &meta.Video{ID: "dQw4w9WgXcQ", Title: "Test", ChannelID: "UC123", ChannelTitle: "Channel"}}
	handler := newTestHandler(resolver, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodGet, "/api/youtube?videoId=dQw4w9WgXcQ", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Video *meta.Video `json:"video"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Video == nil || body.Video.ID != "dQw4w9WgXcQ" {
		t.Fatalf("body = %+v", body)
	}
}

func TestMetadataPost(t *testing.T) {
	resolver := &stubResolver{video: &meta.Video{ID: "dQw4w9WgXcQ"}}
	handler := newTestHandler(resolver, &stubMedia{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/youtube", strings.NewReader(`{"input": "https://youtu.be/dQw4w9WgXcQ"}`))
	handler.Metadata(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetadataPostBadBody(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodPost, "/api/youtube", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMetadataOptions(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Metadata(rec, httptest.NewRequest(http.MethodOptions, "/api/youtube", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("OPTIONS body = %q, want empty", rec.Body.String())
	}
}

func TestCORSHeadersOnEveryResponse(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	wrapped := CORS(http.HandlerFunc(handler.Metadata))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/youtube", nil))

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Fatalf("Allow-Methods = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Content-Type") {
		t.Fatalf("Allow-Headers = %q", got)
	}
}

func muxedVideo() *youtube.Video {
	return &youtube.Video{
		ID:    "dQw4w9WgXcQ",
		Title: "Some / Title",
		Formats: []youtube.Format{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1"`, AudioChannels: 2, Width: 640, Height: 360, Bitrate: 500_000},
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, AudioChannels: 2, Bitrate: 128_000},
		},
	}
}

func TestDownloadMissingInput(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDownloadUnknownType(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?id=dQw4w9WgXcQ&type=gif", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDownloadUnresolvedInput(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{})
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?input=nonsense", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadMuxedHappyPath(t *testing.T) {
	stream := &closeRecorder{Reader: bytes.NewReader([]byte("muxed-bytes"))}
	mediaSource := &stubMedia{video: muxedVideo(), muxed: stream}
	handler := newTestHandler(&stubResolver{}, mediaSource)
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?id=dQw4w9WgXcQ&type=video", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "muxed-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("Content-Type = %q", got)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment; filename*=UTF-8''") || !strings.HasSuffix(disposition, ".mp4") {
		t.Fatalf("Content-Disposition = %q", disposition)
	}
	if strings.Contains(disposition, "/") {
		t.Fatalf("unsanitized filename in %q", disposition)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
	if stream.closed.Load() != 1 {
		t.Fatalf("upstream stream closed %d times, want 1", stream.closed.Load())
	}
}

func TestDownloadAudioHappyPath(t *testing.T) {
	stream := &closeRecorder{Reader: bytes.NewReader([]byte("mp3-bytes"))}
	mediaSource := &stubMedia{video: muxedVideo(), audio: stream}
	handler := newTestHandler(&stubResolver{}, mediaSource)
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?id=dQw4w9WgXcQ&type=audio", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Fatalf("Content-Type = %q", got)
	}
	if !strings.HasSuffix(rec.Header().Get("Content-Disposition"), ".mp3") {
		t.Fatalf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if stream.closed.Load() != 1 {
		t.Fatalf("audio pipeline closed %d times, want 1", stream.closed.Load())
	}
}

func TestDownloadNoMuxedCandidates(t *testing.T) {
	video := &youtube.Video{
		ID:      "dQw4w9WgXcQ",
		Formats: []youtube.Format{{ItagNo: 251, MimeType: "audio/webm", AudioChannels: 2, Bitrate: 128_000}},
	}
	handler := newTestHandler(&stubResolver{}, &stubMedia{video: video})
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?id=dQw4w9WgXcQ&type=video", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestDownloadNoAudioCandidates(t *testing.T) {
	video := &youtube.Video{
		ID:      "dQw4w9WgXcQ",
		Formats: []youtube.Format{{ItagNo: 137, MimeType: "video/webm", Width: 1920, Height: 1080}},
	}
	handler := newTestHandler(&stubResolver{}, &stubMedia{video: video})
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?id=dQw4w9WgXcQ&type=audio", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestDownloadLookupFault(t *testing.T) {
	handler := newTestHandler(&stubResolver{}, &stubMedia{lookupErr: errors.New("fetch failed")})
	rec := httptest.NewRecorder()
	handler.Download(rec, httptest.NewRequest(http.MethodGet, "/api/youtube/download?id=dQw4w9WgXcQ", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
