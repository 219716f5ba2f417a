// Package media resolves available encodings for a video and streams the
// chosen one back, optionally through an MP3 transcode stage.
package media

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
)

// StreamClient is the slice of the retrieval client the service relies on,
// decoupling it from the concrete youtube.Client for testing.
type StreamClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// No overall client timeout: a muxed download legitimately runs for minutes.
// Per-phase limits live on the transport; cancellation comes from the
// request context.
var streamTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// Service wires format lookup, selection, and the streaming pipelines.
type Service struct {
	client StreamClient
	log    logrus.FieldLogger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithStreamClient overrides the retrieval client, used by tests.
func WithStreamClient(client StreamClient) ServiceOption {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

func NewService(log logrus.FieldLogger, opts ...ServiceOption) *Service {
	s := &Service{
		client: &youtube.Client{
			HTTPClient: &http.Client{Transport: streamTransport},
		},
		log: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup fetches the retrieval-side video record, including the format list.
func (s *Service) Lookup(ctx context.Context, id string) (*youtube.Video, error) {
	return s.client.GetVideoContext(ctx, id)
}

// OpenMuxed opens exactly one upstream byte stream for the selected format.
// Chunks are forwarded unmodified; closing the returned stream releases the
// upstream connection.
func (s *Service) OpenMuxed(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	return s.client.GetStreamContext(ctx, video, format)
}
