package meta

import (
	"net"
	"net/http"
	"time"
)

const defaultUserAgent = "tubeproxy/1.0"

var sharedTransport = &http.Transport{
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

// headerTransport fills in default headers without mutating the caller's
// request.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	if cloned.Header.Get("User-Agent") == "" {
		cloned.Header.Set("User-Agent", t.userAgent)
	}
	if cloned.Header.Get("Accept") == "" {
		cloned.Header.Set("Accept", "application/json")
	}
	return t.base.RoundTrip(cloned)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:      sharedTransport,
			userAgent: defaultUserAgent,
		},
	}
}
