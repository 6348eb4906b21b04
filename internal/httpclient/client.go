// Package httpclient builds the instrumented HTTP clients used for vendor
// and proxy calls.
package httpclient

import (
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorSnippet = 512

// New returns a client traced through otelhttp. A zero timeout leaves the
// client unbounded; callers then rely on their context deadline.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// ErrorSnippet drains at most a few hundred bytes of an error response body
// for logging.
func ErrorSnippet(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, maxErrorSnippet))
	return strings.TrimSpace(string(b))
}
