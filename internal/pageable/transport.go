package pageable

import (
	"context"
	"net/http"
)

// Transport executes a GET against an absolute URL.
//
// Implementations own timeouts and retries; the sequencer makes exactly one
// attempt per page. A non-nil Response may accompany an error (for example
// a non-2xx status), in which case it is still exposed as the current
// response.
type Transport interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, url string) (*Response, error)

// Fetch calls f(ctx, url).
func (f TransportFunc) Fetch(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}

// Response is the raw result of one page request.
type Response struct {
	// URL is the request URL that produced this response.
	URL string

	StatusCode int
	Header     http.Header
	Content    []byte
}

// HasContent reports whether the response carried a body.
func (r *Response) HasContent() bool {
	return r != nil && len(r.Content) > 0
}
