package types

import (
	"context"
	"net/http"
	"time"
)

// DefaultUserAgent is sent on every request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.80 Safari/537.36"

// DefaultTimeout is how long a request may wait for headers or for the next
// body bytes.
const DefaultTimeout = 60 * time.Second

// RequestContext carries the canonical page URL and the headers shared by
// every request of one run. It must not be mutated after construction.
type RequestContext struct {
	PageURL string
	Header  http.Header
	// Timeout is the idle timeout of every request made through Bind.
	Timeout time.Duration
}

// NewRequestContext builds the shared request context for pageURL.
// The Referer header points at the page itself; the media host rejects
// stream requests without it.
func NewRequestContext(pageURL, userAgent string, timeout time.Duration) *RequestContext {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	h := make(http.Header)
	h.Set("Referer", pageURL)
	h.Set("User-Agent", userAgent)
	return &RequestContext{
		PageURL: pageURL,
		Header:  h,
		Timeout: timeout,
	}
}

// HeaderClone returns a copy of the shared header set.
func (rc *RequestContext) HeaderClone() http.Header {
	if rc == nil || rc.Header == nil {
		return make(http.Header)
	}
	return rc.Header.Clone()
}

// WithReferer returns a header copy whose Referer is referer.
func (rc *RequestContext) WithReferer(referer string) http.Header {
	h := rc.HeaderClone()
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

// Bind returns ctx carrying the run's request timeout.
func (rc *RequestContext) Bind(ctx context.Context) context.Context {
	if rc == nil {
		return ctx
	}
	return WithTimeout(ctx, rc.Timeout)
}
