// Package transport issues the GET requests of a run. Page fetches and
// elementary stream downloads share one client, one header set and one idle timeout.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/famomatic/bvdl/internal/types"
)

// Config controls the HTTP behaviour of a Client.
type Config struct {
	// HTTPClient is used as-is when set; ProxyURL is then ignored.
	HTTPClient *http.Client
	ProxyURL   string
	// Timeout bounds the wait for response headers and every gap between body
	// reads. A slow body that keeps arriving is never cut off. Zero means
	// types.DefaultTimeout; types.WithTimeout overrides it per request.
	Timeout time.Duration
	// RateLimit caps outbound requests per second. Zero disables pacing.
	RateLimit float64
	RateBurst int
	// MaxBodyBytes caps decoded body size. Zero means unlimited.
	MaxBodyBytes int64
}

// SizeAware writers are told the expected body size before the copy starts.
type SizeAware interface {
	ExpectSize(n int64)
}

// Response is a completed, successful GET.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs single-shot GET requests. It never retries.
type Client struct {
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	maxBody int64
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.ProxyURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	c := &Client{
		http:    httpClient,
		timeout: timeout,
		maxBody: cfg.MaxBodyBytes,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// HTTPClient exposes the underlying client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get fetches rawURL and returns the decoded body.
// Any network error, timeout or non-2xx status yields a *types.NetworkError.
func (c *Client) Get(ctx context.Context, rawURL string, headers http.Header) (*Response, error) {
	var buf bytes.Buffer
	resp, err := c.GetTo(ctx, rawURL, headers, &buf)
	if err != nil {
		return nil, err
	}
	resp.Body = buf.Bytes()
	return resp, nil
}

// GetTo fetches rawURL and copies the decoded body into w. The returned
// Response has a nil Body.
func (c *Client) GetTo(ctx context.Context, rawURL string, headers http.Header, w io.Writer) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &types.NetworkError{URL: rawURL, Err: err}
		}
	}

	idle := c.timeout
	if d, ok := types.TimeoutFromContext(ctx); ok {
		idle = d
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	timer := time.AfterFunc(idle, func() { cancel(&IdleTimeoutError{Idle: idle}) })
	defer timer.Stop()
	fail := func(status int, err error) error {
		var idleErr *IdleTimeoutError
		if cause := context.Cause(ctx); errors.As(cause, &idleErr) {
			err = fmt.Errorf("%w (%v)", idleErr, err)
		}
		return &types.NetworkError{URL: rawURL, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.NetworkError{URL: rawURL, Err: err}
	}
	applyRequestHeaders(req, headers)
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()
	resp.Body = &idleReader{ReadCloser: resp.Body, timer: timer, idle: idle}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &types.NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, closeBody, err := decodeBody(resp)
	if err != nil {
		return nil, fail(resp.StatusCode, err)
	}
	defer closeBody()

	if c.maxBody > 0 {
		body = &limitedReader{r: body, remaining: c.maxBody}
	}
	if sa, ok := w.(SizeAware); ok && resp.ContentLength > 0 && resp.Header.Get("Content-Encoding") == "" {
		sa.ExpectSize(resp.ContentLength)
	}
	if _, err := io.Copy(w, body); err != nil {
		return nil, fail(0, fmt.Errorf("read body: %w", err))
	}

	return &Response{
		URL:        finalURL(resp, rawURL),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}, nil
}

// IdleTimeoutError reports that the server sent nothing for Idle.
type IdleTimeoutError struct {
	Idle time.Duration
}

func (e *IdleTimeoutError) Error() string {
	return fmt.Sprintf("no data received for %s", e.Idle)
}

func (e *IdleTimeoutError) Unwrap() error { return context.DeadlineExceeded }

// idleReader pushes the idle deadline back whenever bytes arrive.
type idleReader struct {
	io.ReadCloser
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}

func finalURL(resp *http.Response, fallback string) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return fallback
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var extra [1]byte
		if n, _ := l.r.Read(extra[:]); n > 0 {
			return 0, fmt.Errorf("response body exceeds limit")
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
