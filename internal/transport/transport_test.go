package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/famomatic/bvdl/internal/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestGet_AppliesHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "https://www.bilibili.com/video/BV1xx" {
			http.Error(w, "bad referer", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client()})
	resp, err := c.Get(context.Background(), srv.URL, http.Header{"Referer": {"https://www.bilibili.com/video/BV1xx"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Body) != "page" {
		t.Fatalf("Get() body = %q", resp.Body)
	}
}

func TestGet_StatusIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client()})
	resp, err := c.Get(context.Background(), srv.URL, nil)
	if resp != nil {
		t.Fatalf("Get() returned a response alongside a failure: %+v", resp)
	}
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	var netErr *types.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected NetworkError with status 403, got %v", err)
	}
}

func TestGet_DoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client()})
	if _, err := c.Get(context.Background(), srv.URL, nil); err == nil {
		t.Fatalf("Get() error = nil, want non-nil")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server saw %d calls, want 1", got)
	}
}

func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client(), Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded in chain, got %v", err)
	}
}

func TestGet_DecodesContentEncoding(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte("gzip-body"))
	_ = zw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte("brotli-body"))
	_ = bw.Close()

	tests := []struct {
		encoding string
		body     []byte
		want     string
	}{
		{encoding: "gzip", body: gz.Bytes(), want: "gzip-body"},
		{encoding: "br", body: br.Bytes(), want: "brotli-body"},
		{encoding: "", body: []byte("plain"), want: "plain"},
	}
	for _, tt := range tests {
		tr := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Accept-Encoding"); !strings.Contains(got, "br") {
				t.Errorf("Accept-Encoding = %q", got)
			}
			h := make(http.Header)
			if tt.encoding != "" {
				h.Set("Content-Encoding", tt.encoding)
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     h,
				Body:       io.NopCloser(bytes.NewReader(tt.body)),
				Request:    r,
			}, nil
		})
		c := New(Config{HTTPClient: &http.Client{Transport: tr}})
		resp, err := c.Get(context.Background(), "https://www.bilibili.com/video/BV1xx", nil)
		if err != nil {
			t.Fatalf("%s: Get() error = %v", tt.encoding, err)
		}
		if string(resp.Body) != tt.want {
			t.Fatalf("%s: body = %q, want %q", tt.encoding, resp.Body, tt.want)
		}
	}
}

func TestGet_MaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client(), MaxBodyBytes: 16})
	if _, err := c.Get(context.Background(), srv.URL, nil); !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("expected ErrNetwork for oversized body, got %v", err)
	}

	c = New(Config{HTTPClient: srv.Client(), MaxBodyBytes: 64})
	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(resp.Body) != 64 {
		t.Fatalf("body length = %d, want 64", len(resp.Body))
	}
}

func TestGet_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client(), RateLimit: 0.01, RateBurst: 1})
	if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, srv.URL, nil); !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("expected ErrNetwork while waiting on limiter, got %v", err)
	}
}

func TestGet_SlowBodyOutlivesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		for i := 0; i < 10; i++ {
			_, _ = w.Write([]byte("0123456789"))
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client(), Timeout: 200 * time.Millisecond})
	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(resp.Body) != 100 {
		t.Fatalf("body length = %d, want 100", len(resp.Body))
	}
}

func TestGet_StalledBodyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("partial"))
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client(), Timeout: 100 * time.Millisecond})
	_, err := c.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	var idleErr *IdleTimeoutError
	if !errors.As(err, &idleErr) || idleErr.Idle != 100*time.Millisecond {
		t.Fatalf("expected IdleTimeoutError(100ms), got %v", err)
	}
}

func TestGet_ContextTimeoutOverridesConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{HTTPClient: srv.Client(), Timeout: time.Minute})
	start := time.Now()
	_, err := c.Get(types.WithTimeout(context.Background(), 50*time.Millisecond), srv.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded in chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Get() took %v, context timeout ignored", elapsed)
	}
}
