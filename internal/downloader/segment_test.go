package downloader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/famomatic/bvdl/internal/transport"
	"github.com/famomatic/bvdl/internal/types"
)

type recordingReporter struct {
	mu       sync.Mutex
	total    int64
	last     int64
	finished bool
	err      error
}

func (r *recordingReporter) OnStart(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingReporter) OnProgress(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = n
}

func (r *recordingReporter) OnFinish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	r.err = err
}

type factoryFunc func(label string) ProgressReporter

func (f factoryFunc) NewReporter(label string) ProgressReporter { return f(label) }

func TestSegmentDownloader_SendsPageReferer(t *testing.T) {
	const page = "https://www.bilibili.com/video/BV1xx411c7mD"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != page {
			http.Error(w, "referer required", http.StatusForbidden)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "ua required", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("m4s-bytes"))
	}))
	defer srv.Close()

	rc := types.NewRequestContext(page, "", 0)
	reporter := &recordingReporter{}
	dl := NewSegmentDownloader(
		transport.New(transport.Config{HTTPClient: srv.Client()}),
		factoryFunc(func(string) ProgressReporter { return reporter }),
	)

	payload, err := dl.Download(context.Background(), rc, srv.URL+"/v.m4s", "p1 video")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(payload.Data) != "m4s-bytes" || payload.URL != srv.URL+"/v.m4s" {
		t.Fatalf("Download() payload = %+v", payload)
	}
	if reporter.total != int64(len("m4s-bytes")) || reporter.last != reporter.total || !reporter.finished {
		t.Fatalf("progress not reported: %+v", reporter)
	}
}

func TestSegmentDownloader_PropagatesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	rc := types.NewRequestContext("https://www.bilibili.com/video/BV1", "", 0)
	reporter := &recordingReporter{}
	dl := NewSegmentDownloader(
		transport.New(transport.Config{HTTPClient: srv.Client()}),
		factoryFunc(func(string) ProgressReporter { return reporter }),
	)
	payload, err := dl.Download(context.Background(), rc, srv.URL, "p1 audio")
	if payload != nil {
		t.Fatalf("expected nil payload on failure, got %+v", payload)
	}
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !reporter.finished || reporter.err == nil {
		t.Fatalf("reporter should see the failure: %+v", reporter)
	}
}

func TestSegmentDownloader_EmptyURL(t *testing.T) {
	dl := NewSegmentDownloader(transport.New(transport.Config{}), nil)
	rc := types.NewRequestContext("https://www.bilibili.com/video/BV1", "", 0)
	if _, err := dl.Download(context.Background(), rc, "", "p1 video"); !errors.Is(err, types.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestSegmentDownloader_LabelsFromPartContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	var labels []string
	dl := NewSegmentDownloader(
		transport.New(transport.Config{HTTPClient: srv.Client()}),
		factoryFunc(func(label string) ProgressReporter {
			labels = append(labels, label)
			return nil
		}),
	)
	rc := types.NewRequestContext("https://www.bilibili.com/video/BV1", "", 0)
	if _, err := dl.Download(types.WithPart(context.Background(), 7), rc, srv.URL, ""); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if _, err := dl.Download(context.Background(), rc, srv.URL, ""); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(labels) != 2 || labels[0] != "p7" || labels[1] != "stream" {
		t.Fatalf("labels = %v", labels)
	}
}

type getterFunc func(ctx context.Context, rawURL string, headers http.Header, w io.Writer) (*transport.Response, error)

func (f getterFunc) GetTo(ctx context.Context, rawURL string, headers http.Header, w io.Writer) (*transport.Response, error) {
	return f(ctx, rawURL, headers, w)
}

func TestSegmentDownloader_UsesRequestContextTimeout(t *testing.T) {
	var got time.Duration
	dl := NewSegmentDownloader(getterFunc(func(ctx context.Context, rawURL string, headers http.Header, w io.Writer) (*transport.Response, error) {
		got, _ = types.TimeoutFromContext(ctx)
		_, err := w.Write([]byte("data"))
		return &transport.Response{URL: rawURL, StatusCode: http.StatusOK}, err
	}), nil)
	rc := types.NewRequestContext("https://www.bilibili.com/video/BV1", "", 90*time.Second)
	if _, err := dl.Download(context.Background(), rc, "https://media.example/v.m4s", "video"); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got != 90*time.Second {
		t.Fatalf("transport timeout = %v, want 90s", got)
	}
}
