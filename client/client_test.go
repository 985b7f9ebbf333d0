package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/famomatic/bvdl/internal/types"
)

type recordingMuxer struct {
	mu     sync.Mutex
	merged map[string]string
}

func (m *recordingMuxer) Name() string    { return "recording" }
func (m *recordingMuxer) Available() bool { return true }

func (m *recordingMuxer) Merge(_ context.Context, videoPath, audioPath, outputPath string, _ types.Metadata) error {
	v, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	a, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.merged == nil {
		m.merged = map[string]string{}
	}
	m.merged[filepath.Base(outputPath)] = string(v) + "+" + string(a)
	m.mu.Unlock()
	return os.WriteFile(outputPath, append(v, a...), 0o644)
}

type siteFixture struct {
	srv      *httptest.Server
	host     string
	pageURL  string
	mu       sync.Mutex
	referers map[string]string
	failPart string
}

func newSiteFixture(t *testing.T) *siteFixture {
	t.Helper()
	f := &siteFixture{referers: map[string]string{}}
	f.srv = httptest.NewTLSServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	f.host = strings.TrimPrefix(f.srv.URL, "https://")
	f.pageURL = "https://" + f.host + "/video/BV1demo"
	return f
}

func (f *siteFixture) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.referers[r.URL.Path] = r.Header.Get("Referer")
	failPart := f.failPart
	f.mu.Unlock()
	switch {
	case r.URL.Path == "/video/BV1demo" && r.URL.Query().Get("p") == "":
		fmt.Fprint(w, `<html><body>
<h1 class="video-title">Demo</h1>
<span class="pudate">2022-02-14</span>
<span class="desc-info-text">intro</span>
<ul class="tag-area"><li>t1</li><li>t2</li></ul>
<script>window.__INITIAL_STATE__={"videoData":{"bvid":"BV1demo","pages":[{"page":1,"part":"Intro"},{"page":2,"part":"Body"}]}};(function(){}());</script>
</body></html>`)
	case r.URL.Path == "/video/BV1demo":
		p := r.URL.Query().Get("p")
		if p == failPart {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		base := "https://" + f.host + "/media/"
		fmt.Fprintf(w, `<html><head><script>window.__playinfo__={"data":{"dash":{"video":[{"id":80,"baseUrl":"%sV%s"}],"audio":[{"id":30280,"baseUrl":"%sA%s"}]}}}</script></head></html>`, base, p, base, p)
	case strings.HasPrefix(r.URL.Path, "/media/"):
		if r.Header.Get("Referer") != f.pageURL {
			http.Error(w, "bad referer", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, strings.TrimPrefix(r.URL.Path, "/media/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *siteFixture) referer(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.referers[path]
	return ref, ok
}

func (f *siteFixture) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.referers)
}

func (f *siteFixture) client(extra func(*Config)) *Client {
	cfg := Config{HTTPClient: f.srv.Client(), Host: f.host, Muxer: &recordingMuxer{}}
	if extra != nil {
		extra(&cfg)
	}
	return New(cfg)
}

func TestGetVideo(t *testing.T) {
	f := newSiteFixture(t)
	info, err := f.client(nil).GetVideo(context.Background(), "https://"+f.host+"/video/BV1demo?p=2#x")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if info.URL != f.pageURL || info.Title != "Demo" || info.BVID != "BV1demo" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if len(info.Pages) != 2 || info.Pages[0].Title != "Intro" || info.Pages[1].Page != 2 {
		t.Fatalf("unexpected pages: %+v", info.Pages)
	}
	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for _, want := range []string{`"title":"Demo"`, `"tags":["t1","t2"]`, `"part":"Body"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("json %s missing %s", raw, want)
		}
	}
}

func TestGetVideo_MalformedIdentifierMakesNoRequest(t *testing.T) {
	f := newSiteFixture(t)
	_, err := f.client(nil).GetVideo(context.Background(), "https://"+f.host+"/bangumi/1")
	if !errors.Is(err, ErrMalformedIdentifier) {
		t.Fatalf("expected ErrMalformedIdentifier, got %v", err)
	}
	if n := f.requests(); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestResolveStreams(t *testing.T) {
	f := newSiteFixture(t)
	info, err := f.client(nil).ResolveStreams(context.Background(), "BV1demo", 2)
	if err != nil {
		t.Fatalf("ResolveStreams() error = %v", err)
	}
	if info.Part != 2 || !strings.HasSuffix(info.Video.URL, "/media/V2") || !strings.HasSuffix(info.Audio.URL, "/media/A2") {
		t.Fatalf("unexpected streams: %+v", info)
	}
}

func TestDownload_Demo(t *testing.T) {
	f := newSiteFixture(t)
	mux := &recordingMuxer{}
	c := f.client(func(cfg *Config) {
		cfg.Muxer = mux
		cfg.Concurrency = 2
	})
	out := t.TempDir()

	res, err := c.Download(context.Background(), "BV1demo", DownloadOptions{OutputDir: out})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.RunID == "" || res.Dir != filepath.Join(out, "Demo") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %+v", res.Files)
	}
	if mux.merged["p1 Intro.mp4"] != "V1+A1" || mux.merged["p2 Body.mp4"] != "V2+A2" {
		t.Fatalf("merged = %v", mux.merged)
	}
	if ref, _ := f.referer("/media/V1"); ref != f.pageURL {
		t.Fatalf("media referer = %q, want %q", ref, f.pageURL)
	}
}

func TestDownload_PartFailureKeepsSiblings(t *testing.T) {
	f := newSiteFixture(t)
	f.mu.Lock()
	f.failPart = "1"
	f.mu.Unlock()
	c := f.client(nil)

	res, err := c.Download(context.Background(), "BV1demo", DownloadOptions{OutputDir: t.TempDir()})
	var failed *PartsFailedError
	if !errors.As(err, &failed) || len(failed.Failures) != 1 || failed.Failures[0].Part != 1 {
		t.Fatalf("expected p1 failure, got %v", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork cause, got %v", err)
	}
	if ClassifyError(err) != ErrorCategoryPartsFailed {
		t.Fatalf("ClassifyError() = %q", ClassifyError(err))
	}
	if len(res.Files) != 1 || res.Files[0].Part != 2 {
		t.Fatalf("expected p2 to complete, got %+v", res.Files)
	}
}

func TestDownload_SkipDownload(t *testing.T) {
	f := newSiteFixture(t)
	res, err := f.client(nil).Download(context.Background(), "BV1demo", DownloadOptions{OutputDir: t.TempDir(), SkipDownload: true})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.Info == nil || res.Info.Title != "Demo" || len(res.Files) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, ok := f.referer("/media/V1"); ok {
		t.Fatalf("no media should be fetched")
	}
}

func TestDownload_MuxerUnavailable(t *testing.T) {
	f := newSiteFixture(t)
	c := f.client(func(cfg *Config) {
		cfg.Muxer = nil
		cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	})
	_, err := c.Download(context.Background(), "BV1demo", DownloadOptions{OutputDir: t.TempDir()})
	if !errors.Is(err, ErrMuxerUnavailable) {
		t.Fatalf("expected ErrMuxerUnavailable, got %v", err)
	}
}
