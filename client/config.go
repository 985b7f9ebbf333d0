package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/famomatic/bvdl/internal/downloader"
	"github.com/famomatic/bvdl/internal/muxer"
	"github.com/famomatic/bvdl/internal/orchestrator"
	"github.com/famomatic/bvdl/internal/state"
	"github.com/famomatic/bvdl/internal/webpage"
)

type (
	// Muxer combines one video and one audio stream into a container file.
	Muxer = muxer.Muxer
	// ProgressReporter receives byte counts for one stream download.
	ProgressReporter = downloader.ProgressReporter
	// ProgressFactory creates one ProgressReporter per stream download.
	ProgressFactory = downloader.ProgressFactory
	// Selectors locate the metadata nodes of a detail page.
	Selectors = webpage.Selectors
)

// Config holds configuration for the client.
type Config struct {
	// HTTPClient is the client used for making requests.
	// If nil, a client honouring ProxyURL is built.
	HTTPClient *http.Client

	// ProxyURL is the optional proxy URL to use for requests.
	// If HTTPClient is provided, this field is ignored.
	ProxyURL string

	// Host serves the detail pages. Default is DefaultHost.
	Host string

	// UserAgent overrides the desktop browser User-Agent sent on every request.
	UserAgent string

	// RequestTimeout bounds the wait for response headers and for each chunk
	// of body data. Long transfers that keep making progress are not cut off.
	// Default is 60s.
	RequestTimeout time.Duration

	// RateLimit caps requests per second across the run. Zero disables pacing.
	RateLimit float64
	RateBurst int

	// MaxBodyBytes caps a single response body. Zero means unlimited.
	MaxBodyBytes int64

	// Concurrency is the number of parts processed at once. Default is 1.
	Concurrency int

	// AbortOnError cancels the remaining parts after the first part failure.
	AbortOnError bool

	// MissingParts is "skip" (default) or "fail".
	MissingParts string

	// StateDecoder is "scan" (default), "script" or "auto".
	StateDecoder string

	// Selectors override the detail-page selectors. Empty fields keep defaults.
	Selectors Selectors

	// Muxer overrides the backend chosen by MuxerBackend.
	Muxer Muxer
	// MuxerBackend is "ffmpeg" (default) or "native".
	MuxerBackend string
	// FFmpegPath is the ffmpeg executable. Default is "ffmpeg" from PATH.
	FFmpegPath string

	// KeepIntermediateFiles keeps the per-part elementary stream files.
	KeepIntermediateFiles bool

	// Logger receives progress and non-fatal warnings. Default discards.
	Logger Logger

	// Progress creates download progress reporters. Nil disables reporting.
	Progress ProgressFactory
}

// Validate reports every invalid value of c.
func (c Config) Validate() error {
	var errs []error
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.RateBurst < 0 {
		errs = append(errs, errors.New("rate burst must not be negative"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("max body bytes must not be negative"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency must not be negative"))
	}
	if _, err := orchestrator.ParseMissingPartsPolicy(c.MissingParts); err != nil {
		errs = append(errs, err)
	}
	if _, err := state.ParseMode(c.StateDecoder); err != nil {
		errs = append(errs, err)
	}
	if c.Muxer == nil {
		switch strings.ToLower(strings.TrimSpace(c.MuxerBackend)) {
		case "", muxer.BackendFFmpeg, muxer.BackendNative:
		default:
			errs = append(errs, fmt.Errorf("unknown muxer %q", c.MuxerBackend))
		}
	}
	if p := strings.TrimSpace(c.ProxyURL); p != "" && c.HTTPClient == nil {
		if u, err := url.Parse(p); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid proxy url %q", c.ProxyURL))
		}
	}
	return errors.Join(errs...)
}
