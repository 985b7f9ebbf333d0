package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/famomatic/bvdl/internal/downloader"
	"github.com/famomatic/bvdl/internal/extractor"
	"github.com/famomatic/bvdl/internal/muxer"
	"github.com/famomatic/bvdl/internal/orchestrator"
	"github.com/famomatic/bvdl/internal/state"
	"github.com/famomatic/bvdl/internal/transport"
	"github.com/famomatic/bvdl/internal/types"
)

// DefaultOutputDir is the output root used when DownloadOptions.OutputDir is empty.
const DefaultOutputDir = "data"

// Client is the high-level video client.
type Client struct {
	config     Config
	transport  *transport.Client
	extractor  *extractor.Extractor
	downloader *downloader.SegmentDownloader
	logger     Logger
}

// New creates a new client. Invalid values fall back to their defaults;
// call Config.Validate first to reject them instead.
func New(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	tr := transport.New(transport.Config{
		HTTPClient:   config.HTTPClient,
		ProxyURL:     config.ProxyURL,
		Timeout:      config.RequestTimeout,
		RateLimit:    config.RateLimit,
		RateBurst:    config.RateBurst,
		MaxBodyBytes: config.MaxBodyBytes,
	})

	mode, err := state.ParseMode(config.StateDecoder)
	if err != nil {
		logger.Warnf("%v, using %s", err, state.ModeScan)
		mode = state.ModeScan
	}

	return &Client{
		config:    config,
		transport: tr,
		extractor: extractor.New(tr, extractor.Config{
			Selectors: config.Selectors,
			Decoder:   state.NewDecoder(mode),
		}),
		downloader: downloader.NewSegmentDownloader(tr, config.Progress),
		logger:     logger,
	}
}

// NewClient creates a new client.
func NewClient(config Config) *Client {
	return New(config)
}

func (c *Client) requestContext(input string) (*types.RequestContext, error) {
	pageURL, err := ResolveURL(c.config.Host, input)
	if err != nil {
		return nil, err
	}
	return types.NewRequestContext(pageURL, c.config.UserAgent, c.config.RequestTimeout), nil
}

// GetVideo fetches video metadata for the input code or URL.
func (c *Client) GetVideo(ctx context.Context, input string) (*VideoInfo, error) {
	rc, err := c.requestContext(input)
	if err != nil {
		return nil, err
	}
	meta, err := c.extractor.Metadata(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}
	return newVideoInfo(rc.PageURL, meta), nil
}

// ResolveStreams returns the first video and audio track of one part.
func (c *Client) ResolveStreams(ctx context.Context, input string, part int) (*PartStreamInfo, error) {
	rc, err := c.requestContext(input)
	if err != nil {
		return nil, err
	}
	info, err := c.extractor.Streams(ctx, rc, part)
	if err != nil {
		return nil, fmt.Errorf("resolve streams p%d: %w", part, err)
	}
	return info, nil
}

// Download resolves the video once and writes one muxed file per listed
// part. When some parts fail the result lists what was produced and the
// error is a *PartsFailedError.
func (c *Client) Download(ctx context.Context, input string, options DownloadOptions) (*DownloadResult, error) {
	rc, err := c.requestContext(input)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := prefixLogger{prefix: "run=" + runID[:8] + " ", next: c.logger}

	logger.Infof("resolving %s", rc.PageURL)
	meta, err := c.extractor.Metadata(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}
	info := newVideoInfo(rc.PageURL, meta)
	result := &DownloadResult{RunID: runID, Info: info}
	logger.Infof("%q: %d part(s)", meta.Title, len(meta.Parts))
	if options.SkipDownload {
		return result, nil
	}

	m, err := c.muxer()
	if err != nil {
		return result, err
	}
	policy, err := orchestrator.ParseMissingPartsPolicy(c.config.MissingParts)
	if err != nil {
		logger.Warnf("%v, using %s", err, orchestrator.MissingPartsSkip)
		policy = orchestrator.MissingPartsSkip
	}
	engine := orchestrator.NewEngine(c.extractor, c.downloader, m, orchestrator.Config{
		Concurrency:           c.config.Concurrency,
		AbortOnError:          c.config.AbortOnError,
		MissingParts:          policy,
		KeepIntermediateFiles: c.config.KeepIntermediateFiles,
		Logger:                logger,
	})

	outputDir := strings.TrimSpace(options.OutputDir)
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	run, runErr := engine.Run(ctx, rc, meta, outputDir)
	if run != nil {
		result.Dir = run.Dir
		for _, p := range run.Completed {
			result.Files = append(result.Files, PartFile{
				Part:       p.Part,
				Title:      p.Title,
				OutputPath: p.OutputPath,
				Bytes:      p.Bytes,
			})
		}
	}
	return result, runErr
}

func (c *Client) muxer() (Muxer, error) {
	if c.config.Muxer != nil {
		return c.config.Muxer, nil
	}
	return muxer.New(c.config.MuxerBackend, c.config.FFmpegPath, c.logger)
}
