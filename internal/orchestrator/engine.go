// Package orchestrator drives the per-part pipeline (resolve streams,
// download both tracks, mux) for an already resolved video.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/famomatic/bvdl/internal/muxer"
	"github.com/famomatic/bvdl/internal/types"
)

// StreamResolver locates the tracks of one part.
type StreamResolver interface {
	Streams(ctx context.Context, rc *types.RequestContext, part int) (*types.PartStreamInfo, error)
}

// Downloader fetches one elementary stream.
type Downloader interface {
	Download(ctx context.Context, rc *types.RequestContext, streamURL, label string) (*types.MediaPayload, error)
}

// Logger receives pipeline progress.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// MissingPartsPolicy decides what happens when the part listing has gaps.
type MissingPartsPolicy string

const (
	// MissingPartsSkip downloads the listed parts and logs the gaps.
	MissingPartsSkip MissingPartsPolicy = "skip"
	// MissingPartsFail refuses to download anything.
	MissingPartsFail MissingPartsPolicy = "fail"
)

// ParseMissingPartsPolicy accepts "skip", "fail" or "" (skip).
func ParseMissingPartsPolicy(s string) (MissingPartsPolicy, error) {
	switch MissingPartsPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MissingPartsSkip:
		return MissingPartsSkip, nil
	case MissingPartsFail:
		return MissingPartsFail, nil
	default:
		return "", fmt.Errorf("unknown missing parts policy %q", s)
	}
}

// Config tunes a run.
type Config struct {
	// Concurrency is the number of parts processed at once. Values below 1 mean 1.
	Concurrency int
	// AbortOnError cancels the remaining parts after the first failure.
	AbortOnError          bool
	MissingParts          MissingPartsPolicy
	KeepIntermediateFiles bool
	Logger                Logger
}

// PartResult describes one produced file.
type PartResult struct {
	Part       int
	Title      string
	OutputPath string
	Bytes      int64
}

// RunResult summarizes a run. Completed is ordered by part number.
type RunResult struct {
	Dir          string
	Completed    []PartResult
	MissingParts []int
}

// Engine is the main orchestrator for part downloads.
type Engine struct {
	streams    StreamResolver
	downloader Downloader
	muxer      muxer.Muxer
	config     Config
}

func NewEngine(streams StreamResolver, downloader Downloader, m muxer.Muxer, config Config) *Engine {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.MissingParts == "" {
		config.MissingParts = MissingPartsSkip
	}
	if config.Logger == nil {
		config.Logger = nopLogger{}
	}
	return &Engine{
		streams:    streams,
		downloader: downloader,
		muxer:      m,
		config:     config,
	}
}

type partOutcome struct {
	result PartResult
	err    *PartError
}

// Run processes every listed part of meta into outputDir. Parts are
// independent: a failing part does not stop its siblings unless
// AbortOnError is set. When any part fails the partial result is returned
// together with a *PartsFailedError.
func (e *Engine) Run(ctx context.Context, rc *types.RequestContext, meta *types.VideoMetadata, outputDir string) (*RunResult, error) {
	if meta == nil {
		return nil, errors.New("orchestrator: nil video metadata")
	}
	if e.muxer == nil || !e.muxer.Available() {
		name := "<nil>"
		if e.muxer != nil {
			name = e.muxer.Name()
		}
		return nil, fmt.Errorf("%w: %s", types.ErrMuxerUnavailable, name)
	}

	res := &RunResult{
		Dir:          VideoDir(outputDir, meta),
		MissingParts: meta.MissingParts(),
	}
	if len(res.MissingParts) > 0 {
		if e.config.MissingParts == MissingPartsFail {
			return nil, fmt.Errorf("%w: parts %v are not listed", types.ErrMissingPart, res.MissingParts)
		}
		e.config.Logger.Warnf("parts %v are not listed, skipping them", res.MissingParts)
	}

	numbers := meta.PartNumbers()
	if len(numbers) == 0 {
		return res, nil
	}

	pool, err := newWorkerPool(ctx, min(e.config.Concurrency, len(numbers)), len(numbers))
	if err != nil {
		return nil, err
	}
	outcomes := make(chan partOutcome, len(numbers))
	for _, n := range numbers {
		part := meta.Parts[n]
		if err := pool.submit(func(ctx context.Context) {
			out := e.processPart(ctx, rc, meta, part, res.Dir)
			if out.err != nil && e.config.AbortOnError {
				pool.abort()
			}
			outcomes <- out
		}); err != nil {
			outcomes <- partOutcome{err: &PartError{Part: n, Stage: StageCanceled, Err: err}}
		}
	}
	pool.wait()
	close(outcomes)

	var failures []PartError
	for out := range outcomes {
		if out.err != nil {
			failures = append(failures, *out.err)
			continue
		}
		res.Completed = append(res.Completed, out.result)
	}
	sort.Slice(res.Completed, func(i, j int) bool { return res.Completed[i].Part < res.Completed[j].Part })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Part < failures[j].Part })

	if len(failures) > 0 {
		return res, &PartsFailedError{Failures: failures, Total: len(numbers)}
	}
	return res, nil
}

func (e *Engine) processPart(ctx context.Context, rc *types.RequestContext, meta *types.VideoMetadata, part types.Part, dir string) partOutcome {
	n := part.Number
	fail := func(stage Stage, err error) partOutcome {
		e.config.Logger.Errorf("p%d %s failed: %v", n, stage, err)
		return partOutcome{err: &PartError{Part: n, Stage: stage, Err: err}}
	}
	if err := ctx.Err(); err != nil {
		return partOutcome{err: &PartError{Part: n, Stage: StageCanceled, Err: err}}
	}
	ctx = types.WithPart(ctx, n)

	e.config.Logger.Infof("p%d %s: resolving streams", n, part.Title)
	info, err := e.streams.Streams(ctx, rc, n)
	if err != nil {
		return fail(StageResolve, err)
	}

	video, err := e.downloader.Download(ctx, rc, info.Video.URL, fmt.Sprintf("p%d video", n))
	if err != nil {
		return fail(StageDownload, err)
	}
	audio, err := e.downloader.Download(ctx, rc, info.Audio.URL, fmt.Sprintf("p%d audio", n))
	if err != nil {
		return fail(StageDownload, err)
	}
	e.config.Logger.Debugf("p%d downloaded video=%d audio=%d bytes", n, video.Size(), audio.Size())

	outputPath := PartOutputPath(dir, part)
	opts := muxer.Options{KeepIntermediateFiles: e.config.KeepIntermediateFiles}
	if err := muxer.Mux(ctx, e.muxer, video, audio, outputPath, meta.EmbedMetadata(part), opts); err != nil {
		return fail(StageMux, err)
	}

	result := PartResult{Part: n, Title: part.Title, OutputPath: outputPath}
	if st, err := os.Stat(outputPath); err == nil {
		result.Bytes = st.Size()
	}
	e.config.Logger.Infof("p%d saved %s", n, outputPath)
	return partOutcome{result: result}
}
