// Package muxer combines a video and an audio elementary stream into one
// container file without re-encoding.
package muxer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/famomatic/bvdl/internal/types"
)

// Muxer defines the interface for media muxing operations.
type Muxer interface {
	Name() string
	Available() bool
	Merge(ctx context.Context, videoPath, audioPath, outputPath string, meta types.Metadata) error
}

// Logger receives backend diagnostics.
type Logger interface {
	Debugf(format string, args ...any)
}

// Backend names accepted by New.
const (
	BackendFFmpeg = "ffmpeg"
	BackendNative = "native"
)

// New returns the backend called name. ffmpegPath only applies to ffmpeg.
func New(name, ffmpegPath string, logger Logger) (Muxer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendFFmpeg:
		m := NewFFmpegMuxer(ffmpegPath)
		m.Logger = logger
		return m, nil
	case BackendNative:
		return &NativeMuxer{}, nil
	default:
		return nil, fmt.Errorf("unknown muxer %q", name)
	}
}

// Options control temporary file handling.
type Options struct {
	KeepIntermediateFiles bool
}

// IntermediatePaths returns the temporary elementary stream paths used for outputPath.
func IntermediatePaths(outputPath string) (videoPath, audioPath string) {
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	return base + "_video.m4s", base + "_audio.m4s"
}

// Mux writes both payloads next to outputPath, merges them with m and
// removes the temporaries on every exit path.
func Mux(ctx context.Context, m Muxer, video, audio *types.MediaPayload, outputPath string, meta types.Metadata, opts Options) (err error) {
	if m == nil {
		return types.ErrMuxerUnavailable
	}
	if video == nil || audio == nil {
		return errors.New("mux: missing payload")
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	videoPath, audioPath := IntermediatePaths(outputPath)
	if !opts.KeepIntermediateFiles {
		defer func() {
			removeIfExists(videoPath)
			removeIfExists(audioPath)
		}()
	}

	if err := os.WriteFile(videoPath, video.Data, 0o644); err != nil {
		return fmt.Errorf("write video stream: %w", err)
	}
	if err := os.WriteFile(audioPath, audio.Data, 0o644); err != nil {
		return fmt.Errorf("write audio stream: %w", err)
	}

	if err := m.Merge(ctx, videoPath, audioPath, outputPath, meta); err != nil {
		if errors.Is(err, types.ErrExternalTool) {
			return err
		}
		return &types.ExternalToolError{Tool: m.Name(), Err: err}
	}
	return nil
}

// removeIfExists is best effort; a leftover temporary is not a mux failure.
func removeIfExists(path string) {
	_ = os.Remove(path)
}
