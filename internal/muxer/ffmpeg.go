package muxer

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"

	"github.com/alessio/shellescape"

	"github.com/famomatic/bvdl/internal/types"
)

// FFmpegMuxer implements Muxer using the ffmpeg command line tool.
type FFmpegMuxer struct {
	Path string
	// EmbedMetadata adds title/artist/date/comment tags to the output.
	EmbedMetadata bool
	Logger        Logger
}

// NewFFmpegMuxer returns a new FFmpegMuxer.
// If path is empty, it looks for "ffmpeg" in PATH.
func NewFFmpegMuxer(path string) *FFmpegMuxer {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMuxer{Path: path, EmbedMetadata: true}
}

func (f *FFmpegMuxer) Name() string { return "ffmpeg" }

// Available checks if ffmpeg is executable.
func (f *FFmpegMuxer) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Args returns the ffmpeg arguments for one merge. Both tracks are copied.
func (f *FFmpegMuxer) Args(videoPath, audioPath, outputPath string, meta types.Metadata) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy",
	}
	if f.EmbedMetadata {
		args = appendMetadata(args, "title", meta.Title)
		args = appendMetadata(args, "artist", meta.Artist)
		args = appendMetadata(args, "album", meta.Album)
		args = appendMetadata(args, "date", meta.Date)
		args = appendMetadata(args, "comment", meta.Description)
		if meta.Track > 0 {
			args = appendMetadata(args, "track", strconv.Itoa(meta.Track))
		}
	}
	return append(args, outputPath)
}

func appendMetadata(args []string, key, value string) []string {
	if value == "" {
		return args
	}
	return append(args, "-metadata", key+"="+value)
}

// Merge remuxes the video and audio files into outputPath.
// Input files are left in place; Mux owns their lifetime.
func (f *FFmpegMuxer) Merge(ctx context.Context, videoPath, audioPath, outputPath string, meta types.Metadata) error {
	args := f.Args(videoPath, audioPath, outputPath, meta)
	if f.Logger != nil {
		f.Logger.Debugf("exec %s", shellescape.QuoteCommand(append([]string{f.Path}, args...)))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Path, args...)
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &types.ExternalToolError{
			Tool:     f.Name(),
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return nil
}
