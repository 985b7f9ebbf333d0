package muxer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yapingcat/gomedia/go-mp4"

	"github.com/famomatic/bvdl/internal/types"
)

// NativeMuxer remuxes fragmented MP4 elementary streams in-process.
// It copies the first track of each input and never transcodes.
type NativeMuxer struct{}

func (NativeMuxer) Name() string { return BackendNative }

func (NativeMuxer) Available() bool { return true }

func (n NativeMuxer) Merge(ctx context.Context, videoPath, audioPath, outputPath string, _ types.Metadata) error {
	if err := remuxMP4(ctx, videoPath, audioPath, outputPath); err != nil {
		return &types.ExternalToolError{Tool: n.Name(), Err: err}
	}
	return nil
}

func remuxMP4(ctx context.Context, videoPath, audioPath, outputPath string) error {
	videoFile, err := os.Open(videoPath)
	if err != nil {
		return err
	}
	defer videoFile.Close()

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	defer audioFile.Close()

	demuxVideo := mp4.CreateMp4Demuxer(videoFile)
	videoTracks, err := demuxVideo.ReadHead()
	if err != nil {
		return fmt.Errorf("read video head: %w", err)
	}
	if len(videoTracks) == 0 {
		return errors.New("video input has no tracks")
	}

	demuxAudio := mp4.CreateMp4Demuxer(audioFile)
	audioTracks, err := demuxAudio.ReadHead()
	if err != nil {
		return fmt.Errorf("read audio head: %w", err)
	}
	if len(audioTracks) == 0 {
		return errors.New("audio input has no tracks")
	}

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	muxer, err := mp4.CreateMp4Muxer(out)
	if err != nil {
		return fmt.Errorf("create muxer: %w", err)
	}
	vtid := muxer.AddVideoTrack(mp4.MP4_CODEC_TYPE(videoTracks[0].Cid))
	atid := muxer.AddAudioTrack(mp4.MP4_CODEC_TYPE(audioTracks[0].Cid))

	if err := copyPackets(ctx, demuxVideo, videoTracks[0].Cid, func(data []byte, pts, dts uint64) error {
		return muxer.Write(vtid, data, pts, dts)
	}); err != nil {
		return fmt.Errorf("copy video: %w", err)
	}
	if err := copyPackets(ctx, demuxAudio, audioTracks[0].Cid, func(data []byte, pts, dts uint64) error {
		return muxer.Write(atid, data, pts, dts)
	}); err != nil {
		return fmt.Errorf("copy audio: %w", err)
	}
	return muxer.WriteTrailer()
}

func copyPackets(ctx context.Context, d *mp4.MovDemuxer, cid mp4.MP4_CODEC_TYPE, write func([]byte, uint64, uint64) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkt, err := d.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if pkt.Cid != cid {
			continue
		}
		if err := write(pkt.Data, pkt.Pts, pkt.Dts); err != nil {
			return err
		}
	}
}
