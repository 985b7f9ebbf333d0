package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/famomatic/bvdl/internal/transport"
	"github.com/famomatic/bvdl/internal/types"
)

// Getter is the subset of transport.Client the downloader needs.
type Getter interface {
	GetTo(ctx context.Context, rawURL string, headers http.Header, w io.Writer) (*transport.Response, error)
}

// SegmentDownloader fetches whole elementary streams into memory.
type SegmentDownloader struct {
	client   Getter
	progress ProgressFactory
}

// NewSegmentDownloader returns a downloader using client. progress may be nil.
func NewSegmentDownloader(client Getter, progress ProgressFactory) *SegmentDownloader {
	return &SegmentDownloader{client: client, progress: progress}
}

// Download fetches streamURL with the shared headers of rc. The Referer is
// always the canonical page URL because the media host rejects requests
// referred by anything else. Failures are returned as-is; nothing is retried.
func (d *SegmentDownloader) Download(ctx context.Context, rc *types.RequestContext, streamURL, label string) (*types.MediaPayload, error) {
	if label == "" {
		label = "stream"
		if part, ok := types.PartFromContext(ctx); ok {
			label = fmt.Sprintf("p%d", part)
		}
	}
	if streamURL == "" {
		return nil, &types.MissingFieldError{Field: "stream url", Detail: label}
	}
	headers := rc.WithReferer(rc.PageURL)

	var buf bytes.Buffer
	w := newProgressWriter(&buf, d.reporter(label))
	_, err := d.client.GetTo(rc.Bind(ctx), streamURL, headers, w)
	w.finish(err)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", label, err)
	}
	return &types.MediaPayload{URL: streamURL, Data: buf.Bytes()}, nil
}

func (d *SegmentDownloader) reporter(label string) ProgressReporter {
	if d.progress == nil {
		return nil
	}
	return d.progress.NewReporter(label)
}
