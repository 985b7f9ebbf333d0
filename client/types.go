package client

import (
	"time"

	"github.com/famomatic/bvdl/internal/types"
)

type (
	VideoMetadata  = types.VideoMetadata
	Part           = types.Part
	PartStreamInfo = types.PartStreamInfo
	StreamTrack    = types.StreamTrack
	Metadata       = types.Metadata
)

// VideoInfo is the package-level metadata result.
type VideoInfo struct {
	URL         string     `json:"url"`
	BVID        string     `json:"bvid,omitempty"`
	AID         int64      `json:"aid,omitempty"`
	Title       string     `json:"title"`
	PublishDate string     `json:"date"`
	Description string     `json:"intro"`
	Owner       string     `json:"owner,omitempty"`
	Tags        []string   `json:"tags"`
	Pages       []PageInfo `json:"pages"`
	// MissingPages lists part numbers absent from the host's listing.
	MissingPages []int `json:"missing_pages,omitempty"`

	Metadata *VideoMetadata `json:"-"`
}

// PageInfo is one listed part.
type PageInfo struct {
	Page     int     `json:"page"`
	Title    string  `json:"part"`
	CID      int64   `json:"cid,omitempty"`
	Duration float64 `json:"duration_sec,omitempty"`
}

func newVideoInfo(pageURL string, meta *types.VideoMetadata) *VideoInfo {
	info := &VideoInfo{
		URL:          pageURL,
		BVID:         meta.BVID,
		AID:          meta.AID,
		Title:        meta.Title,
		PublishDate:  meta.PublishDate,
		Description:  meta.Description,
		Owner:        meta.Owner,
		Tags:         append([]string{}, meta.Tags...),
		Pages:        make([]PageInfo, 0, len(meta.Parts)),
		MissingPages: meta.MissingParts(),
		Metadata:     meta,
	}
	for _, n := range meta.PartNumbers() {
		p := meta.Parts[n]
		info.Pages = append(info.Pages, PageInfo{
			Page:     n,
			Title:    p.Title,
			CID:      p.CID,
			Duration: p.Duration.Round(time.Second).Seconds(),
		})
	}
	return info
}

// DownloadOptions controls one Download call.
type DownloadOptions struct {
	// OutputDir is the root directory; each video gets a subdirectory named
	// after its title. Default is "data".
	OutputDir string
	// SkipDownload stops after metadata resolution.
	SkipDownload bool
}

// PartFile describes one produced file.
type PartFile struct {
	Part       int
	Title      string
	OutputPath string
	Bytes      int64
}

// DownloadResult describes a completed or partially completed run.
type DownloadResult struct {
	RunID string
	Info  *VideoInfo
	Dir   string
	Files []PartFile
}
