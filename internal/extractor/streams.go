package extractor

import (
	"context"
	"net/url"
	"strconv"

	"github.com/famomatic/bvdl/internal/state"
	"github.com/famomatic/bvdl/internal/types"
)

type playInfoState struct {
	Data *struct {
		Dash *struct {
			Video []dashTrack `json:"video"`
			Audio []dashTrack `json:"audio"`
		} `json:"dash"`
	} `json:"data"`
}

type dashTrack struct {
	ID           int    `json:"id"`
	BaseURL      string `json:"baseUrl"`
	BaseURLSnake string `json:"base_url"`
	MimeType     string `json:"mimeType"`
	MimeSnake    string `json:"mime_type"`
	Codecs       string `json:"codecs"`
	Bandwidth    int    `json:"bandwidth"`
}

func (t dashTrack) toStreamTrack() types.StreamTrack {
	return types.StreamTrack{
		ID:        t.ID,
		URL:       firstNonEmpty(t.BaseURL, t.BaseURLSnake),
		MimeType:  firstNonEmpty(t.MimeType, t.MimeSnake),
		Codecs:    t.Codecs,
		Bandwidth: t.Bandwidth,
	}
}

// PartURL returns the page variant of pageURL for one part.
func PartURL(pageURL string, part int) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", &types.MalformedIdentifierError{Input: pageURL}
	}
	q := u.Query()
	q.Set("p", strconv.Itoa(part))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Streams fetches the part view of rc's page and returns the first video and
// first audio track of its play-info state.
func (e *Extractor) Streams(ctx context.Context, rc *types.RequestContext, part int) (*types.PartStreamInfo, error) {
	partURL, err := PartURL(rc.PageURL, part)
	if err != nil {
		return nil, err
	}
	doc, err := e.fetchDocument(ctx, rc, partURL)
	if err != nil {
		return nil, err
	}

	var st playInfoState
	if err := e.decodeState(doc, state.PlayInfoMarker, &st); err != nil {
		return nil, err
	}
	if st.Data == nil {
		return nil, &types.MissingFieldError{Field: "data"}
	}
	if st.Data.Dash == nil {
		return nil, &types.MissingFieldError{Field: "data.dash"}
	}

	video, err := firstTrack(st.Data.Dash.Video, "data.dash.video")
	if err != nil {
		return nil, err
	}
	audio, err := firstTrack(st.Data.Dash.Audio, "data.dash.audio")
	if err != nil {
		return nil, err
	}
	return &types.PartStreamInfo{Part: part, Video: video, Audio: audio}, nil
}

func firstTrack(tracks []dashTrack, path string) (types.StreamTrack, error) {
	if len(tracks) == 0 {
		return types.StreamTrack{}, &types.MissingFieldError{Field: path + "[0]"}
	}
	t := tracks[0].toStreamTrack()
	if t.URL == "" {
		return types.StreamTrack{}, &types.MissingFieldError{Field: path + "[0].baseUrl"}
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
