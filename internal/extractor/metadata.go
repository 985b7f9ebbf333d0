package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/famomatic/bvdl/internal/state"
	"github.com/famomatic/bvdl/internal/types"
)

type bootstrapState struct {
	VideoData *bootstrapVideo `json:"videoData"`
}

type bootstrapVideo struct {
	BVID  string `json:"bvid"`
	AID   int64  `json:"aid"`
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
	Pages *[]bootstrapPage `json:"pages"`
}

type bootstrapPage struct {
	Page     *int   `json:"page"`
	Part     string `json:"part"`
	CID      int64  `json:"cid"`
	Duration int64  `json:"duration"`
}

// Metadata fetches the canonical page of rc and returns the video metadata.
// No partial result is returned on failure.
func (e *Extractor) Metadata(ctx context.Context, rc *types.RequestContext) (*types.VideoMetadata, error) {
	doc, err := e.fetchDocument(ctx, rc, rc.PageURL)
	if err != nil {
		return nil, err
	}

	title, err := doc.Text(e.selectors.Title)
	if err != nil {
		return nil, err
	}
	date, err := doc.Text(e.selectors.Date)
	if err != nil {
		return nil, err
	}
	desc, err := doc.Text(e.selectors.Description)
	if err != nil {
		return nil, err
	}
	tags, err := doc.ChildTexts(e.selectors.TagContainer, e.selectors.TagItem)
	if err != nil {
		return nil, err
	}

	var st bootstrapState
	if err := e.decodeState(doc, state.InitialStateMarker, &st); err != nil {
		return nil, err
	}
	parts, err := projectParts(st)
	if err != nil {
		return nil, err
	}

	meta := &types.VideoMetadata{
		Title:       title,
		PublishDate: date,
		Description: desc,
		Tags:        tags,
		Parts:       parts,
		BVID:        st.VideoData.BVID,
		AID:         st.VideoData.AID,
		Owner:       st.VideoData.Owner.Name,
	}
	return meta, nil
}

// projectParts maps videoData.pages onto part numbers without re-indexing.
func projectParts(st bootstrapState) (map[int]types.Part, error) {
	if st.VideoData == nil {
		return nil, &types.MissingFieldError{Field: "videoData"}
	}
	if st.VideoData.Pages == nil {
		return nil, &types.MissingFieldError{Field: "videoData.pages"}
	}
	pages := *st.VideoData.Pages
	parts := make(map[int]types.Part, len(pages))
	for i, p := range pages {
		if p.Page == nil {
			return nil, &types.MissingFieldError{Field: fmt.Sprintf("videoData.pages[%d].page", i)}
		}
		parts[*p.Page] = types.Part{
			Number:   *p.Page,
			Title:    p.Part,
			CID:      p.CID,
			Duration: time.Duration(p.Duration) * time.Second,
		}
	}
	return parts, nil
}
