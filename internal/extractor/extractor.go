// Package extractor resolves video metadata and per-part stream locations
// from the markup and inline script state of the detail page.
package extractor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/famomatic/bvdl/internal/state"
	"github.com/famomatic/bvdl/internal/transport"
	"github.com/famomatic/bvdl/internal/types"
	"github.com/famomatic/bvdl/internal/webpage"
)

// Fetcher is the subset of transport.Client used for page fetches.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, headers http.Header) (*transport.Response, error)
}

// Config tunes how pages are read.
type Config struct {
	Selectors webpage.Selectors
	// Decoder turns a state script into JSON. Nil means the brace scanner.
	Decoder state.Decoder
}

// Extractor reads detail pages through a Fetcher.
type Extractor struct {
	fetcher   Fetcher
	selectors webpage.Selectors
	decoder   state.Decoder
}

// New returns an Extractor.
func New(fetcher Fetcher, cfg Config) *Extractor {
	dec := cfg.Decoder
	if dec == nil {
		dec = state.ScanDecoder{}
	}
	return &Extractor{
		fetcher:   fetcher,
		selectors: cfg.Selectors.WithDefaults(),
		decoder:   dec,
	}
}

// fetchDocument fetches and parses one page. Transport failures are returned
// before any parsing happens.
func (e *Extractor) fetchDocument(ctx context.Context, rc *types.RequestContext, pageURL string) (*webpage.Document, error) {
	resp, err := e.fetcher.Get(rc.Bind(ctx), pageURL, rc.HeaderClone())
	if err != nil {
		return nil, err
	}
	doc, err := webpage.Parse(resp.Body)
	if err != nil {
		return nil, &types.MalformedStateError{Reason: "unparseable markup", Err: err}
	}
	return doc, nil
}

// decodeState finds the script carrying marker and decodes its object into v.
func (e *Extractor) decodeState(doc *webpage.Document, marker string, v any) error {
	script, err := state.Locate(doc.InlineScripts(), marker)
	if err != nil {
		return err
	}
	raw, err := e.decoder.Decode(script, marker)
	if err != nil {
		return err
	}
	if err := state.Unmarshal(marker, raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", marker, err)
	}
	return nil
}
