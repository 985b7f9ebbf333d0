package types

// StreamTrack is one DASH track entry advertised in the play-info state.
type StreamTrack struct {
	ID        int
	URL       string
	MimeType  string
	Codecs    string
	Bandwidth int
}

// PartStreamInfo holds the elementary stream locations for a single part.
// The URLs are time-limited and only valid for Part.
type PartStreamInfo struct {
	Part  int
	Video StreamTrack
	Audio StreamTrack
}

// MediaPayload is the raw body of one elementary stream.
type MediaPayload struct {
	URL  string
	Data []byte
}

// Size returns the payload length in bytes.
func (p *MediaPayload) Size() int64 {
	if p == nil {
		return 0
	}
	return int64(len(p.Data))
}
