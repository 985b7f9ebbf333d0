package types

import (
	"sort"
	"time"
)

// Metadata contains common media metadata for embedding.
type Metadata struct {
	Title       string
	Artist      string // Owner
	Description string
	Date        string
	Album       string // Video title when Title is a part title
	Track       int    // Part number
}

// Part is one numbered sub-video of an upload.
type Part struct {
	Number   int
	Title    string
	CID      int64
	Duration time.Duration
}

// VideoMetadata is resolved once per run and read-only afterwards.
type VideoMetadata struct {
	BVID        string
	AID         int64
	Title       string
	PublishDate string
	Description string
	Owner       string
	Tags        []string
	// Parts is keyed by the page number reported by the host. Gaps are kept as-is.
	Parts map[int]Part
}

// PartNumbers returns the part numbers in ascending order.
func (m *VideoMetadata) PartNumbers() []int {
	if m == nil {
		return nil
	}
	out := make([]int, 0, len(m.Parts))
	for n := range m.Parts {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// MissingParts reports the part numbers between 1 and the highest known part
// that the host did not list.
func (m *VideoMetadata) MissingParts() []int {
	nums := m.PartNumbers()
	if len(nums) == 0 {
		return nil
	}
	var missing []int
	for n := 1; n < nums[len(nums)-1]; n++ {
		if _, ok := m.Parts[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// EmbedMetadata builds container tags for one part.
func (m *VideoMetadata) EmbedMetadata(part Part) Metadata {
	title := part.Title
	if title == "" {
		title = m.Title
	}
	return Metadata{
		Title:       title,
		Artist:      m.Owner,
		Description: m.Description,
		Date:        m.PublishDate,
		Album:       m.Title,
		Track:       part.Number,
	}
}
