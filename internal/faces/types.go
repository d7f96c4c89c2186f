// Package faces extracts per-character face appearances from generated
// storybook pages, either from generation-quality metadata or through a
// detector-plus-reasoning fallback chain.
package faces

import (
	"github.com/chrofis/magicalstory/internal/story"
)

// SourceMethod records which extraction path produced an appearance.
type SourceMethod string

const (
	SourceEvaluation SourceMethod = "evaluation" // from generation-quality metadata
	SourceFallback   SourceMethod = "fallback"   // detector + reasoning validation
)

// Appearance is one extracted face region for a character on one page.
type Appearance struct {
	Character    string              `json:"character"`
	PageNumber   int                 `json:"pageNumber"`
	FaceID       string              `json:"faceId"`
	BoundingBox  story.NormalizedBox `json:"boundingBox"`
	Thumbnail    []byte              `json:"thumbnail,omitempty"` // square JPEG
	SourceMethod SourceMethod        `json:"sourceMethod"`
	Confidence   float64             `json:"confidence"`
}

// PageInfo records the dimensions of a processed page.
type PageInfo struct {
	PageNumber int `json:"pageNumber"`
	Width      int `json:"width"`
	Height     int `json:"height"`
}

// Manifest is the appearance artifact for one story: every extracted face
// plus the dimensions of the pages they came from.
type Manifest struct {
	StoryID     string       `json:"storyId"`
	Pages       []PageInfo   `json:"pages"`
	Appearances []Appearance `json:"appearances"`
}

// ByCharacter groups the appearances by character name.
func (m *Manifest) ByCharacter() map[string][]Appearance {
	groups := make(map[string][]Appearance)
	for _, a := range m.Appearances {
		groups[a.Character] = append(groups[a.Character], a)
	}
	return groups
}

// Lookup finds the appearance identified by (pageNumber, faceID).
// Returns nil when no such record exists.
func (m *Manifest) Lookup(pageNumber int, faceID string) *Appearance {
	for i := range m.Appearances {
		if m.Appearances[i].PageNumber == pageNumber && m.Appearances[i].FaceID == faceID {
			return &m.Appearances[i]
		}
	}
	return nil
}
