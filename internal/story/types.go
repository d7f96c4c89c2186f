// Package story provides access to per-story inputs (page images, generation
// quality metadata, character roster) and the artifact store the pipeline
// writes its outputs to.
package story

// PageImage is one generated storybook page. Immutable input.
type PageImage struct {
	StoryID    string
	PageNumber int
	Data       []byte // raw encoded image bytes
	Width      int
	Height     int
}

// Character is one expected character from the story roster.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Roster lists the characters expected to appear in a story.
type Roster struct {
	StoryID    string      `json:"storyId"`
	Characters []Character `json:"characters"`
}

// Names returns the character names in roster order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.Characters))
	for i, c := range r.Characters {
		names[i] = c.Name
	}
	return names
}

// IdentityMatchStatus describes how a quality-evaluation entry relates a
// detected face to the roster.
type IdentityMatchStatus string

const (
	StatusMatched        IdentityMatchStatus = "matched"
	StatusNoMatch        IdentityMatchStatus = "no_match"
	StatusExtraCharacter IdentityMatchStatus = "extra_character"
)

// NormalizedBox is a bounding box with all fields in [0,1] relative to the
// page dimensions.
type NormalizedBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IdentityMatch is one face-to-character match recorded by the generation
// quality evaluation.
type IdentityMatch struct {
	Character   string              `json:"character"`
	Status      IdentityMatchStatus `json:"status"`
	BoundingBox NormalizedBox       `json:"boundingBox"`
	Confidence  float64             `json:"confidence"`
}

// QualityMetadata is the per-page generation quality record supplied by the
// upstream evaluation step. It may be absent for a page.
type QualityMetadata struct {
	PageNumber      int             `json:"pageNumber"`
	IdentityMatches []IdentityMatch `json:"identityMatches"`
}
