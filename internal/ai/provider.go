// Package ai contains the vision-capable reasoning providers used to
// validate fallback face crops and to judge cross-page character
// consistency.
package ai

import "context"

// CropJudgment is the per-crop verdict of the face validation call.
type CropJudgment struct {
	// Index refers to the position of the crop in the submitted batch.
	Index int `json:"index"`
	// UsableFace is true for any recognizable face, including partial or
	// rotated ones. Backs of heads and fully cut-off regions are rejected.
	UsableFace bool `json:"usable_face"`
	// Character is the known character the crop most resembles.
	Character  string  `json:"character"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// JudgedOutlier is one deviating page reported by a consistency judgment.
type JudgedOutlier struct {
	PageNumber int      `json:"page_number"`
	Severity   string   `json:"severity"` // high, medium, low
	Issues     []string `json:"issues"`
}

// ConsistencyJudgment is the normalized result of a grid or per-image
// consistency call.
type ConsistencyJudgment struct {
	OverallConsistency float64         `json:"overall_consistency"`
	ConsistentFeatures []string        `json:"consistent_features"`
	Outliers           []JudgedOutlier `json:"outliers"`
}

// PageFace pairs a face image with the page it was extracted from.
type PageFace struct {
	PageNumber int
	Image      []byte
}

// Provider defines the interface for vision reasoning backends.
type Provider interface {
	Name() string

	// ValidateFaceCrops judges a batch of candidate face crops in one
	// request: per crop, whether it is a usable face and which of the
	// known characters it most resembles.
	ValidateFaceCrops(ctx context.Context, crops [][]byte, characters []string) ([]CropJudgment, error)

	// JudgeGridConsistency sends one labeled grid composite of a
	// character's faces and returns majority features plus deviating pages.
	JudgeGridConsistency(ctx context.Context, gridImage []byte, character string, pages []int) (*ConsistencyJudgment, error)

	// JudgeImageConsistency performs the same judgment with every face
	// attached individually to a single request.
	JudgeImageConsistency(ctx context.Context, facesImgs []PageFace, character string) (*ConsistencyJudgment, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token consumption across calls.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
