package consistency

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/config"
	"github.com/chrofis/magicalstory/internal/faces"
)

// Embedder maps one face image to a fixed-length vector. Implemented by the
// fingerprint service client.
type Embedder interface {
	ComputeFaceEmbedding(ctx context.Context, imageData []byte) ([]float32, error)
}

// EmbeddingStrategy scores a character by pairwise cosine similarity of
// per-appearance face embeddings. Used when no reasoning provider is
// available.
type EmbeddingStrategy struct {
	embedder Embedder
	tuning   config.AnalysisTuning
	log      *logrus.Logger
}

func NewEmbeddingStrategy(embedder Embedder, tuning config.AnalysisTuning, log *logrus.Logger) *EmbeddingStrategy {
	return &EmbeddingStrategy{embedder: embedder, tuning: tuning, log: log}
}

func (s *EmbeddingStrategy) Name() string {
	return "embedding"
}

func (s *EmbeddingStrategy) Analyze(ctx context.Context, character string, apps []faces.Appearance) (*Report, error) {
	vectors := make([][]float32, len(apps))
	for i, a := range apps {
		vec, err := s.embedder.ComputeFaceEmbedding(ctx, a.Thumbnail)
		if err != nil {
			// A failed embedding scores zero similarity to everything,
			// which forces the appearance to be flagged below.
			s.log.WithFields(logrus.Fields{
				"character": character,
				"page":      a.PageNumber,
			}).WithError(err).Warn("embedding unavailable, treating appearance as maximally dissimilar")
			continue
		}
		vectors[i] = vec
	}

	matrix := SimilarityMatrix(vectors)
	supports := SupportScores(matrix)

	var outliers []Outlier
	for i, support := range supports {
		var severity Severity
		switch {
		case support < s.tuning.SeverityHighThreshold:
			severity = SeverityHigh
		case support < s.tuning.SeverityMediumThreshold:
			severity = SeverityMedium
		default:
			continue
		}

		issue := fmt.Sprintf("low similarity to the character's other appearances (support score %.2f)", support)
		if vectors[i] == nil {
			issue = "face embedding unavailable for this appearance"
		}
		outliers = append(outliers, Outlier{
			PageNumber: apps[i].PageNumber,
			FaceID:     apps[i].FaceID,
			Severity:   severity,
			Issues:     []string{issue},
		})
	}

	return &Report{
		Character:          character,
		Method:             s.Name(),
		OverallConsistency: clampUnit(OverallConsistency(matrix)),
		Outliers:           outliers,
	}, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
