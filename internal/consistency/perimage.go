package consistency

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/ai"
	"github.com/chrofis/magicalstory/internal/faces"
)

// PerImageStrategy sends every face individually alongside the full set in
// one request. Used when grid compositing is unavailable.
type PerImageStrategy struct {
	provider ai.Provider
	log      *logrus.Logger
}

func NewPerImageStrategy(provider ai.Provider, log *logrus.Logger) *PerImageStrategy {
	return &PerImageStrategy{provider: provider, log: log}
}

func (s *PerImageStrategy) Name() string {
	return "per-image"
}

func (s *PerImageStrategy) Analyze(ctx context.Context, character string, apps []faces.Appearance) (*Report, error) {
	images := make([]ai.PageFace, 0, len(apps))
	for _, a := range apps {
		images = append(images, ai.PageFace{PageNumber: a.PageNumber, Image: a.Thumbnail})
	}

	judgment, err := s.provider.JudgeImageConsistency(ctx, images, character)
	if err != nil {
		return nil, err
	}

	return reportFromJudgment(character, s.Name(), judgment, apps, s.log), nil
}
